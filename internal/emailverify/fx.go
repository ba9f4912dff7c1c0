package emailverify

import (
	"github.com/subtracklabs/subtrack/internal/emailverify/domain"
	"github.com/subtracklabs/subtrack/internal/emailverify/service"
	"github.com/subtracklabs/subtrack/internal/emailverify/store"
	"go.uber.org/fx"
)

var Module = fx.Module("emailverify",
	fx.Provide(
		store.NewRedisStore,
		func(s *store.RedisStore) domain.Store { return s },
		service.NewService,
	),
)
