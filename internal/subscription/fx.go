package subscription

import (
	"github.com/subtracklabs/subtrack/internal/subscription/engine"
	"github.com/subtracklabs/subtrack/internal/subscription/normalizer"
	"github.com/subtracklabs/subtrack/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription",
	fx.Provide(
		engine.New,
		normalizer.New,
		service.NewService,
	),
)
