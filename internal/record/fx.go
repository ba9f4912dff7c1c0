package record

import (
	"github.com/subtracklabs/subtrack/internal/record/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("record",
	fx.Provide(repository.Provide),
)
