package processor

import (
	"github.com/subtracklabs/subtrack/internal/processor/domain"
	"github.com/subtracklabs/subtrack/internal/processor/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("processor",
	fx.Provide(
		stripe.NewClient,
		func(c *stripe.Client) domain.Gateway { return c },
		func(c *stripe.Client) domain.Verifier { return c },
	),
)
