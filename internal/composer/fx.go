package composer

import "go.uber.org/fx"

var Module = fx.Module("composer",
	fx.Provide(New),
)
