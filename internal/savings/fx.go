package savings

import (
	"github.com/smallbiznis/hisaab/internal/savings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("savings.service",
	fx.Provide(service.NewService),
)
