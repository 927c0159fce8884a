package followup

import (
	"github.com/smallbiznis/hisaab/internal/followup/service"
	"go.uber.org/fx"
)

var Module = fx.Module("followup.service",
	fx.Provide(service.NewService),
)
