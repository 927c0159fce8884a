package reminder

import (
	"github.com/smallbiznis/hisaab/internal/reminder/repository"
	"github.com/smallbiznis/hisaab/internal/reminder/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reminder.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
