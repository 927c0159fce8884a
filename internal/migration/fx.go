package migration

import (
	"github.com/smallbiznis/hisaab/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.DBAutoMigrate {
			log.Info("schema migrations skipped", zap.String("db_type", cfg.DBType))
			return nil
		}
		if err := Apply(conn); err != nil {
			return err
		}
		log.Info("schema migrations applied", zap.String("db_type", cfg.DBType))
		return nil
	}),
)
