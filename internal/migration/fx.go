package migration

import (
	"github.com/smallbiznis/catalog/internal/catalog/domain"
	"github.com/smallbiznis/catalog/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
			log.Info("migrations applied", zap.String("type", cfg.DBType))
			return nil
		}

		// sqlite and mysql dev setups create the schema from the model.
		if err := conn.AutoMigrate(&domain.Product{}); err != nil {
			return err
		}
		log.Info("schema ensured", zap.String("type", cfg.DBType))
		return nil
	}),
)
