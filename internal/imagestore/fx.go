package imagestore

import (
	"github.com/smallbiznis/catalog/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("imagestore",
	fx.Provide(Provide),
)

func Provide(cfg config.Config) (Store, error) {
	return New(cfg.UploadDir)
}
