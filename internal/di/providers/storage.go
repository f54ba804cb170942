package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/Sarcastic-Soul/blog-app/internal/config"
	"github.com/Sarcastic-Soul/blog-app/internal/logger"
	"github.com/Sarcastic-Soul/blog-app/internal/media/images"
)

// ProvideImageStorage provides storage for post header images.
func ProvideImageStorage(i do.Injector) (*images.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	storage, err := images.NewStorage(cfg.Storage.MediaPath())
	if err != nil {
		return nil, fmt.Errorf("header image storage: %w", err)
	}

	log.Info("Image storage initialized", "path", cfg.Storage.MediaPath())

	return storage, nil
}

// ProvideHeaderStore provides the header image processor.
func ProvideHeaderStore(i do.Injector) (*images.HeaderStore, error) {
	storage := do.MustInvoke[*images.Storage](i)
	log := do.MustInvoke[*logger.Logger](i)

	return images.NewHeaderStore(storage, log.Component("images")), nil
}
