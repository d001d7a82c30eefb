package app

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/flashdeck/internal/adapter/httpapi"
	"github.com/eslsoft/flashdeck/internal/adapter/remote"
	storerepo "github.com/eslsoft/flashdeck/internal/adapter/repository"
	"github.com/eslsoft/flashdeck/internal/infrastructure/config"
	"github.com/eslsoft/flashdeck/internal/infrastructure/database"
	"github.com/eslsoft/flashdeck/internal/repository"
	"github.com/eslsoft/flashdeck/internal/usecase"
)

// ProvideStore opens the store and applies the schema.
func ProvideStore(drv dialect.Driver, logger *logrus.Logger) (*storerepo.Store, error) {
	store := storerepo.NewStore(drv, logger)
	if err := store.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return store, nil
}

// ProvideDriver opens the configured database.
func ProvideDriver(cfg *config.Config, logger *logrus.Logger) (dialect.Driver, func(), error) {
	return database.Open(cfg, logger)
}

// ProvideLocalBackend serves study operations from the SQL store.
func ProvideLocalBackend(cfg *config.Config, catalog repository.CatalogRepository, learner repository.LearnerRepository, logger *logrus.Logger) *usecase.LocalBackend {
	return usecase.NewLocalBackend(catalog, learner, cfg.Study.HardThreshold, logger.WithField("component", "local_backend"))
}

// ProvideHandler exposes backend over the action protocol.
func ProvideHandler(cfg *config.Config, backend *usecase.LocalBackend, logger *logrus.Logger) *httpapi.Handler {
	return httpapi.NewHandler(backend, cfg.Server.Nonce, logger)
}

// ProvideBackends returns the configured study backend. In local mode the
// learner repository is set as well.
func ProvideBackends(cfg *config.Config, logger *logrus.Logger) (Backends, func(), error) {
	if cfg.BackendMode() == config.BackendRemote {
		client, err := remote.New(remote.Config{
			Endpoint: cfg.Backend.Endpoint,
			Nonce:    cfg.Backend.Nonce,
			Timeout:  cfg.Backend.Timeout,
		}, logger)
		if err != nil {
			return Backends{}, nil, err
		}
		return Backends{Study: client}, func() {}, nil
	}

	drv, cleanup, err := ProvideDriver(cfg, logger)
	if err != nil {
		return Backends{}, nil, err
	}
	store, err := ProvideStore(drv, logger)
	if err != nil {
		cleanup()
		return Backends{}, nil, err
	}
	learner := storerepo.NewLearnerRepository(store)
	backend := ProvideLocalBackend(cfg, storerepo.NewCatalogRepository(store), learner, logger)
	return Backends{Study: backend, Learner: learner}, cleanup, nil
}

// ProvideSession builds the orchestrating session.
func ProvideSession(cfg *config.Config, backends Backends, logger *logrus.Logger) *usecase.Session {
	return usecase.NewSession(backends.Study, NewLogNotifier(logger), logger, SessionConfig(cfg))
}

// SessionConfig maps study settings onto the session.
func SessionConfig(cfg *config.Config) usecase.SessionConfig {
	return usecase.SessionConfig{
		WordsetID:            cfg.Backend.WordsetID,
		ChunkSize:            cfg.Study.ChunkSize,
		LearningMinChunkSize: cfg.Study.LearningMinChunkSize,
		HardThreshold:        cfg.Study.HardThreshold,
		PrefetchRatio:        cfg.Study.PrefetchRatio,
		PrefetchFallback:     cfg.Study.PrefetchFallback,
		SaveDebounce:         cfg.Study.SaveDebounce,
	}
}

// LogNotifier reports learner notices through the logger.
type LogNotifier struct {
	logger logrus.FieldLogger
}

// NewLogNotifier builds a notifier that logs at warning level.
func NewLogNotifier(logger logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{logger: logger.WithField("component", "notifier")}
}

func (n *LogNotifier) NotifyError(kind usecase.NoticeKind, message string) {
	n.logger.WithField("kind", string(kind)).Warn(message)
}
