package app

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/flashdeck/internal/adapter/remote"
	"github.com/eslsoft/flashdeck/internal/entity"
	"github.com/eslsoft/flashdeck/internal/infrastructure/config"
	"github.com/eslsoft/flashdeck/internal/usecase"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestProvideBackendsLocal(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, DSN: "file:" + t.Name() + "?mode=memory&cache=shared&_fk=1"},
		Backend:  config.BackendConfig{Mode: config.BackendLocal, WordsetID: 2},
		Study:    config.StudyConfig{HardThreshold: 4},
	}
	backends, cleanup, err := ProvideBackends(cfg, testLogger())
	if err != nil {
		t.Fatalf("ProvideBackends: %v", err)
	}
	defer cleanup()
	if _, ok := backends.Study.(*usecase.LocalBackend); !ok || backends.Learner == nil {
		t.Fatalf("expected local backend with learner, got %T", backends.Study)
	}
	cats, err := backends.Study.FetchCategories(context.Background(), 2)
	if err != nil || len(cats) != 0 {
		t.Fatalf("expected empty migrated store, got %+v, %v", cats, err)
	}
	state, err := backends.Learner.GetUserState(context.Background(), 2)
	if err != nil || state.StarMode != entity.StarModeNormal {
		t.Fatalf("unexpected state %+v, %v", state, err)
	}
}

func TestProvideBackendsRemote(t *testing.T) {
	cfg := &config.Config{Backend: config.BackendConfig{Mode: "remote", Endpoint: "https://example.test/ajax", Timeout: time.Second}}
	backends, cleanup, err := ProvideBackends(cfg, testLogger())
	if err != nil {
		t.Fatalf("ProvideBackends: %v", err)
	}
	defer cleanup()
	if _, ok := backends.Study.(*remote.Client); !ok || backends.Learner != nil {
		t.Fatalf("expected remote client without learner, got %T", backends.Study)
	}
}

func TestSessionConfig(t *testing.T) {
	cfg := &config.Config{
		Backend: config.BackendConfig{WordsetID: 5},
		Study: config.StudyConfig{
			ChunkSize: 15, LearningMinChunkSize: 8, HardThreshold: 4,
			PrefetchRatio: 0.8, PrefetchFallback: 8, SaveDebounce: 300 * time.Millisecond,
		},
	}
	got := SessionConfig(cfg)
	if got.WordsetID != 5 || got.ChunkSize != 15 || got.PrefetchRatio != 0.8 || got.SaveDebounce != 300*time.Millisecond {
		t.Fatalf("unexpected session config %+v", got)
	}
}
