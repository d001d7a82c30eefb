package app

import (
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/flashdeck/internal/infrastructure/config"
	"github.com/eslsoft/flashdeck/internal/infrastructure/server"
	"github.com/eslsoft/flashdeck/internal/repository"
	"github.com/eslsoft/flashdeck/internal/usecase"
)

// Container aggregates the application dependencies produced by Wire.
type Container struct {
	Logger *logrus.Logger
	Server *server.Server
}

// Backends holds the study backend of client commands. Learner is nil when
// the backend is remote.
type Backends struct {
	Study   repository.StudyBackend
	Learner repository.LearnerRepository
}

// ClientContainer aggregates what client commands need to drive a session.
type ClientContainer struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Backends Backends
	Session  *usecase.Session
}

// StoreContainer exposes the SQL store repositories for maintenance commands.
type StoreContainer struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Catalog repository.CatalogRepository
	Learner repository.LearnerRepository
}
