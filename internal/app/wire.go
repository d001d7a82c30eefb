//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	storerepo "github.com/eslsoft/flashdeck/internal/adapter/repository"
	"github.com/eslsoft/flashdeck/internal/infrastructure/config"
	"github.com/eslsoft/flashdeck/internal/infrastructure/server"
)

var configSet = wire.NewSet(
	config.Load,
)

var databaseSet = wire.NewSet(
	ProvideDriver,
	ProvideStore,
)

var repositorySet = wire.NewSet(
	storerepo.NewCatalogRepository,
	storerepo.NewLearnerRepository,
)

var usecaseSet = wire.NewSet(
	ProvideLocalBackend,
)

var serviceSet = wire.NewSet(
	ProvideHandler,
)

var serverSet = wire.NewSet(
	server.NewLogger,
	server.NewServer,
)

// Initialize builds the application container using Wire.
func Initialize() (*Container, func(), error) {
	wire.Build(
		configSet,
		databaseSet,
		repositorySet,
		usecaseSet,
		serviceSet,
		serverSet,
		wire.Struct(new(Container), "Logger", "Server"),
	)
	return nil, nil, nil
}

// InitializeStore builds the store repositories for maintenance commands.
func InitializeStore() (*StoreContainer, func(), error) {
	wire.Build(
		configSet,
		databaseSet,
		repositorySet,
		server.NewLogger,
		wire.Struct(new(StoreContainer), "Config", "Logger", "Catalog", "Learner"),
	)
	return nil, nil, nil
}

// InitializeClient builds a study session against the configured backend.
func InitializeClient() (*ClientContainer, func(), error) {
	wire.Build(
		configSet,
		server.NewLogger,
		ProvideBackends,
		ProvideSession,
		wire.Struct(new(ClientContainer), "*"),
	)
	return nil, nil, nil
}
