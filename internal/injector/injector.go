//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"context"

	"github.com/google/wire"
	"github.com/zeusync/enemyai/internal/config"
)

// InitializeApp assembles the simulation described by cfg.
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	panic(wire.Build(ProviderSet))
}
