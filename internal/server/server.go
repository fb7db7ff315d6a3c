// Package server assembles the document platform into a runnable fx app:
// configuration, logging, the storage driver, the schema registry and the
// business services.
package server

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"go.uber.org/fx"

	"github.com/inkhub/inkhub/internal/log"
	"github.com/inkhub/inkhub/internal/schema"
	"github.com/inkhub/inkhub/internal/server/biz"
	"github.com/inkhub/inkhub/internal/server/db"
	"github.com/inkhub/inkhub/internal/store"
)

// Config is the server-level slice of the process configuration; the rest
// lives with the packages that consume it.
type Config struct {
	Name  string `conf:"name" yaml:"name" json:"name"`
	Debug bool   `conf:"debug" yaml:"debug" json:"debug"`
}

// Module provides the core object graph. Callers supply db.Config,
// log.Config and schema.Config providers (usually from the loaded
// configuration file).
var Module = fx.Module("server",
	fx.Provide(db.NewDriver),
	fx.Provide(store.New),
	fx.Provide(NewRegistry),
	biz.Module,
)

// NewRegistry loads every configured schema file into one registry.
func NewRegistry(cfg schema.Config) (*schema.Registry, error) {
	registry := schema.NewRegistry()

	for _, path := range cfg.Paths {
		collections, err := schema.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("server: load schema %s: %w", path, err)
		}

		for _, collection := range collections {
			if err := registry.Register(collection); err != nil {
				return nil, fmt.Errorf("server: register schema %s: %w", path, err)
			}
		}
	}

	log.Info(context.Background(), "server: schema registry loaded",
		log.Int("collections", len(registry.Slugs())),
	)

	return registry, nil
}

// Run assembles and runs the fx application until it is signalled to stop.
func Run(opts ...fx.Option) {
	base := []fx.Option{
		Module,
		fx.Invoke(func(cfg log.Config) {
			log.Setup(cfg)
		}),
		fx.Invoke(func(lc fx.Lifecycle, drv dialect.Driver, s *store.Store) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return s.Bootstrap(ctx)
				},
				OnStop: func(ctx context.Context) error {
					return drv.Close()
				},
			})
		}),
	}

	fx.New(append(base, opts...)...).Run()
}
