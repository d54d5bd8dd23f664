package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/samirrijal/routeguide/internal/adapters/file"
	"github.com/samirrijal/routeguide/internal/adapters/postgres"
	"github.com/samirrijal/routeguide/internal/adapters/valkey"
	"github.com/samirrijal/routeguide/internal/core/domain"
	"github.com/samirrijal/routeguide/internal/core/ports"
	"github.com/samirrijal/routeguide/internal/pkg/config"
	"github.com/samirrijal/routeguide/internal/pkg/logging"
)

// seed copies a JSON catalog into the store named by catalog.source.
func main() {
	from := pflag.String("from", "", "JSON catalog to copy (default: catalog.path)")
	pflag.Parse()

	cfg, err := config.Load("routeguide-seed")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	path := *from
	if path == "" {
		path = cfg.Catalog.Path
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	features, err := file.NewCatalogFile(path).Load(ctx)
	if err != nil {
		log.Fatalf("read catalog: %v", err)
	}
	if err := domain.ValidateCatalog(features); err != nil {
		log.Fatalf("invalid catalog: %v", err)
	}

	var store ports.CatalogStore
	switch cfg.Catalog.Source {
	case config.SourcePostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		store = postgres.NewFeatureRepo(db)
	case config.SourceValkey:
		vs, err := valkey.New(cfg.Valkey.Addr, cfg.Catalog.ValkeyKey)
		if err != nil {
			log.Fatalf("valkey: %v", err)
		}
		defer vs.Close()
		store = vs
	default:
		log.Fatalf("catalog.source %q is not a seedable store; use postgres or valkey", cfg.Catalog.Source)
	}

	if err := store.Replace(ctx, features); err != nil {
		log.Fatalf("store catalog: %v", err)
	}
	slog.Info("catalog seeded", "source", cfg.Catalog.Source, "from", path, "features", len(features))
}
