package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/samirrijal/routeguide/internal/adapters/file"
	grpcadapter "github.com/samirrijal/routeguide/internal/adapters/grpc"
	httpadapter "github.com/samirrijal/routeguide/internal/adapters/http"
	natsadapter "github.com/samirrijal/routeguide/internal/adapters/nats"
	"github.com/samirrijal/routeguide/internal/adapters/postgres"
	"github.com/samirrijal/routeguide/internal/adapters/valkey"
	"github.com/samirrijal/routeguide/internal/core/dispatch"
	"github.com/samirrijal/routeguide/internal/core/domain"
	"github.com/samirrijal/routeguide/internal/core/ports"
	"github.com/samirrijal/routeguide/internal/core/usecases"
	"github.com/samirrijal/routeguide/internal/pkg/config"
	"github.com/samirrijal/routeguide/internal/pkg/logging"
	"github.com/samirrijal/routeguide/internal/pkg/metrics"
	"github.com/samirrijal/routeguide/internal/pkg/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load("routeguide-server")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	hooks := []dispatch.Hook{
		dispatch.LoggingHook{Logger: slog.Default()},
		metrics.DispatchHook{},
	}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
			hooks = append(hooks, telemetry.NewTracingHook(nil))
		}
	}

	var checks []httpadapter.ReadinessCheck

	source, closeSource, err := openCatalog(ctx, cfg, &checks)
	if err != nil {
		return err
	}
	defer closeSource()

	features, err := loadCatalog(ctx, cfg.Catalog.Source, source)
	if err != nil {
		return err
	}
	slog.Info("catalog loaded", "source", cfg.Catalog.Source, "features", len(features))

	opts := []usecases.Option{
		usecases.WithBroadcastObserver(func(r usecases.BroadcastResult) {
			metrics.ObserveBroadcast(r.Delivered, r.Dropped)
		}),
	}

	var relay *natsadapter.NoteRelay
	if cfg.NATS.Enabled {
		relay, err = natsadapter.Connect(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			slog.Warn("nats unavailable, chat stays local", "error", err)
		} else {
			defer relay.Close()
			opts = append(opts, usecases.WithRelay(relay))
			checks = append(checks, httpadapter.ReadinessCheck{
				Name: "nats",
				Probe: func(context.Context) error {
					if !relay.Connected() {
						return errors.New("disconnected")
					}
					return nil
				},
			})
		}
	}

	svc := usecases.NewRouteGuideService(
		usecases.NewGeoIndex(features),
		usecases.NewChatRoom(cfg.Chat.QueueCapacity),
		opts...,
	)

	if relay != nil {
		if err := relay.SubscribeNotes(ctx, svc.DeliverRelayed); err != nil {
			return fmt.Errorf("subscribe relay: %w", err)
		}
	}

	d := dispatch.New(hooks...)
	dispatch.RegisterRouteGuide(d, svc)

	grpcSrv := grpcadapter.NewServer(d)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:             1024 * 1024,
		AppName:               "Route Guide",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))
	httpadapter.SetupRoutes(app, &httpadapter.Dependencies{
		Service:    svc,
		Dispatcher: d,
		Checks:     checks,
		Version:    version,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
		slog.Info("http server starting", "addr", addr)
		return app.Listen(addr)
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down, draining calls", "grace", cfg.Server.ShutdownGrace())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace())
		defer cancel()

		grpcSrv.Shutdown(shutdownCtx)
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Error("forced http shutdown", "error", err)
		}
		return nil
	})

	return g.Wait()
}

// openCatalog picks the configured catalog backend. Database-backed sources
// also register a required readiness check.
func openCatalog(ctx context.Context, cfg *config.Config, checks *[]httpadapter.ReadinessCheck) (ports.CatalogSource, func(), error) {
	switch cfg.Catalog.Source {
	case config.SourcePostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		*checks = append(*checks, httpadapter.ReadinessCheck{Name: "postgres", Required: true, Probe: db.Ping})
		return postgres.NewFeatureRepo(db), db.Close, nil

	case config.SourceValkey:
		store, err := valkey.New(cfg.Valkey.Addr, cfg.Catalog.ValkeyKey)
		if err != nil {
			return nil, nil, err
		}
		*checks = append(*checks, httpadapter.ReadinessCheck{Name: "valkey", Required: true, Probe: store.Ping})
		return store, store.Close, nil

	default:
		return file.NewCatalogFile(cfg.Catalog.Path), func() {}, nil
	}
}

func loadCatalog(ctx context.Context, name string, source ports.CatalogSource) ([]domain.Feature, error) {
	start := time.Now()
	features, err := source.Load(ctx)
	metrics.CatalogLoadDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("load catalog from %s: %w", name, err)
	}
	if err := domain.ValidateCatalog(features); err != nil {
		return nil, err
	}
	metrics.CatalogFeatures.Set(float64(len(features)))
	return features, nil
}
