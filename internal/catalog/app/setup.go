// Package app wires the catalog service components together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/abgdnv/productcatalog/internal/catalog/blob"
	"github.com/abgdnv/productcatalog/internal/catalog/config"
	"github.com/abgdnv/productcatalog/internal/catalog/service"
	"github.com/abgdnv/productcatalog/internal/catalog/store"
	grpcImpl "github.com/abgdnv/productcatalog/internal/catalog/transport/grpc"
	"github.com/abgdnv/productcatalog/internal/catalog/transport/rest"
	"github.com/abgdnv/productcatalog/pkg/messaging"
	"github.com/abgdnv/productcatalog/pkg/nats"
	"github.com/abgdnv/productcatalog/pkg/server"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
)

const productSubjects = "catalog.product.>"

type Dependencies struct {
	CatalogService service.CatalogService
	DB             store.DB
	MaxUploadBytes int64
	Logger         *slog.Logger
	// Metrics, when set, is mounted on MetricsPath.
	Metrics     http.Handler
	MetricsPath string
	closers     []func() error
}

// Close releases every resource opened by SetupDependencies, last opened first.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}

// SetupDependencies opens the database, the optional cache and broker, and builds the catalog service.
func SetupDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		Logger:         logger,
		MetricsPath:    cfg.Telemetry.Metrics.Path,
	}

	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	deps.DB = db
	deps.closers = append(deps.closers, db.Close)

	var products store.ProductStore = db
	if cfg.Cache.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		deps.closers = append(deps.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		products = store.NewCachedStore(db, rdb, cfg.Cache.TTL, logger)
		logger.Info("product cache enabled", "addr", cfg.Cache.Addr, "ttl", cfg.Cache.TTL)
	}

	publisher, err := setupPublisher(ctx, cfg, deps)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	blobs := NewBlobStore(cfg.Storage)
	deps.CatalogService = service.NewService(products, blobs, publisher, logger, cfg.Catalog.Options())
	return deps, nil
}

// NewBlobStore builds the image store from the storage section.
func NewBlobStore(cfg config.StorageConfig) *blob.LocalStore {
	var opts []blob.Option
	if cfg.FilePerm != 0 {
		opts = append(opts, blob.WithFilePerm(fs.FileMode(cfg.FilePerm)))
	}
	if cfg.DirPerm != 0 {
		opts = append(opts, blob.WithDirPerm(fs.FileMode(cfg.DirPerm)))
	}
	return blob.NewLocalStore(cfg.Dir, opts...)
}

func setupPublisher(ctx context.Context, cfg *config.Config, deps *Dependencies) (messaging.Publisher, error) {
	if !cfg.NATS.Enabled {
		deps.Logger.Info("NATS disabled, catalog events are not published")
		return messaging.NopPublisher{}, nil
	}
	nc, err := nats.NewClient(cfg.NATS.Url, cfg.NATS.Timeout)
	if err != nil {
		return nil, err
	}
	deps.closers = append(deps.closers, func() error { nc.Close(); return nil })

	js, err := nats.NewJetStreamContext(nc)
	if err != nil {
		return nil, err
	}
	streamCtx, cancel := context.WithTimeout(ctx, cfg.NATS.Timeout)
	defer cancel()
	if err := nats.EnsureStream(streamCtx, js, cfg.NATS.Stream, productSubjects); err != nil {
		return nil, err
	}
	deps.Logger.Info("publishing catalog events to NATS", "stream", cfg.NATS.Stream)
	return nats.NewNatsPublisher(js), nil
}

// SetupHttpHandler builds the router with middleware, routes and tracing.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	rest.NewHandler(deps.CatalogService, deps.MaxUploadBytes, deps.Logger).RegisterRoutes(mux)
	if deps.Metrics != nil {
		mux.Handle(deps.MetricsPath, deps.Metrics)
	}
	return otelhttp.NewHandler(mux, "catalog.http")
}

// SetupHttpServer creates and configures an HTTP server for the catalog service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(server.HTTPConfigFrom(cfg.HTTPServer), SetupHttpHandler(deps))
}

// SetupGrpcServer creates the gRPC server exposing the health service and a reporter keeping it current.
func SetupGrpcServer(deps *Dependencies, cfg *config.Config) (*grpc.Server, *grpcImpl.HealthReporter) {
	grpcServer, healthServer := server.NewGRPCServer(cfg.GRPC.ReflectionEnabled)
	reporter := grpcImpl.NewHealthReporter(deps.DB, healthServer, cfg.GRPC.HealthInterval, deps.Logger)
	return grpcServer, reporter
}
