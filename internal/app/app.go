package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"libris/internal/cache/noop"
	redisstore "libris/internal/cache/redis"
	"libris/internal/config"
	"libris/internal/encoder"
	"libris/internal/handler"
	"libris/internal/port"
	"libris/internal/render"
	firestorerepo "libris/internal/repository/firestore"
	"libris/internal/repository/postgres"
	"libris/internal/router"
	"libris/internal/service"
	gcsstorage "libris/internal/storage/gcs"
	s3storage "libris/internal/storage/s3"
)

// App holds the wired services shared by the server and the CLI.
type App struct {
	Config *config.Config
	Auth   service.AuthService
	Ingest service.IngestService
	Queue  *service.IngestQueue
	Worker *service.IngestQueueWorker

	checks  map[string]handler.ReadinessCheck
	closers []func() error
}

// New connects to the configured backends and wires the ingestion services.
// Call Close to release the connections.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		checks: make(map[string]handler.ReadinessCheck),
	}

	blobs, err := a.blobStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	assets, err := a.pageAssetRepo(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	progress, err := a.progressStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	pipeline := service.NewIngestionPipeline(
		blobs,
		assets,
		encoder.NewJPEGEncoder(),
		service.PipelineConfigFrom(&cfg.Ingest),
	)

	a.Queue = service.NewIngestQueue(cfg.Ingest.QueueSize)
	a.Ingest = service.NewIngestService(
		render.NewFitzOpener(),
		render.NewPDFInspector(),
		pipeline,
		assets,
		progress,
		a.Queue,
		cfg.Ingest.MaxFileSizeMB,
	)
	a.Worker = service.NewIngestQueueWorker(a.Queue, a.Ingest, service.IngestQueueConfig{
		Concurrency: cfg.Ingest.QueueConcurrency,
		JobTimeout:  cfg.Ingest.JobTimeout,
	})
	a.Auth = service.NewAuthService(cfg.JWT)

	log.Info().
		Str("storage", cfg.Storage.Provider).
		Str("metadata", cfg.Metadata.Provider).
		Bool("shared_progress", cfg.Redis.Enabled()).
		Msg("app: services wired")

	return a, nil
}

// Router builds the HTTP engine for the wired services.
func (a *App) Router() *gin.Engine {
	return router.Setup(
		a.Auth,
		handler.NewIngestionHandler(a.Ingest),
		handler.NewPageHandler(a.Ingest),
		handler.NewHealthHandler(a.checks),
		a.Config.CORS.AllowedOrigins,
		a.Config.Ingest.MaxFileSizeMB,
	)
}

// Close releases backend connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) blobStore(ctx context.Context) (port.BlobStore, error) {
	switch a.Config.Storage.Provider {
	case "s3":
		store, err := s3storage.NewS3Client(&a.Config.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		return store, nil
	case "gcs":
		store, err := gcsstorage.NewGCSClient(ctx, &a.Config.GCS)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS client: %w", err)
		}
		if c, ok := store.(interface{ Close() error }); ok {
			a.closers = append(a.closers, c.Close)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", a.Config.Storage.Provider)
	}
}

func (a *App) pageAssetRepo(ctx context.Context) (port.PageAssetRepository, error) {
	switch a.Config.Metadata.Provider {
	case "postgres":
		db, err := postgres.NewDB(ctx, &a.Config.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.checks["database"] = db.PingContext
		return postgres.NewPageAssetRepo(db), nil
	case "firestore":
		client, err := firestorerepo.NewClient(ctx, &a.Config.Firestore)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Firestore client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		collection := a.Config.Firestore.Collection
		a.checks["firestore"] = func(ctx context.Context) error {
			_, err := client.Collection(collection).Limit(1).Documents(ctx).GetAll()
			return err
		}
		return firestorerepo.NewPageAssetRepo(client, collection), nil
	default:
		return nil, fmt.Errorf("unknown metadata provider %q", a.Config.Metadata.Provider)
	}
}

func (a *App) progressStore(ctx context.Context) (port.ProgressStore, error) {
	if !a.Config.Redis.Enabled() {
		return noop.NewNoopStore(), nil
	}
	client, err := redisstore.NewClient(ctx, &a.Config.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	a.checks["redis"] = func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	return redisstore.NewProgressStore(client, a.Config.Redis.Prefix, a.Config.Redis.ProgressTTL), nil
}
