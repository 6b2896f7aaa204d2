package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mlevkov/camlink/internal/ingest/config"
	"github.com/mlevkov/camlink/internal/ingest/db"
	"github.com/mlevkov/camlink/internal/ingest/notifier"
	"github.com/mlevkov/camlink/internal/ingest/storage"
	"github.com/mlevkov/camlink/internal/logging"
)

type App struct {
	config *config.Config
	logger logging.Logger
	repos  db.RepositoryManager
	server *http.Server
}

func NewApp(c *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	var repos db.RepositoryManager
	var err error
	if c.DatabaseDSN != "" {
		repos, err = db.NewPostgresRepositoryManager(c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
	} else {
		logger.Warn(context.Background(), "no database configured, using in-memory store")
		repos = db.NewInMemoryRepositoryManager()
	}

	blobs, err := newStorage(c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	var notify Notifier
	if c.RegistryURL != "" {
		notify = notifier.NewRegistry(c.RegistryURL, c.RegistryTimeout)
	}

	svc := NewService(repos, blobs, notify, logger)
	handler := NewHandler(svc, []byte(c.SecretKey), logger)

	server := &http.Server{
		Addr:              c.EndpointAddr,
		Handler:           handler.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{config: c, logger: logger, repos: repos, server: server}, nil
}

func newStorage(c *config.Config) (storage.Storage, error) {
	switch c.StorageBackend {
	case "disk":
		return storage.NewDisk(c.DiskRoot)
	case "s3":
		return storage.NewS3(context.Background(), storage.S3Config{
			RootUser:     c.S3RootUser,
			RootPassword: c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = app.server.Shutdown(shutdownCtx)
	}()

	if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "server stopped", "error", err)
	}

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
