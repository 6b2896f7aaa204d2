package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mlevkov/camlink/internal/camera/config"
	"github.com/mlevkov/camlink/internal/filex"
	"github.com/mlevkov/camlink/internal/link"
	"github.com/mlevkov/camlink/internal/logging"
	"github.com/mlevkov/camlink/internal/send"
	"github.com/mlevkov/camlink/internal/wire"
)

// linePoll is how long one Serve iteration waits for a trigger line before
// checking the context again.
const linePoll = 1 * time.Second

type App struct {
	config     *config.Config
	logger     logging.Logger
	port       link.Port
	source     Source
	chunker    *send.Chunker
	archiveDir string
}

func NewApp(c *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	var port link.Port
	var err error
	if c.Device != "" {
		port, err = link.Open(c.Device, c.Baud)
	} else {
		port, _, err = link.Autodetect(c.Baud)
	}
	if err != nil {
		return nil, fmt.Errorf("link init error: %w", err)
	}

	var source Source
	if c.CaptureCommand != "" {
		source = &CommandSource{Template: c.CaptureCommand}
	} else {
		source = &DirSource{Dir: c.SourceDir}
	}

	archiveDir, err := filex.EnsureSubDir(c.ArchiveDir)
	if err != nil {
		return nil, fmt.Errorf("archive init error: %w", err)
	}

	return &App{
		config:     c,
		logger:     logger,
		port:       port,
		source:     source,
		chunker:    send.NewChunker(port, logger, c.AckTimeout),
		archiveDir: archiveDir,
	}, nil
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

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Error(ctx, "camera stopped", "error", err)
	}
}

// Serve announces readiness and then answers capture triggers until the
// context is canceled. Lines that are not triggers are ignored.
func (app *App) Serve(ctx context.Context) error {
	if err := link.WriteLine(app.port, "ready"); err != nil {
		return fmt.Errorf("announce: %w", err)
	}

	for {
		line, err := link.ReadLine(ctx, app.port, linePoll)
		if errors.Is(err, link.ErrLineTimeout) {
			continue
		}
		if err != nil {
			return err
		}

		trigger, ok := wire.ParseTrigger(line)
		if !ok {
			app.logger.Debug(ctx, "ignoring line", "line", line)
			continue
		}
		app.handleTrigger(ctx, trigger)
	}
}

// handleTrigger captures, archives and transfers one image. A failed
// transfer is logged and dropped: retransmission is the receiver's call, and
// it arrives as a brand-new trigger.
func (app *App) handleTrigger(ctx context.Context, t wire.Trigger) {
	app.logger.Info(ctx, "capture requested", "width", t.Width, "quality", t.Quality)

	data, err := app.source.Capture(ctx, t)
	if err != nil {
		app.logger.Error(ctx, "capture failed", "error", err)
		return
	}

	destName := fmt.Sprintf("%d.jpg", time.Now().Unix())

	if path, err := app.archive(destName, data); err != nil {
		app.logger.Warn(ctx, "archive copy failed", "error", err)
	} else {
		app.logger.Debug(ctx, "archived", "path", path)
	}

	if err := app.chunker.Send(ctx, data, destName); err != nil {
		app.logger.Error(ctx, "transfer failed", "file", destName, "error", err)
		return
	}
	app.logger.Info(ctx, "transfer complete", "file", destName, "bytes", len(data))
}

func (app *App) archive(name string, data []byte) (string, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	path := filex.UniqueName(app.archiveDir, base, "jpg")
	if err := os.WriteFile(path, data, 0o660); err != nil {
		return "", err
	}
	return path, nil
}
