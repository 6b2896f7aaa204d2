package controller

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/mlevkov/camlink/internal/controller/config"
	"github.com/mlevkov/camlink/internal/link"
	"github.com/mlevkov/camlink/internal/logging"
	"github.com/mlevkov/camlink/internal/modem"
	"github.com/mlevkov/camlink/internal/receive"
	"github.com/mlevkov/camlink/internal/relay"
	"github.com/mlevkov/camlink/internal/store"
)

type App struct {
	config *config.Config
	logger logging.Logger
	loop   *Loop
	ops    chan byte
}

func NewApp(c *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	linkPort, device, err := openLink(c)
	if err != nil {
		return nil, fmt.Errorf("camera link init error: %w", err)
	}
	logger.Info(context.Background(), "camera link open", "device", device)

	modemPort, err := link.Open(c.ModemDevice, c.ModemBaud)
	if err != nil {
		return nil, fmt.Errorf("modem init error: %w", err)
	}

	st, err := store.New(c.ImageDir)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	machine := receive.NewMachine(linkPort, st, logger, receive.Config{
		IdleTimeout: c.IdleTimeout,
		RetryGrace:  c.RetryGrace,
	})

	channel := modem.NewChannel(modemPort, logger)
	httpSvc := modem.NewHTTP(channel, c.ModemCmdTimeout)

	rel := relay.New(httpSvc, logger, relay.Config{
		BaseURL:   c.UploadBaseURL,
		AuthToken: c.UploadAuthToken,
	})

	ops := make(chan byte, 8)

	loop := NewLoop(Deps{
		Receiver:   machine,
		Uploader:   rel,
		ModemLines: channel,
		Clock:      httpSvc,
		Files:      st,
		Link:       linkPort,
		Ops:        ops,
	}, Timing{
		Tick:                c.LoopTick,
		AutoCaptureInterval: c.AutoCaptureInterval,
		TelemetryInterval:   c.TelemetryInterval,
	}, logger)

	return &App{config: c, logger: logger, loop: loop, ops: ops}, nil
}

func openLink(c *config.Config) (link.Port, string, error) {
	if c.LinkDevice != "" {
		p, err := link.Open(c.LinkDevice, c.LinkBaud)
		return p, c.LinkDevice, err
	}
	return link.Autodetect(c.LinkBaud)
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

// readOperatorKeys puts the console into raw mode and forwards single
// keypresses to the scheduler. 'q' and Ctrl-C stop the controller. If the
// console is not a terminal (e.g. running under systemd) the command channel
// simply stays silent.
func (app *App) readOperatorKeys(ctx context.Context, cancelFunc context.CancelFunc) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		app.logger.Info(ctx, "stdin is not a terminal, operator commands disabled")
		return
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		app.logger.Warn(ctx, "raw mode unavailable, operator commands disabled", "error", err)
		return
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			return
		}
		switch buf[0] {
		case 'q', 3: // 3 = Ctrl-C in raw mode
			cancelFunc()
			return
		default:
			select {
			case app.ops <- buf[0]:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	go app.readOperatorKeys(ctx, cancelFunc)

	if err := app.loop.Run(ctx); err != nil && ctx.Err() == nil {
		app.logger.Error(ctx, "scheduler stopped", "error", err)
	}
}
