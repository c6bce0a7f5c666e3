package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/document"
	"github.com/specialistvlad/tempogrid/internal/hcl_adapter"
	"github.com/specialistvlad/tempogrid/internal/scheduler"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx     context.Context
	outW    io.Writer
	errW    io.Writer
	inR     io.Reader
	logger  *slog.Logger
	config  *Config
	loaders document.Registry

	httpServer *http.Server
}

// NewApp is the constructor for the main application. Schedules are written
// to outW; logs and failure reports go to errW. inR feeds live events when no
// socket.io feed is configured; it may be nil.
func NewApp(outW, errW io.Writer, inR io.Reader, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	loaders := document.NewRegistry()
	loaders.Register(".hcl", hcl_adapter.NewLoader(cfg.Vars))
	logger.Debug("Document loaders registered.", "extensions", loaders.Extensions())

	return &App{
		ctx:     ctx,
		outW:    outW,
		errW:    errW,
		inR:     inR,
		logger:  logger,
		config:  cfg,
		loaders: loaders,
	}
}

// Config returns the application's configuration.
func (app *App) Config() *Config {
	return app.config
}

// withLogger returns ctx carrying the application's logger.
func (app *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, app.logger)
}

func (app *App) schedulerOptions() []scheduler.Option {
	var opts []scheduler.Option
	if !app.config.ClampConfirmations {
		opts = append(opts, scheduler.WithUnclampedConfirmations())
	}
	return opts
}
