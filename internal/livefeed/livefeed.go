// Package livefeed bridges a socket.io server, typically a visualizer, to a
// live scheduling session. Inbound confirmation and start events are decoded
// and submitted to the session one at a time; every published snapshot is
// emitted back as a schedule document.
package livefeed

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/scheduler"
	"github.com/specialistvlad/tempogrid/internal/session"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Default event names.
const (
	DefaultConfirmEvent  = "confirm"
	DefaultStartEvent    = "start"
	DefaultScheduleEvent = "schedule"
)

var (
	// ErrEmptyPayload is returned when an inbound event carries no data.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrInvalidPayload is returned when an inbound payload is malformed.
	ErrInvalidPayload = errors.New("invalid payload")
)

// Config describes the socket.io endpoint and the event names used on it.
type Config struct {
	URL                string
	Namespace          string
	ConfirmEvent       string
	StartEvent         string
	ScheduleEvent      string
	InsecureSkipVerify bool
}

func (c Config) withDefaults() Config {
	if c.Namespace == "" {
		c.Namespace = "/"
	}
	if c.ConfirmEvent == "" {
		c.ConfirmEvent = DefaultConfirmEvent
	}
	if c.StartEvent == "" {
		c.StartEvent = DefaultStartEvent
	}
	if c.ScheduleEvent == "" {
		c.ScheduleEvent = DefaultScheduleEvent
	}
	return c
}

// Bridge connects one socket.io namespace to one session.
type Bridge struct {
	cfg Config

	mu sync.Mutex
	io *socket.Socket
}

// New returns a Bridge for cfg. Nothing is dialed until Run.
func New(cfg Config) *Bridge {
	return &Bridge{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (b *Bridge) Config() Config { return b.cfg }

// Run dials the server and forwards inbound events to sess until ctx is
// cancelled or the connection fails to establish. Events are submitted in
// arrival order.
func (b *Bridge) Run(ctx context.Context, sess session.Session) error {
	logger := ctxlog.FromContext(ctx).With("component", "livefeed", "url", b.cfg.URL, "namespace", b.cfg.Namespace)
	logger.Debug("Bridge started.")
	defer logger.Debug("Bridge finished.")

	parsedURL, err := url.Parse(b.cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("failed to parse URL %q: scheme and host are required", b.cfg.URL)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if b.cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(b.cfg.Namespace, opts)

	b.mu.Lock()
	b.io = io
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.io = nil
		b.mu.Unlock()
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	var connected atomic.Bool
	inbound := make(chan scheduler.Event, 16)
	failed := make(chan error, 1)

	forward := func(kind string, decode func(...any) (scheduler.Event, error)) types.Listener {
		return func(data ...any) {
			ev, err := decode(data...)
			if err != nil {
				logger.Warn("Dropping inbound event", "event", kind, "error", err)
				return
			}
			select {
			case inbound <- ev:
			case <-ctx.Done():
			}
		}
	}

	io.On(types.EventName("connect"), func(...any) {
		connected.Store(true)
		logger.Info("Successfully connected", "sid", io.Id())
		b.emit(ctx, io, sess.Snapshot())
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		if connected.Load() {
			return
		}
		err := errors.New("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case failed <- err:
		default:
		}
	})
	io.On(types.EventName(b.cfg.ConfirmEvent), forward(b.cfg.ConfirmEvent, func(data ...any) (scheduler.Event, error) {
		return DecodeConfirmation(data...)
	}))
	io.On(types.EventName(b.cfg.StartEvent), forward(b.cfg.StartEvent, func(data ...any) (scheduler.Event, error) {
		return DecodeStart(data...)
	}))

	io.Connect()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-failed:
			return fmt.Errorf("failed to connect to %s: %w", b.cfg.URL, err)
		case ev := <-inbound:
			if !submit(ctx, logger, sess, ev) {
				return nil
			}
		}
	}
}

// submit applies ev to sess. A failed event is logged and skipped; submit
// reports false only once the session is closed or ctx is done.
func submit(ctx context.Context, logger *slog.Logger, sess session.Session, ev scheduler.Event) bool {
	if _, err := sess.Submit(ctx, ev); err != nil {
		if errors.Is(err, session.ErrClosed) || ctx.Err() != nil {
			return false
		}
		logger.Error("Failed to apply inbound event.", "event", fmt.Sprintf("%+v", ev), "error", err)
	}
	return true
}

// Observe emits snap to the server when the bridge is connected. It is
// meant to be registered as a session.Observer.
func (b *Bridge) Observe(ctx context.Context, snap session.Snapshot) {
	b.mu.Lock()
	io := b.io
	b.mu.Unlock()
	if io == nil || !io.Connected() {
		return
	}
	b.emit(ctx, io, snap)
}

func (b *Bridge) emit(ctx context.Context, io *socket.Socket, snap session.Snapshot) {
	if snap.Schedule == nil {
		return
	}
	payload, err := SchedulePayload(snap)
	if err != nil {
		ctxlog.FromContext(ctx).Error("Failed to encode schedule", "error", err)
		return
	}
	if err := io.Emit(b.cfg.ScheduleEvent, payload); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to emit schedule", "event", b.cfg.ScheduleEvent, "error", err)
		return
	}
	ctxlog.FromContext(ctx).Debug("Schedule emitted.", "event", b.cfg.ScheduleEvent, "version", snap.Version)
}
