package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/journal"
	"github.com/specialistvlad/tempogrid/internal/livefeed"
	"github.com/specialistvlad/tempogrid/internal/localsession"
	"github.com/specialistvlad/tempogrid/internal/session"
)

// ErrNoEventSource is returned by Live when neither a feed URL nor an input
// reader is available.
var ErrNoEventSource = errors.New("no live event source: set a feed URL or pipe events on stdin")

// Live plans the configured program and keeps replanning it as live events
// arrive, writing every snapshot. Events come from the socket.io feed when
// one is configured and from the input reader otherwise, one JSON object per
// line. Applied events are journaled when a journal path is set. Live
// returns when ctx is cancelled or the input is exhausted.
func (app *App) Live(ctx context.Context) error {
	ctx = app.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.Live method started.")

	feedURL := app.config.Feed.URL
	if feedURL == "" && app.inR == nil {
		return ErrNoEventSource
	}

	src, err := app.single(ctx)
	if err != nil {
		return err
	}

	factory := &localsession.SessionFactory{
		Observers:        []session.Observer{app.writeSnapshot},
		SchedulerOptions: app.schedulerOptions(),
	}

	if app.config.JournalPath != "" {
		j, err := journal.Open(app.config.JournalPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := j.Close(); err != nil {
				logger.Error("Failed to close journal.", "error", err)
			}
		}()
		factory.Recorder = j
		logger.Info("Journaling events.", "path", app.config.JournalPath)
	}

	var bridge *livefeed.Bridge
	if feedURL != "" {
		f := app.config.Feed
		bridge = livefeed.New(livefeed.Config{
			URL:                f.URL,
			Namespace:          f.Namespace,
			ConfirmEvent:       f.ConfirmEvent,
			StartEvent:         f.StartEvent,
			ScheduleEvent:      f.ScheduleEvent,
			InsecureSkipVerify: f.InsecureSkipVerify,
		})
		factory.Observers = append(factory.Observers, bridge.Observe)
	}

	sess, err := factory.NewSession(ctx, src.Program)
	if err != nil {
		app.reportFailure(src.Path, err)
		return fmt.Errorf("%s: %w", src.Path, err)
	}
	defer func() {
		if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Error("Failed to close session.", "error", err)
		}
	}()

	app.healthCheckServer(sess)
	defer func() { _ = app.closeHealthCheckServer() }()

	app.writeSnapshot(ctx, sess.Snapshot())
	logger.Info("🚀 Live session started.", "program", src.Program.ID)

	if bridge != nil {
		err = bridge.Run(ctx, sess)
	} else {
		err = app.readEvents(ctx, sess)
	}
	logger.Info("🏁 Live session finished.", "program", src.Program.ID, "version", sess.Snapshot().Version)
	return err
}

// readEvents submits one event per non-empty input line. Lines starting with
// '#' are comments. Malformed lines and events that fail to apply are logged
// and skipped.
func (app *App) readEvents(ctx context.Context, sess session.Session) error {
	logger := ctxlog.FromContext(ctx)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(app.inR)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for n := 1; ; n++ {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ev, err := livefeed.DecodeEvent(line)
		if err != nil {
			logger.Warn("Skipping malformed event.", "line", n, "error", err)
			continue
		}
		if _, err := sess.Submit(ctx, ev); err != nil {
			if errors.Is(err, session.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			logger.Error("Failed to apply event.", "line", n, "error", err)
		}
	}

	select {
	case err := <-scanErr:
		if err != nil {
			return fmt.Errorf("failed to read events: %w", err)
		}
	default:
	}
	return nil
}
