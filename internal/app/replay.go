package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/journal"
	"github.com/specialistvlad/tempogrid/internal/localsession"
	"github.com/specialistvlad/tempogrid/internal/schedule"
)

// ErrNoJournal is returned by Replay when no journal path is configured.
var ErrNoJournal = errors.New("a journal path is required")

// Replay rebuilds the live session of the configured program from its
// journal and writes the resulting schedule.
func (app *App) Replay(ctx context.Context) error {
	ctx = app.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.Replay method started.")

	if app.config.JournalPath == "" {
		return ErrNoJournal
	}
	src, err := app.single(ctx)
	if err != nil {
		return err
	}

	j, err := journal.Open(app.config.JournalPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := j.Close(); err != nil {
			logger.Error("Failed to close journal.", "error", err)
		}
	}()

	entries, err := j.Events(ctx, src.Program.ID)
	if err != nil {
		return err
	}

	sess, err := localsession.New(ctx, src.Program, &localsession.SessionFactory{
		SchedulerOptions: app.schedulerOptions(),
	})
	if err != nil {
		app.reportFailure(src.Path, err)
		return fmt.Errorf("%s: %w", src.Path, err)
	}
	defer func() { _ = sess.Close(context.WithoutCancel(ctx)) }()

	snap := sess.Snapshot()
	for _, e := range entries {
		snap, err = sess.Submit(ctx, e.Event)
		if err != nil {
			return fmt.Errorf("failed to replay journal entry %d: %w", e.Seq, err)
		}
	}
	logger.Info("Journal replayed.", "program", src.Program.ID, "events", len(entries))

	return app.writeSchedules([]*schedule.Schedule{snap.Schedule})
}
