package app

import (
	"context"
	"encoding/json"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/livefeed"
	"github.com/specialistvlad/tempogrid/internal/report"
	"github.com/specialistvlad/tempogrid/internal/schedule"
	"github.com/specialistvlad/tempogrid/internal/session"
)

// writeSchedules writes the planned schedules to outW. JSON output is a
// single document for one schedule and an array otherwise.
func (app *App) writeSchedules(schedules []*schedule.Schedule) error {
	if app.config.Output == OutputJSON {
		enc := json.NewEncoder(app.outW)
		enc.SetIndent("", "  ")
		if len(schedules) == 1 {
			return enc.Encode(schedules[0].Document())
		}
		docs := make([]schedule.Document, 0, len(schedules))
		for _, sc := range schedules {
			docs = append(docs, sc.Document())
		}
		return enc.Encode(docs)
	}

	for _, sc := range schedules {
		if err := report.Schedule(app.outW, sc); err != nil {
			return err
		}
	}
	return nil
}

// writeSnapshot writes one live snapshot. JSON output is one compact object
// per line, carrying the snapshot version.
func (app *App) writeSnapshot(ctx context.Context, snap session.Snapshot) {
	logger := ctxlog.FromContext(ctx)
	for _, w := range snap.Warnings {
		logger.Warn("Event produced a warning.", "kind", w.Kind.String(), "step", w.StepID, "trigger", w.TriggerName, "message", w.Message)
	}

	var err error
	if app.config.Output == OutputJSON {
		var payload map[string]any
		payload, err = livefeed.SchedulePayload(snap)
		if err == nil {
			err = json.NewEncoder(app.outW).Encode(payload)
		}
	} else {
		err = report.Schedule(app.outW, snap.Schedule)
	}
	if err != nil {
		logger.Error("Failed to write schedule.", "version", snap.Version, "error", err)
	}
}

// reportFailure renders a per-file failure to errW.
func (app *App) reportFailure(path string, err error) {
	if rerr := report.Validation(app.errW, path, err); rerr != nil {
		app.logger.Error("Failed to write report.", "error", rerr)
	}
}
