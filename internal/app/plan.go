package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/report"
	"github.com/specialistvlad/tempogrid/internal/schedule"
	"github.com/specialistvlad/tempogrid/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

// Validate checks every configured program and reports each one. The
// returned error joins every per-file failure.
func (app *App) Validate(ctx context.Context) error {
	ctx = app.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.Validate method started.")

	sources, err := app.load(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, src := range sources {
		if src.Err != nil {
			app.reportFailure(src.Path, src.Err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Path, src.Err))
			continue
		}
		if err := report.Valid(app.outW, src.Path, src.Program.ID, src.Program.Len()); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

// Plan plans every configured program, applies events to each in order, and
// writes the schedules. Programs are planned concurrently and written in
// path order. A program that fails to load, validate or plan is reported
// and skipped; the returned error joins every such failure.
func (app *App) Plan(ctx context.Context, events []scheduler.Event) error {
	ctx = app.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.Plan method started.", "events", len(events))

	sources, err := app.load(ctx)
	if err != nil {
		return err
	}

	schedules := make([]*schedule.Schedule, len(sources))
	failures := make([]error, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range sources {
		if src.Err != nil {
			failures[i] = src.Err
			continue
		}
		g.Go(func() error {
			sc, err := app.planOne(gctx, src, events)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			schedules[i], failures[i] = sc, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var (
		planned []*schedule.Schedule
		errs    []error
	)
	for i, src := range sources {
		if failures[i] != nil {
			app.reportFailure(src.Path, failures[i])
			errs = append(errs, fmt.Errorf("%s: %w", src.Path, failures[i]))
			continue
		}
		planned = append(planned, schedules[i])
	}
	if len(planned) > 0 {
		if err := app.writeSchedules(planned); err != nil {
			return fmt.Errorf("failed to write schedules: %w", err)
		}
	}

	logger.Info("🏁 Planning finished.", "planned", len(planned), "failed", len(errs))
	return errors.Join(errs...)
}

func (app *App) planOne(ctx context.Context, src Source, events []scheduler.Event) (*schedule.Schedule, error) {
	s := scheduler.New(src.Program, app.schedulerOptions()...)
	if err := s.Plan(ctx); err != nil {
		return nil, err
	}
	for _, ev := range events {
		next, warnings, err := scheduler.Replan(ctx, s, ev)
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			ctxlog.FromContext(ctx).Warn("Event produced a warning.", "file", src.Path, "kind", w.Kind.String(), "message", w.Message)
		}
		s = next
	}
	return schedule.From(s), nil
}
