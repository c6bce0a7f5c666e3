package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/fsutil"
	"github.com/specialistvlad/tempogrid/internal/program"
	"github.com/specialistvlad/tempogrid/internal/validate"
	"golang.org/x/sync/errgroup"
)

// ErrNoPrograms is returned when the configured paths hold no program files.
var ErrNoPrograms = errors.New("no program files found")

// Source is one program file after loading and validation. Err is set when
// either step failed, in which case Program is nil.
type Source struct {
	Path    string
	Program *program.Program
	Err     error
}

// files resolves the configured paths into program files, in path order and
// without duplicates.
func (app *App) files() ([]string, error) {
	exts := app.loaders.Extensions()
	seen := make(map[string]bool)
	var files []string
	for _, root := range app.config.Paths {
		found, err := fsutil.FindFilesByExtension(root, exts...)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve program path %s: %w", root, err)
		}
		for _, f := range found {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoPrograms, app.config.Paths)
	}
	return files, nil
}

// load loads and validates every program file concurrently. The returned
// sources keep path order. Per-file failures are reported on the source;
// only resolving the paths or cancellation fails the whole call.
func (app *App) load(ctx context.Context) ([]Source, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := app.files()
	if err != nil {
		return nil, err
	}
	logger.Debug("Loading programs...", "files", len(files))

	sources := make([]Source, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sources[i] = app.loadOne(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("Programs loaded.", "files", len(files))
	return sources, nil
}

func (app *App) loadOne(ctx context.Context, path string) Source {
	logger := ctxlog.FromContext(ctx).With("file", path)

	doc, err := app.loaders.LoadFile(ctx, path)
	if err != nil {
		logger.Debug("Failed to load document.", "error", err)
		return Source{Path: path, Err: err}
	}
	p, err := validate.Validate(ctx, doc)
	if err != nil {
		logger.Debug("Program failed validation.", "error", err)
		return Source{Path: path, Err: err}
	}
	logger.Debug("Program loaded.", "program", p.ID, "steps", p.Len())
	return Source{Path: path, Program: p}
}

// single loads the configured paths and requires exactly one valid program.
func (app *App) single(ctx context.Context) (Source, error) {
	sources, err := app.load(ctx)
	if err != nil {
		return Source{}, err
	}
	if len(sources) != 1 {
		return Source{}, fmt.Errorf("expected exactly one program file, found %d", len(sources))
	}
	src := sources[0]
	if src.Err != nil {
		app.reportFailure(src.Path, src.Err)
		return Source{}, fmt.Errorf("%s: %w", src.Path, src.Err)
	}
	return src, nil
}
