package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/tempogrid/internal/app"
	"github.com/spf13/cobra"
)

// Version is reported by --version.
var Version = "dev"

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	output     string
	vars       map[string]string
	clamp      bool
}

// streams are the process streams commands read from and write to.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

// Run builds the command tree, executes args and returns an *ExitError for
// any failure.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	slog.Debug("CLI started.", "args", args)
	root := newRootCommand(streams{in: stdin, out: stdout, err: stderr})
	root.SetArgs(args)
	return exitError(root.ExecuteContext(ctx))
}

// newRootCommand returns the tempogrid command tree.
func newRootCommand(s streams) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "tempogrid",
		Short:         "Plan and live-replan time-bound programs under resource limits",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetIn(s.in)
	root.SetOut(s.out)
	root.SetErr(s.err)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Logging level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log output format: text or json")
	flags.StringVarP(&opts.output, "output", "o", app.OutputTable, "Schedule output format: table or json")
	flags.StringToStringVar(&opts.vars, "var", nil, "HCL input variable (name=value), repeatable")
	flags.BoolVar(&opts.clamp, "clamp", true, "Clamp out-of-range confirmations into the step's bounds; --clamp=false takes them as reported")

	root.AddCommand(newPlanCommand(opts, s))
	root.AddCommand(newValidateCommand(opts, s))
	root.AddCommand(newLiveCommand(opts, s))
	root.AddCommand(newReplayCommand(opts, s))
	return root
}

// config resolves the effective configuration: defaults, then the config
// file, then positional paths and any flag set explicitly.
func (o *rootOptions) config(cmd *cobra.Command, paths []string, apply func(*app.Config)) (*app.Config, error) {
	cfg := app.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = app.LoadConfigFile(o.configPath, cfg); err != nil {
			return nil, usageError(err)
		}
	}

	if len(paths) > 0 {
		cfg.Paths = paths
	}
	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if changed("output") {
		cfg.Output = o.output
	}
	if changed("clamp") {
		cfg.ClampConfirmations = o.clamp
	}
	if len(o.vars) > 0 {
		if cfg.Vars == nil {
			cfg.Vars = make(map[string]string, len(o.vars))
		}
		for k, v := range o.vars {
			cfg.Vars[k] = v
		}
	}
	if apply != nil {
		apply(&cfg)
	}

	valid, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	slog.Debug("CLI configuration resolved.", "config", fmt.Sprintf("%+v", *valid))
	return valid, nil
}

func newApp(s streams, cfg *app.Config) *app.App {
	return app.NewApp(s.out, s.err, s.in, cfg)
}
