package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/specialistvlad/tempogrid/internal/app"
	"github.com/specialistvlad/tempogrid/internal/program"
	"github.com/specialistvlad/tempogrid/internal/scheduler"
	"github.com/spf13/cobra"
)

// pathArgs requires between least and most positional program paths. The
// lower bound is waived when a config file may provide them. most < 0 means
// unbounded.
func pathArgs(opts *rootOptions, least, most int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if most >= 0 && len(args) > most {
			return usageError(fmt.Errorf("accepts at most %d program path(s), received %d", most, len(args)))
		}
		if len(args) < least && opts.configPath == "" {
			return usageError(fmt.Errorf("requires at least %d program path(s)", least))
		}
		return nil
	}
}

func newPlanCommand(opts *rootOptions, s streams) *cobra.Command {
	var (
		confirms []string
		start    float64
	)
	cmd := &cobra.Command{
		Use:   "plan [PATH...]",
		Short: "Plan programs and print their schedules",
		Long: `Plan one or more program files (JSON, YAML or HCL) or directories of them.

Live events can be applied before printing: --start sends the start signal,
then each --confirm name=seconds is applied in the order given.`,
		Args: pathArgs(opts, 1, -1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd, args, nil)
			if err != nil {
				return err
			}

			var events []scheduler.Event
			if cmd.Flags().Changed("start") {
				if start < 0 || math.IsNaN(start) || math.IsInf(start, 0) {
					return usageError(fmt.Errorf("invalid --start %v: must be a non-negative number of seconds", start))
				}
				events = append(events, scheduler.StartSignal{At: program.Seconds(start)})
			}
			for _, raw := range confirms {
				c, err := parseConfirmation(raw)
				if err != nil {
					return usageError(err)
				}
				events = append(events, c)
			}

			return newApp(s, cfg).Plan(cmd.Context(), events)
		},
	}
	cmd.Flags().StringArrayVar(&confirms, "confirm", nil, "Confirmation (triggerName=elapsedSeconds), repeatable")
	cmd.Flags().Float64Var(&start, "start", 0, "Start signal time in seconds from the program epoch")
	return cmd
}

func newValidateCommand(opts *rootOptions, s streams) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [PATH...]",
		Short: "Validate programs and report every violation",
		Args:  pathArgs(opts, 1, -1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd, args, nil)
			if err != nil {
				return err
			}
			return newApp(s, cfg).Validate(cmd.Context())
		},
	}
}

func newLiveCommand(opts *rootOptions, s streams) *cobra.Command {
	var (
		journalPath     string
		feed            app.FeedConfig
		healthcheckPort int
	)
	cmd := &cobra.Command{
		Use:   "live [PATH]",
		Short: "Run a live session that replans on every confirmation",
		Long: `Plan a program and keep replanning it as live events arrive.

Events come from a socket.io feed when --feed-url is set, and otherwise from
stdin as one JSON object per line:

  {"triggerName": "eggs-done", "elapsedSeconds": 170}
  {"startSeconds": 0}`,
		Args: pathArgs(opts, 1, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			cfg, err := opts.config(cmd, args, func(c *app.Config) {
				if flags.Changed("journal") {
					c.JournalPath = journalPath
				}
				if flags.Changed("healthcheck-port") {
					c.HealthcheckPort = healthcheckPort
				}
				if flags.Changed("feed-url") {
					c.Feed.URL = feed.URL
				}
				if flags.Changed("namespace") {
					c.Feed.Namespace = feed.Namespace
				}
				if flags.Changed("confirm-event") {
					c.Feed.ConfirmEvent = feed.ConfirmEvent
				}
				if flags.Changed("start-event") {
					c.Feed.StartEvent = feed.StartEvent
				}
				if flags.Changed("schedule-event") {
					c.Feed.ScheduleEvent = feed.ScheduleEvent
				}
				if flags.Changed("insecure-skip-verify") {
					c.Feed.InsecureSkipVerify = feed.InsecureSkipVerify
				}
			})
			if err != nil {
				return err
			}
			return newApp(s, cfg).Live(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.StringVar(&journalPath, "journal", "", "SQLite journal file for applied events")
	f.IntVar(&healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	f.StringVar(&feed.URL, "feed-url", "", "socket.io server URL, e.g. http://localhost:3000/socket.io/")
	f.StringVar(&feed.Namespace, "namespace", "/", "socket.io namespace")
	f.StringVar(&feed.ConfirmEvent, "confirm-event", "confirm", "Inbound confirmation event name")
	f.StringVar(&feed.StartEvent, "start-event", "start", "Inbound start signal event name")
	f.StringVar(&feed.ScheduleEvent, "schedule-event", "schedule", "Outbound schedule event name")
	f.BoolVar(&feed.InsecureSkipVerify, "insecure-skip-verify", false, "Skip TLS certificate verification")
	return cmd
}

func newReplayCommand(opts *rootOptions, s streams) *cobra.Command {
	var journalPath string
	cmd := &cobra.Command{
		Use:   "replay [PATH]",
		Short: "Rebuild a live session from its journal and print the schedule",
		Args:  pathArgs(opts, 1, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd, args, func(c *app.Config) {
				if cmd.Flags().Changed("journal") {
					c.JournalPath = journalPath
				}
			})
			if err != nil {
				return err
			}
			return newApp(s, cfg).Replay(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&journalPath, "journal", "", "SQLite journal file to replay")
	return cmd
}

// parseConfirmation parses "triggerName=elapsedSeconds".
func parseConfirmation(raw string) (scheduler.Confirmation, error) {
	name, value, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return scheduler.Confirmation{}, fmt.Errorf("invalid --confirm %q: want triggerName=seconds", raw)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return scheduler.Confirmation{}, fmt.Errorf("invalid --confirm %q: %q is not a number of seconds", raw, value)
	}
	return scheduler.Confirmation{TriggerName: name, Elapsed: program.Seconds(seconds)}, nil
}
