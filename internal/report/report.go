// Package report renders schedules and validation failures for terminals.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/specialistvlad/tempogrid/internal/schedule"
	"github.com/specialistvlad/tempogrid/internal/validate"
)

func formatTime(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}

// Schedule writes a human-readable rendering of sc to w.
func Schedule(w io.Writer, sc *schedule.Schedule) error {
	p := sc.Program
	var b strings.Builder

	b.WriteString(boldStyle.Render(p.Name) + " " + mutedStyle.Render("("+p.ID+")") + "\n")
	var actors, started string
	if p.Actors > 0 {
		actors = strconv.Itoa(p.Actors)
	}
	if sc.StartedAt != nil {
		started = formatTime(*sc.StartedAt)
	}
	b.WriteString(keyValues("  ",
		pair{"description", p.Description},
		pair{"version", p.Version},
		pair{"environment", p.EnvironmentType},
		pair{"actors", actors},
		pair{"started at", started},
		pair{"makespan", formatTime(sc.Makespan())},
	))
	b.WriteString("\n")

	rows := make([][]string, 0, len(p.Steps()))
	for _, e := range sc.Entries() {
		start, end := "-", "-"
		if e.Scheduled {
			start, end = formatTime(e.PlannedStart), formatTime(e.PlannedEnd)
		}
		var flags []string
		if e.Provisional {
			flags = append(flags, "provisional")
		}
		if e.Confirmed {
			flags = append(flags, "confirmed")
		}
		if e.WaitedOn != "" {
			flags = append(flags, "waited on "+e.WaitedOn)
		}
		rows = append(rows, []string{e.Step.ID, e.TrackID, e.Step.Task, start, end, e.State.String(), strings.Join(flags, ", ")})
	}
	b.WriteString(renderTable([]string{"STEP", "TRACK", "TASK", "START", "END", "STATE", "NOTES"}, rows))
	b.WriteString("\n\n")

	path := sc.CriticalPath()
	if len(path.Steps) > 0 {
		b.WriteString(accentStyle.Render("critical path") + " " + strings.Join(path.Steps, " -> ") +
			mutedStyle.Render(fmt.Sprintf(" (%s)", formatTime(path.Length()))) + "\n\n")
	}

	if us := sc.Utilization(); len(us) > 0 {
		urows := make([][]string, 0, len(us))
		for _, u := range us {
			status := successStyle.Render("ok")
			if u.Exceeded() {
				status = errorStyle.Render("exceeded")
			}
			urows = append(urows, []string{u.Task, strconv.Itoa(u.Peak), strconv.Itoa(u.Limit), strconv.Itoa(len(u.Intervals)), status})
		}
		b.WriteString(renderTable([]string{"TASK", "PEAK", "LIMIT", "HOLDS", "STATUS"}, urows))
		b.WriteString("\n")
	}

	for _, warning := range sc.Warnings {
		b.WriteString(warnMsg("%s", warning.String()) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Validation writes a rendering of err to w. Errors other than a
// *validate.Error are written as a single line.
func Validation(w io.Writer, source string, err error) error {
	var b strings.Builder
	var verr *validate.Error
	if !errors.As(err, &verr) {
		b.WriteString(errorMsg("%s: %v", source, err) + "\n")
	} else {
		b.WriteString(errorMsg("%s: program %q has %d violation(s)", source, verr.ProgramID, len(verr.Violations)) + "\n")
		rows := make([][]string, 0, len(verr.Violations))
		for _, v := range verr.Violations {
			rows = append(rows, []string{v.Kind.Error(), v.Path, v.Msg})
		}
		b.WriteString(renderTable([]string{"VIOLATION", "AT", "DETAIL"}, rows))
		b.WriteString("\n")
	}
	_, werr := io.WriteString(w, b.String())
	return werr
}

// Valid writes a one-line confirmation that source is valid.
func Valid(w io.Writer, source, programID string, steps int) error {
	_, err := fmt.Fprintln(w, successMsg("%s: program %q is valid (%d steps)", source, programID, steps))
	return err
}
