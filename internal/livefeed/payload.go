package livefeed

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/specialistvlad/tempogrid/internal/program"
	"github.com/specialistvlad/tempogrid/internal/scheduler"
	"github.com/specialistvlad/tempogrid/internal/session"
)

// confirmationPayload is the wire form of a step-done confirmation.
type confirmationPayload struct {
	TriggerName    string   `json:"triggerName"`
	ElapsedSeconds *float64 `json:"elapsedSeconds"`
}

// startPayload is the wire form of a start signal.
type startPayload struct {
	StartSeconds *float64 `json:"startSeconds"`
}

// decodeFirst re-encodes the first socket.io argument into out. Arguments
// arrive as whatever the transport's JSON parser produced, usually
// map[string]any, or as raw JSON text.
func decodeFirst(out any, data ...any) error {
	if len(data) == 0 || data[0] == nil {
		return ErrEmptyPayload
	}
	var raw []byte
	switch v := data[0].(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		raw = b
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// DecodeConfirmation turns a {triggerName, elapsedSeconds} payload into a
// Confirmation. Range checks are left to the scheduler, which reports them
// as warnings.
func DecodeConfirmation(data ...any) (scheduler.Confirmation, error) {
	var p confirmationPayload
	if err := decodeFirst(&p, data...); err != nil {
		return scheduler.Confirmation{}, err
	}
	if p.TriggerName == "" {
		return scheduler.Confirmation{}, fmt.Errorf("%w: triggerName is required", ErrInvalidPayload)
	}
	if p.ElapsedSeconds == nil || !finite(*p.ElapsedSeconds) {
		return scheduler.Confirmation{}, fmt.Errorf("%w: elapsedSeconds must be a number", ErrInvalidPayload)
	}
	return scheduler.Confirmation{
		TriggerName: p.TriggerName,
		Elapsed:     program.Seconds(*p.ElapsedSeconds),
	}, nil
}

// DecodeStart turns a {startSeconds} payload into a StartSignal. A missing
// startSeconds starts the program at the epoch.
func DecodeStart(data ...any) (scheduler.StartSignal, error) {
	var p startPayload
	if len(data) == 0 || data[0] == nil {
		return scheduler.StartSignal{}, nil
	}
	if err := decodeFirst(&p, data...); err != nil {
		return scheduler.StartSignal{}, err
	}
	if p.StartSeconds == nil {
		return scheduler.StartSignal{}, nil
	}
	if !finite(*p.StartSeconds) || *p.StartSeconds < 0 {
		return scheduler.StartSignal{}, fmt.Errorf("%w: startSeconds must be a non-negative number", ErrInvalidPayload)
	}
	return scheduler.StartSignal{At: program.Seconds(*p.StartSeconds)}, nil
}

// DecodeEvent decodes a payload of either kind: an object carrying
// triggerName is a confirmation, anything else a start signal.
func DecodeEvent(data ...any) (scheduler.Event, error) {
	var shape struct {
		TriggerName *string `json:"triggerName"`
	}
	if err := decodeFirst(&shape, data...); err != nil {
		return nil, err
	}
	if shape.TriggerName != nil {
		return DecodeConfirmation(data...)
	}
	return DecodeStart(data...)
}

// SchedulePayload is the outbound form of a snapshot: the schedule document
// as a plain JSON object plus the snapshot version.
func SchedulePayload(snap session.Snapshot) (map[string]any, error) {
	raw, err := json.Marshal(snap.Schedule.Document())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schedule: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
	}
	payload["version"] = snap.Version
	return payload, nil
}
