// Package progress carries scoring run transitions from the pipeline to progress subscribers.
package progress

import (
	"encoding/json"
	"time"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/grading"
)

// TypeState is the only event type a run publishes.
const TypeState = "state"

// Event is one state change of a run, as sent to subscribers.
type Event struct {
	Type       string              `json:"type"`
	RunID      string              `json:"runId"`
	State      grading.State       `json:"state"`
	Competency int                 `json:"competency,omitempty"`
	ReportID   string              `json:"reportId,omitempty"`
	Error      string              `json:"error,omitempty"`
	Kind       grading.FailureKind `json:"kind,omitempty"`
	Timestamp  int64               `json:"timestamp"`
}

// FromTransition converts a pipeline transition into an event.
func FromTransition(tr grading.Transition) Event {
	at := tr.At
	if at.IsZero() {
		at = time.Now()
	}
	return Event{
		Type:       TypeState,
		RunID:      tr.RunID,
		State:      tr.State,
		Competency: tr.Competency,
		Error:      tr.Error,
		Kind:       tr.Kind,
		Timestamp:  at.UnixMilli(),
	}
}

// Final reports whether no event follows e.
func (e Event) Final() bool {
	return e.State.Terminal()
}

func MarshalEvent(e Event) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func UnmarshalEvent(data string) (Event, error) {
	var e Event
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return Event{}, err
	}
	return e, nil
}
