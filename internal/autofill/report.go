// File: internal/autofill/report.go
package autofill

import (
	"time"

	"github.com/xkilldash9x/guestpass/internal/config"
	"github.com/xkilldash9x/guestpass/internal/dom"
)

// State is a step of the run state machine.
type State string

const (
	StateStart          State = "START"
	StateNavigated      State = "NAVIGATED"
	StateDOBFilled      State = "DOB_FILLED"
	StateFieldsFilled   State = "FIELDS_FILLED"
	StateGenderResolved State = "GENDER_RESOLVED"
	StateGoalResolved   State = "GOAL_RESOLVED"
	StateActionClicked  State = "ACTION_CLICKED"
	StateConsentSwept   State = "CONSENT_SWEPT"
	StateDone           State = "DONE"
)

// Outcome describes what happened to one field.
type Outcome string

const (
	OutcomeFilled     Outcome = "filled"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeFillFailed Outcome = "fill_failed"
	OutcomeResolved   Outcome = "resolved"
	OutcomeUnresolved Outcome = "unresolved"
)

// FieldResult is the outcome for one semantic field.
type FieldResult struct {
	Field   config.FieldKey `json:"field"`
	Outcome Outcome         `json:"outcome"`
	// Element is a human readable identifier of the matched element, if any.
	Element string `json:"element,omitempty"`
	// Keyword is the keyword set that resolved a radio group or dropdown.
	Keyword string `json:"keyword,omitempty"`
}

// ActionResult records the Next/Submit step.
type ActionResult struct {
	Found   bool   `json:"found"`
	Clicked bool   `json:"clicked"`
	Caption string `json:"caption,omitempty"`
}

// Report is the structured result of a run.
type Report struct {
	Target     string           `json:"target"`
	States     []State          `json:"states"`
	Fields     []FieldResult    `json:"fields"`
	Action     ActionResult     `json:"action"`
	Consent    *dom.SweepResult `json:"consent,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Duration   string           `json:"duration"`
	Error      string           `json:"error,omitempty"`
}

func newReport(target string, now time.Time) *Report {
	return &Report{
		Target:    target,
		States:    []State{StateStart},
		StartedAt: now,
	}
}

func (r *Report) advance(s State) {
	r.States = append(r.States, s)
}

func (r *Report) record(res FieldResult) {
	r.Fields = append(r.Fields, res)
}

func (r *Report) finish(now time.Time, err error) {
	r.FinishedAt = now
	r.Duration = now.Sub(r.StartedAt).Round(time.Millisecond).String()
	if err != nil {
		r.Error = err.Error()
	}
}

// Field returns the result recorded for key.
func (r *Report) Field(key config.FieldKey) (FieldResult, bool) {
	for _, f := range r.Fields {
		if f.Field == key {
			return f, true
		}
	}
	return FieldResult{}, false
}

// Reached reports whether the run passed through s.
func (r *Report) Reached(s State) bool {
	for _, st := range r.States {
		if st == s {
			return true
		}
	}
	return false
}

// Counts tallies field outcomes.
func (r *Report) Counts() map[Outcome]int {
	out := make(map[Outcome]int)
	for _, f := range r.Fields {
		out[f.Outcome]++
	}
	return out
}
