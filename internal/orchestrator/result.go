package orchestrator

import (
	"encoding/json"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/core/domain"
)

// Outcome is the result of one collaborator step.
type Outcome struct {
	System domain.Service
	Label  string
	Err    *apperr.AppError
}

func (o Outcome) OK() bool { return o.Err == nil }

func (o Outcome) message() string {
	return o.Label + " falhou: " + o.Err.Message
}

// policy decides Success from the primary outcomes.
type policy int

const (
	// requireAll fails the action when any primary step fails.
	requireAll policy = iota
	// requireAny succeeds when at least one primary step succeeds.
	requireAny
)

// Result is returned by every orchestrator action. Primary failures make the action
// fail and are reported as errors; secondary failures are reported as warnings only.
type Result[T any] struct {
	Success   bool
	Data      T
	Primary   []Outcome
	Secondary []Outcome
	// Err is set when a precondition failed before any primary step ran.
	Err *apperr.AppError
}

func (r *Result[T]) primary(o Outcome) { r.Primary = append(r.Primary, o) }
func (r *Result[T]) secondary(o Outcome) { r.Secondary = append(r.Secondary, o) }

func (r *Result[T]) settle(p policy) {
	if r.Err != nil || len(r.Primary) == 0 {
		r.Success = false
		return
	}
	switch p {
	case requireAny:
		r.Success = false
		for _, o := range r.Primary {
			if o.OK() {
				r.Success = true
				break
			}
		}
	default:
		r.Success = true
		for _, o := range r.Primary {
			if !o.OK() {
				r.Success = false
				break
			}
		}
	}
}

// Errors lists the failed primary steps.
func (r Result[T]) Errors() []string {
	var out []string
	if r.Err != nil {
		out = append(out, r.Err.Message)
	}
	for _, o := range r.Primary {
		if !o.OK() {
			out = append(out, o.message())
		}
	}
	return out
}

// Warnings lists the failed secondary steps.
func (r Result[T]) Warnings() []string {
	var out []string
	for _, o := range r.Secondary {
		if !o.OK() {
			out = append(out, o.message())
		}
	}
	return out
}

// SyncedSystems lists, in order, the collaborators whose primary step succeeded.
// Bookkeeping steps are not counted.
func (r Result[T]) SyncedSystems() []string {
	seen := make(map[domain.Service]bool)
	out := []string{}
	for _, o := range r.Primary {
		if o.OK() && !seen[o.System] {
			seen[o.System] = true
			out = append(out, string(o.System))
		}
	}
	return out
}

// RequiresReauth reports whether any failure calls for a new login.
func (r Result[T]) RequiresReauth() bool {
	if r.Err != nil && r.Err.RequiresReauth() {
		return true
	}
	for _, o := range r.Primary {
		if !o.OK() && o.Err.RequiresReauth() {
			return true
		}
	}
	return false
}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	type outcomeJSON struct {
		System string `json:"system"`
		Step   string `json:"step"`
		OK     bool   `json:"ok"`
		Type   string `json:"type,omitempty"`
	}
	steps := func(in []Outcome) []outcomeJSON {
		out := make([]outcomeJSON, 0, len(in))
		for _, o := range in {
			j := outcomeJSON{System: string(o.System), Step: o.Label, OK: o.OK()}
			if o.Err != nil {
				j.Type = string(o.Err.Kind)
			}
			out = append(out, j)
		}
		return out
	}
	return json.Marshal(struct {
		Success        bool          `json:"success"`
		Data           T             `json:"data"`
		SyncedSystems  []string      `json:"synced_systems"`
		Errors         []string      `json:"errors,omitempty"`
		Warnings       []string      `json:"warnings,omitempty"`
		RequiresReauth bool          `json:"requires_reauth,omitempty"`
		Primary        []outcomeJSON `json:"primary"`
		Secondary      []outcomeJSON `json:"secondary"`
	}{
		Success:        r.Success,
		Data:           r.Data,
		SyncedSystems:  r.SyncedSystems(),
		Errors:         r.Errors(),
		Warnings:       r.Warnings(),
		RequiresReauth: r.RequiresReauth(),
		Primary:        steps(r.Primary),
		Secondary:      steps(r.Secondary),
	})
}
