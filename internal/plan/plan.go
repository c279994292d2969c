// Package plan derives the handler plan: the ordered list of actions the
// generated server-side loader invokes.
//
// The base plan is computed from the slices. Reconciliation matches base steps
// against a previously edited plan by ID, keeping the user's edits and order,
// dropping steps whose action disappeared and appending new ones.
package plan

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapview/internal/surface"
	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/leapstack-labs/leapview/pkg/schema"
)

// Edit errors.
var (
	ErrUnknownStep         = errors.New("unknown plan step")
	ErrInvalidResultName   = errors.New("result name is not a usable identifier")
	ErrDuplicateResultName = errors.New("result name already used by another step")
)

// Eligible reports whether an action of s runs in the handler.
func Eligible(s *core.GeneratedDataSlice, a *core.Action) bool {
	if s.AccessMode.OrDefault() == core.AccessClient {
		return false
	}
	switch a.Mode() {
	case core.ModeServer, core.ModeBoth:
	default:
		return false
	}
	return surface.Possible(a, s.AccessMode).Handler
}

// BuildBase computes the base plan for slices: one step per handler-eligible
// action, ordered by slice key then action order.
func BuildBase(slices core.SliceMap) []core.HandlerPlanStep {
	var steps []core.HandlerPlanStep
	names := newNameSet()
	for _, s := range slices.Sorted() {
		for i := range s.Actions {
			a := &s.Actions[i]
			if !Eligible(s, a) {
				continue
			}
			steps = append(steps, core.HandlerPlanStep{
				ID:                core.StepID(s.Key, a.Key),
				SliceKey:          s.Key,
				ActionKey:         a.Key,
				SliceLabel:        s.Label,
				ActionLabel:       a.Label,
				InvocationType:    a.Type(),
				ResultName:        names.claim(s.Key, a.Key),
				AutoExecute:       true,
				IncludeInResponse: true,
			})
		}
	}
	return steps
}

// Reconcile merges a freshly computed base plan into the existing plan.
// Matched steps keep their editable fields and position and take structural
// fields from base. Unmatched existing steps are dropped; new base steps are
// appended in base order. New steps whose result name collides with a kept
// step are renamed.
func Reconcile(existing, base []core.HandlerPlanStep) []core.HandlerPlanStep {
	byID := make(map[string]core.HandlerPlanStep, len(base))
	for _, b := range base {
		byID[b.ID] = b
	}

	out := make([]core.HandlerPlanStep, 0, len(base))
	kept := make(map[string]bool, len(existing))
	names := newNameSet()
	for _, e := range existing {
		b, ok := byID[e.ID]
		if !ok || kept[e.ID] {
			continue
		}
		kept[e.ID] = true
		b.ResultName = e.ResultName
		b.InputExpression = e.InputExpression
		b.Notes = e.Notes
		b.AutoExecute = e.AutoExecute
		b.IncludeInResponse = e.IncludeInResponse
		if !validName(b.ResultName) {
			b.ResultName = ""
		} else {
			names.taken[b.ResultName] = true
		}
		out = append(out, b)
	}

	for _, b := range base {
		if kept[b.ID] {
			continue
		}
		if names.taken[b.ResultName] {
			b.ResultName = names.claim(b.SliceKey, b.ActionKey)
		} else {
			names.taken[b.ResultName] = true
		}
		out = append(out, b)
	}

	// Kept steps that lost an invalid name get a fresh one last, so they never
	// steal a name from a step that was valid.
	for i := range out {
		if out[i].ResultName == "" {
			out[i].ResultName = names.claim(out[i].SliceKey, out[i].ActionKey)
		}
	}
	return out
}

// Build computes the base plan for slices and reconciles it into existing.
func Build(slices core.SliceMap, existing []core.HandlerPlanStep) []core.HandlerPlanStep {
	return Reconcile(existing, BuildBase(slices))
}

// Equal compares plans by ID and every editable field, in order.
// Structural fields are ignored.
func Equal(a, b []core.HandlerPlanStep) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID ||
			x.ResultName != y.ResultName ||
			x.InputExpression != y.InputExpression ||
			x.Notes != y.Notes ||
			x.AutoExecute != y.AutoExecute ||
			x.IncludeInResponse != y.IncludeInResponse {
			return false
		}
	}
	return true
}

// StepEdit changes the editable fields of one step. Nil fields are unchanged.
type StepEdit struct {
	ResultName        *string `json:"result_name,omitempty"`
	InputExpression   *string `json:"input_expression,omitempty"`
	Notes             *string `json:"notes,omitempty"`
	AutoExecute       *bool   `json:"auto_execute,omitempty"`
	IncludeInResponse *bool   `json:"include_in_response,omitempty"`
}

// Edit returns a copy of steps with the edit applied to the step with id.
func Edit(steps []core.HandlerPlanStep, id string, edit StepEdit) ([]core.HandlerPlanStep, error) {
	idx := indexOf(steps, id)
	if idx < 0 {
		return steps, fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}

	out := append([]core.HandlerPlanStep(nil), steps...)
	step := &out[idx]
	if edit.ResultName != nil {
		name := *edit.ResultName
		if !validName(name) {
			return steps, fmt.Errorf("%w: %q", ErrInvalidResultName, name)
		}
		for i, s := range out {
			if i != idx && s.ResultName == name {
				return steps, fmt.Errorf("%w: %q", ErrDuplicateResultName, name)
			}
		}
		step.ResultName = name
	}
	if edit.InputExpression != nil {
		step.InputExpression = *edit.InputExpression
	}
	if edit.Notes != nil {
		step.Notes = *edit.Notes
	}
	if edit.AutoExecute != nil {
		step.AutoExecute = *edit.AutoExecute
	}
	if edit.IncludeInResponse != nil {
		step.IncludeInResponse = *edit.IncludeInResponse
	}
	return out, nil
}

// Move returns a copy of steps with the step with id moved to index to.
// to is clamped to the plan bounds.
func Move(steps []core.HandlerPlanStep, id string, to int) ([]core.HandlerPlanStep, error) {
	from := indexOf(steps, id)
	if from < 0 {
		return steps, fmt.Errorf("%w: %s", ErrUnknownStep, id)
	}
	to = max(0, min(to, len(steps)-1))

	step := steps[from]
	out := make([]core.HandlerPlanStep, 0, len(steps))
	out = append(out, steps[:from]...)
	out = append(out, steps[from+1:]...)
	out = append(out[:to], append([]core.HandlerPlanStep{step}, out[to:]...)...)
	return out, nil
}

func validName(name string) bool {
	return schema.IsIdentifier(name) && !schema.IsReserved(name)
}

func indexOf(steps []core.HandlerPlanStep, id string) int {
	for i, s := range steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// nameSet allocates unique result names.
type nameSet struct {
	taken map[string]bool
}

func newNameSet() *nameSet {
	return &nameSet{taken: make(map[string]bool)}
}

// claim returns the camel-cased action key, falling back to
// <sliceKey><Action> and then a numeric suffix on collision.
func (n *nameSet) claim(sliceKey, actionKey string) string {
	candidates := []string{
		schema.BindingName(actionKey),
		schema.LowerCamel(sliceKey) + schema.Pascal(actionKey),
	}
	for _, c := range candidates {
		if !n.taken[c] {
			n.taken[c] = true
			return c
		}
	}
	base := candidates[1]
	for i := 2; ; i++ {
		c := base + strconv.Itoa(i)
		if !n.taken[c] {
			n.taken[c] = true
			return c
		}
	}
}
