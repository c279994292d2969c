package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapview/pkg/core"
)

func dcAction(key string, mode core.InvocationMode) core.Action {
	return core.Action{Key: key, Label: key, Invocation: &core.Invocation{Type: "dataConnection", Mode: mode}}
}

func testSlices() core.SliceMap {
	return core.SliceMap{
		"orders": {
			Key: "orders", Label: "Orders", AccessMode: core.AccessBoth,
			Actions: []core.Action{dcAction("fetchLatest", core.ModeServer), dcAction("fetchHistory", core.ModeServer)},
		},
		"ticks": {
			Key: "ticks", Label: "Ticks", AccessMode: core.AccessServer,
			Actions: []core.Action{dcAction("fetchLatest", core.ModeServer), dcAction("purge", core.ModeDisabled)},
		},
		"browser": {
			Key: "browser", Label: "Browser", AccessMode: core.AccessClient,
			Actions: []core.Action{{Key: "poke", Invocation: &core.Invocation{Mode: core.ModeBoth}}},
		},
		"report": {
			Key: "report", Label: "Report", AccessMode: core.AccessBoth,
			Actions: []core.Action{
				{Key: "run", Invocation: &core.Invocation{Type: "warmQuery", Mode: core.ModeBoth}},
				{Key: "default", Invocation: &core.Invocation{Mode: core.ModeBoth}},
			},
		},
	}
}

func ids(steps []core.HandlerPlanStep) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.ID)
	}
	return out
}

func TestBuildBase(t *testing.T) {
	steps := BuildBase(testSlices())

	assert.Equal(t, []string{
		"orders:fetchLatest",
		"orders:fetchHistory",
		"report:default",
		"ticks:fetchLatest",
	}, ids(steps))

	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.ResultName)
		assert.True(t, s.AutoExecute)
		assert.True(t, s.IncludeInResponse)
		assert.Empty(t, s.Notes)
	}
	assert.Equal(t, []string{"fetchLatest", "fetchHistory", "defaultResult", "ticksFetchLatest"}, names)
	assert.Equal(t, "Orders", steps[0].SliceLabel)
	assert.Equal(t, "dataConnection", steps[0].InvocationType)
}

func TestReconcile_PreservesEdits(t *testing.T) {
	base := BuildBase(testSlices())
	edited, err := Edit(base, "orders:fetchHistory", StepEdit{
		Notes:       ptr("only last week"),
		AutoExecute: ptr(false),
		ResultName:  ptr("history"),
	})
	require.NoError(t, err)

	got := Reconcile(edited, base)
	assert.True(t, Equal(edited, got))
	assert.Equal(t, "only last week", got[1].Notes)
	assert.Equal(t, "history", got[1].ResultName)
	assert.False(t, got[1].AutoExecute)
}

func TestReconcile_OrderDropAppend(t *testing.T) {
	slices := testSlices()
	existing := BuildBase(slices)
	existing, err := Move(existing, "ticks:fetchLatest", 0)
	require.NoError(t, err)

	slices["orders"].Actions = slices["orders"].Actions[:1]
	slices["ticks"].Actions[1].Invocation.Mode = core.ModeServer
	slices["orders"].Label = "All orders"

	got := Build(slices, existing)
	assert.Equal(t, []string{
		"ticks:fetchLatest",
		"orders:fetchLatest",
		"report:default",
		"ticks:purge",
	}, ids(got))
	assert.Equal(t, "All orders", got[1].SliceLabel, "structural fields refresh")
	assert.Equal(t, "ticksFetchLatest", got[0].ResultName)
	assert.Equal(t, "purge", got[3].ResultName)
}

func TestReconcile_RenamesCollidingNewSteps(t *testing.T) {
	existing := []core.HandlerPlanStep{{ID: "a:x", SliceKey: "a", ActionKey: "x", ResultName: "load"}}
	base := []core.HandlerPlanStep{
		{ID: "a:x", SliceKey: "a", ActionKey: "x", ResultName: "x"},
		{ID: "b:load", SliceKey: "b", ActionKey: "load", ResultName: "load"},
	}
	got := Reconcile(existing, base)
	require.Len(t, got, 2)
	assert.Equal(t, "load", got[0].ResultName)
	assert.Equal(t, "bLoad", got[1].ResultName)
}

func TestReconcile_ReplacesInvalidNames(t *testing.T) {
	existing := []core.HandlerPlanStep{{ID: "a:x", SliceKey: "a", ActionKey: "x", ResultName: "not valid"}}
	base := []core.HandlerPlanStep{{ID: "a:x", SliceKey: "a", ActionKey: "x", ResultName: "x"}}
	got := Reconcile(existing, base)
	assert.Equal(t, "x", got[0].ResultName)
}

func TestEqual(t *testing.T) {
	a := BuildBase(testSlices())
	b := BuildBase(testSlices())
	assert.True(t, Equal(a, b))

	b[0].SliceLabel = "changed"
	assert.True(t, Equal(a, b), "structural fields are ignored")

	b[0].InputExpression = "{ limit: 10 }"
	assert.False(t, Equal(a, b))

	assert.False(t, Equal(a, a[1:]))
	swapped := append([]core.HandlerPlanStep{a[1], a[0]}, a[2:]...)
	assert.False(t, Equal(a, swapped), "order matters")
}

func TestEdit_Errors(t *testing.T) {
	steps := BuildBase(testSlices())

	_, err := Edit(steps, "nope", StepEdit{})
	assert.ErrorIs(t, err, ErrUnknownStep)

	_, err = Edit(steps, "orders:fetchLatest", StepEdit{ResultName: ptr("1abc")})
	assert.ErrorIs(t, err, ErrInvalidResultName)

	_, err = Edit(steps, "orders:fetchLatest", StepEdit{ResultName: ptr("fetchHistory")})
	assert.ErrorIs(t, err, ErrDuplicateResultName)

	out, err := Edit(steps, "orders:fetchLatest", StepEdit{InputExpression: ptr("input.range")})
	require.NoError(t, err)
	assert.Equal(t, "input.range", out[0].InputExpression)
	assert.Empty(t, steps[0].InputExpression, "input plan not mutated")
}

func TestMove(t *testing.T) {
	steps := BuildBase(testSlices())

	out, err := Move(steps, "orders:fetchLatest", 99)
	require.NoError(t, err)
	assert.Equal(t, "orders:fetchLatest", out[len(out)-1].ID)
	assert.Equal(t, "orders:fetchLatest", steps[0].ID, "input plan not mutated")

	out, err = Move(steps, "ticks:fetchLatest", -3)
	require.NoError(t, err)
	assert.Equal(t, "ticks:fetchLatest", out[0].ID)
	assert.Len(t, out, len(steps))

	_, err = Move(steps, "missing", 0)
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func ptr[T any](v T) *T { return &v }
