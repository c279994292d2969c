package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/leapview/pkg/core"
)

func validDraft() Draft {
	return Draft{
		Node: &core.InterfaceNode{
			Name:    "Sales",
			WebPath: "/sales",
			Page:    core.Fragment{Value: "<main />"},
		},
		Slices: core.SliceMap{
			"orders": {Key: "orders", Actions: []core.Action{
				{Key: "fetchLatest", Invocation: &core.Invocation{Mode: core.ModeServer}},
			}},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Draft)
		fields []string
	}{
		{
			name:   "valid",
			mutate: func(*Draft) {},
		},
		{
			name:   "blank name",
			mutate: func(d *Draft) { d.Node.Name = "  " },
			fields: []string{FieldName},
		},
		{
			name:   "missing web path",
			mutate: func(d *Draft) { d.Node.WebPath = "" },
			fields: []string{FieldWebPath},
		},
		{
			name:   "relative web path",
			mutate: func(d *Draft) { d.Node.WebPath = "sales" },
			fields: []string{FieldWebPath},
		},
		{
			name: "only disabled actions",
			mutate: func(d *Draft) {
				d.Slices["orders"].Actions[0].Invocation.Mode = core.ModeDisabled
			},
			fields: []string{FieldData},
		},
		{
			name: "page data instead of slices",
			mutate: func(d *Draft) {
				d.Slices = nil
				d.Node.PageData = []core.PageDataField{{Name: "title"}}
			},
		},
		{
			name: "guidance instead of page code",
			mutate: func(d *Draft) {
				d.Node.Page = core.Fragment{}
				d.Node.Guidance = []core.GuidanceGroup{{Messages: []string{"", "Pick a chart"}}}
			},
		},
		{
			name: "no page content",
			mutate: func(d *Draft) {
				d.Node.Page = core.Fragment{Value: "\n  "}
				d.Node.Guidance = []core.GuidanceGroup{{Messages: []string{" "}}}
			},
			fields: []string{FieldPage},
		},
		{
			name: "everything missing",
			mutate: func(d *Draft) {
				*d.Node = core.InterfaceNode{}
				d.Slices = nil
			},
			fields: []string{FieldName, FieldData, FieldWebPath, FieldPage},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			res := Validate(d)

			var fields []string
			for _, e := range res.Errors {
				fields = append(fields, e.Field)
				assert.NotEmpty(t, e.Message)
			}
			assert.Equal(t, tt.fields, fields)
			assert.Equal(t, len(tt.fields) == 0, res.Valid)
			assert.NotNil(t, res.Errors)
		})
	}
}

func TestValidate_NilNode(t *testing.T) {
	res := Validate(Draft{})
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 1)
}

func TestRules_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, r := range Rules() {
		assert.False(t, seen[r.ID], "duplicate rule %s", r.ID)
		seen[r.ID] = true
	}
}
