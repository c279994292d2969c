// Package validate checks an interface draft before it is published and
// reports field-level problems to the editor.
//
// Validation never blocks compilation. An invalid interface still produces
// artifacts; the result only tells the editor which fields need attention.
package validate

import (
	"strings"

	"github.com/leapstack-labs/leapview/pkg/core"
)

// Field names reported in validation errors.
const (
	FieldName    = "name"
	FieldData    = "data"
	FieldWebPath = "web_path"
	FieldPage    = "page"
)

// Draft is the part of an interface that validation looks at.
type Draft struct {
	Node   *core.InterfaceNode
	Slices core.SliceMap
}

// Rule is one validation check.
type Rule struct {
	ID    string
	Field string
	Check func(d Draft) (message string, ok bool)
}

// Rules returns the built-in rules in reporting order.
func Rules() []Rule {
	return []Rule{
		{ID: "IV01", Field: FieldName, Check: checkName},
		{ID: "IV02", Field: FieldData, Check: checkData},
		{ID: "IV03", Field: FieldWebPath, Check: checkWebPath},
		{ID: "IV04", Field: FieldPage, Check: checkPage},
	}
}

// Validate runs every rule against the draft. Errors is never nil so the
// JSON form always carries an array.
func Validate(d Draft) core.ValidationResult {
	res := core.ValidationResult{Valid: true, Errors: []core.FieldError{}}
	if d.Node == nil {
		res.Valid = false
		res.Errors = append(res.Errors, core.FieldError{Field: FieldName, Message: "interface not found"})
		return res
	}
	for _, r := range Rules() {
		if msg, ok := r.Check(d); !ok {
			res.Valid = false
			res.Errors = append(res.Errors, core.FieldError{Field: r.Field, Message: msg})
		}
	}
	return res
}

func checkName(d Draft) (string, bool) {
	if strings.TrimSpace(d.Node.Name) == "" {
		return "Name is required", false
	}
	return "", true
}

// checkData requires at least one enabled slice or a custom page-data schema.
func checkData(d Draft) (string, bool) {
	if len(d.Node.PageData) > 0 || d.Slices.EnabledCount() > 0 {
		return "", true
	}
	return "Connect at least one data source or declare page data", false
}

func checkWebPath(d Draft) (string, bool) {
	p := strings.TrimSpace(d.Node.WebPath)
	switch {
	case p == "":
		return "Web path is required", false
	case !strings.HasPrefix(p, "/"):
		return "Web path must start with /", false
	}
	return "", true
}

func checkPage(d Draft) (string, bool) {
	if strings.TrimSpace(d.Node.Page.Value) != "" {
		return "", true
	}
	for _, g := range d.Node.Guidance {
		if strings.TrimSpace(g.Title) != "" {
			return "", true
		}
		for _, m := range g.Messages {
			if strings.TrimSpace(m) != "" {
				return "", true
			}
		}
	}
	return "Add page code or at least one guidance message", false
}
