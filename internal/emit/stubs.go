package emit

import (
	"strings"

	"github.com/leapstack-labs/leapview/pkg/schema"
)

// handlerStub generates the body of the loader: every auto-executing step is
// invoked in plan order and its result assigned when it belongs in the response.
func handlerStub(v *interfaceView) string {
	var b strings.Builder
	var manual []string
	for _, s := range v.steps {
		if !s.AutoExecute {
			manual = append(manual, s.ResultName)
			continue
		}
		if s.Doc != "" {
			b.WriteString(indentUnit + "// " + s.Doc + "\n")
		}
		for _, n := range s.Notes {
			b.WriteString(indentUnit + "// " + strings.TrimSpace(n) + "\n")
		}
		b.WriteString(indentUnit + "const " + s.ResultName + " = await services." + s.ResultName + "(" + s.InputExpression + ");\n")
		if s.IncludeInResponse {
			b.WriteString(indentUnit + "data." + s.ResultName + " = " + s.ResultName + ";\n")
		}
	}
	for _, name := range manual {
		b.WriteString(indentUnit + "// services." + name + "() is available but not auto-executed.\n")
	}
	if b.Len() == 0 {
		b.WriteString(indentUnit + "// No handler steps are planned for this interface.\n")
	}
	return b.String()
}

// pageStub generates a page body that lists guidance and dumps the data.
func pageStub(v *interfaceView) string {
	in := func(n int) string { return strings.Repeat(indentUnit, n) }
	var b strings.Builder
	b.WriteString(in(1) + "return (\n")
	if v.Theme != "" {
		b.WriteString(in(2) + `<main className="leapview-page" data-theme={` + jsString(v.Theme) + "}>\n")
	} else {
		b.WriteString(in(2) + `<main className="leapview-page">` + "\n")
	}
	b.WriteString(in(3) + "<h1>{" + jsString(firstNonEmpty(v.Name, v.Lookup)) + "}</h1>\n")
	for _, g := range v.guidance {
		b.WriteString(in(3) + "<section>\n")
		if g.Title != "" {
			b.WriteString(in(4) + "<h2>{" + jsString(g.Title) + "}</h2>\n")
		}
		if len(g.Messages) > 0 {
			b.WriteString(in(4) + "<ul>\n")
			for _, m := range g.Messages {
				b.WriteString(in(5) + "<li>{" + jsString(m) + "}</li>\n")
			}
			b.WriteString(in(4) + "</ul>\n")
		}
		b.WriteString(in(3) + "</section>\n")
	}
	b.WriteString(in(3) + "<pre>{JSON.stringify(data, null, 2)}</pre>\n")
	b.WriteString(in(2) + "</main>\n")
	b.WriteString(in(1) + ");\n")
	return b.String()
}

// refreshBody generates the client refresh callback body.
func refreshBody(v *interfaceView) string {
	steps := v.clientSteps()
	if len(steps) == 0 {
		return strings.Repeat(indentUnit, 2) + "// Nothing to refresh on the client.\n"
	}
	in2 := strings.Repeat(indentUnit, 2)
	var b strings.Builder
	for _, s := range steps {
		b.WriteString(in2 + "const " + s.ResultName + " = await services." + s.ResultName + "();\n")
	}
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, schema.PropertyName(s.ResultName))
	}
	b.WriteString(in2 + "setData((prev) => ({ ...prev, " + strings.Join(names, ", ") + " }));\n")
	return b.String()
}

// ensureTrailingNewline terminates a non-empty body with a newline so the
// scaffold suffix starts on its own line.
func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
