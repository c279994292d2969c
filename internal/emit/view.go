package emit

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/leapstack-labs/leapview/pkg/schema"
)

// RuntimeModule is the module generated code imports its runtime from.
const RuntimeModule = "@leapview/runtime"

// interfaceView is the template model of one interface. Declarations are
// rendered here, one string per declaration including its trailing newline,
// so templates only lay out the file scaffold.
type interfaceView struct {
	Runtime   string
	Name      string
	Lookup    string
	WebPath   string
	Theme     string
	TypeName  string
	RefreshMs int

	SliceTypes []string
	StepTypes  []string
	FieldDecls []string
	Defaults   []string
	Methods    []string
	TypeImport string
	Imports    []string

	steps    []stepView
	guidance []core.GuidanceGroup
}

// PageDataName is the name of the page data interface.
func (v *interfaceView) PageDataName() string { return v.TypeName + "PageData" }

// DefaultsName is the name of the page data default constant.
func (v *interfaceView) DefaultsName() string { return "default" + v.TypeName + "PageData" }

type stepView struct {
	ID         string
	SliceKey   string
	ActionKey  string
	ResultName string
	Doc        string
	Notes      []string

	ResultType string
	InputType  string

	AutoExecute       bool
	IncludeInResponse bool
	InputExpression   string
	Client            bool
}

// buildView assembles the template model.
func buildView(in Input) *interfaceView {
	node := in.Node
	v := &interfaceView{
		Runtime:  RuntimeModule,
		Name:     node.Name,
		Lookup:   node.Lookup,
		WebPath:  node.WebPath,
		TypeName: schema.Pascal(firstNonEmpty(node.Lookup, node.Name, node.ID)),
		guidance: node.Guidance,
	}
	if in.Settings != nil {
		v.Theme = in.Settings.Theme
		v.RefreshMs = max(in.Settings.RefreshMs, 0)
	}

	sliceTypes := make(map[string]string)
	for _, s := range in.Slices.Sorted() {
		if s.Schema == nil {
			continue
		}
		name := schema.Pascal(s.Key) + "Data"
		sliceTypes[s.Key] = name
		v.SliceTypes = append(v.SliceTypes, typeDecl(name, firstNonEmpty(s.Description, s.Label), schema.TypeBlock(schema.Parse(s.Schema), 0)))
	}

	var typeImports []string
	used := make(map[string]bool)
	for _, step := range in.Plan {
		sv, output := buildStep(step, in.Slices[step.SliceKey], sliceTypes)
		v.steps = append(v.steps, sv)

		v.StepTypes = append(v.StepTypes, typeDecl(resultTypeName(sv.ResultName), sv.Doc, sv.ResultType))
		typeImports = append(typeImports, resultTypeName(sv.ResultName))
		if sv.InputType != "" {
			v.StepTypes = append(v.StepTypes, typeDecl(inputTypeName(sv.ResultName), "", sv.InputType))
			typeImports = append(typeImports, inputTypeName(sv.ResultName))
		}
		v.Methods = append(v.Methods, serviceMethod(sv))

		if step.IncludeInResponse {
			used[step.ResultName] = true
			v.addField(step.ResultName, sv.Doc, resultTypeName(sv.ResultName), output)
		}
	}
	if len(typeImports) > 0 {
		v.TypeImport = "import type { " + strings.Join(typeImports, ", ") + ` } from "./types";` + "\n"
	}

	for _, f := range node.PageData {
		name := strings.TrimSpace(f.Name)
		if name == "" || used[name] {
			continue
		}
		used[name] = true
		n := schema.Parse(f.Schema)
		v.addField(name, n.Info().Description, schema.TypeBlock(n, 1), n)
	}

	for _, imp := range node.Details.Imports {
		if line := importLine(imp); line != "" {
			v.Imports = append(v.Imports, line)
		}
	}
	return v
}

func buildStep(step core.HandlerPlanStep, s *core.GeneratedDataSlice, sliceTypes map[string]string) (stepView, schema.Node) {
	var a *core.Action
	if s != nil {
		a, _ = s.Action(step.ActionKey)
	}
	sv := stepView{
		ID:                step.ID,
		SliceKey:          step.SliceKey,
		ActionKey:         step.ActionKey,
		ResultName:        step.ResultName,
		Doc:               joinNonEmpty(" / ", step.SliceLabel, step.ActionLabel),
		Notes:             splitLines(step.Notes),
		AutoExecute:       step.AutoExecute,
		IncludeInResponse: step.IncludeInResponse,
		InputExpression:   strings.TrimSpace(step.InputExpression),
		ResultType:        "unknown",
	}

	var output schema.Node = &schema.Unknown{}
	switch {
	case a != nil && a.Output != nil:
		output = schema.Parse(a.Output)
		sv.ResultType = schema.TypeBlock(output, 0)
	case s != nil && s.Schema != nil:
		output = schema.Parse(s.Schema)
		sv.ResultType = sliceTypes[s.Key]
	}
	if a != nil {
		if a.Input != nil {
			sv.InputType = schema.TypeBlock(schema.Parse(a.Input), 0)
		}
		sv.Client = core.SurfacesForMode(a.Mode()).Client
	}
	return sv, output
}

func (v *interfaceView) addField(name, doc, typ string, n schema.Node) {
	prop := schema.PropertyName(name)
	def := schema.DefaultLiteral(n, 1)
	var b strings.Builder
	if doc != "" {
		b.WriteString(indentUnit + schema.DocComment(doc) + "\n")
	}
	if def == "undefined" {
		b.WriteString(indentUnit + prop + "?: " + typ + ";\n")
	} else {
		b.WriteString(indentUnit + prop + ": " + typ + ";\n")
		v.Defaults = append(v.Defaults, indentUnit+prop+": "+def+",\n")
	}
	v.FieldDecls = append(v.FieldDecls, b.String())
}

// clientSteps returns the steps the client wrapper re-runs on refresh. Steps
// with an input expression depend on handler context and are left out.
func (v *interfaceView) clientSteps() []stepView {
	var out []stepView
	for _, s := range v.steps {
		if s.Client && s.AutoExecute && s.IncludeInResponse && s.InputExpression == "" {
			out = append(out, s)
		}
	}
	return out
}

const indentUnit = "  "

func typeDecl(name, doc, expr string) string {
	var b strings.Builder
	if doc != "" {
		b.WriteString(schema.DocComment(doc) + "\n")
	}
	b.WriteString("export type " + name + " = " + expr + ";\n")
	return b.String()
}

func serviceMethod(s stepView) string {
	input := "unknown"
	if s.InputType != "" {
		input = inputTypeName(s.ResultName)
	}
	in4, in6, in8 := strings.Repeat(indentUnit, 2), strings.Repeat(indentUnit, 3), strings.Repeat(indentUnit, 4)
	var b strings.Builder
	if s.Doc != "" {
		b.WriteString(in4 + schema.DocComment(s.Doc) + "\n")
	}
	b.WriteString(in4 + schema.PropertyName(s.ResultName) + ": (input?: " + input + ") =>\n")
	b.WriteString(in6 + "invoke<" + resultTypeName(s.ResultName) + ">(\n")
	b.WriteString(in8 + "{\n")
	for _, kv := range [][2]string{
		{"sliceKey", jsString(s.SliceKey)},
		{"actionKey", jsString(s.ActionKey)},
		{"resultName", jsString(s.ResultName)},
		{"autoExecute", strconv.FormatBool(s.AutoExecute)},
		{"includeInResponse", strconv.FormatBool(s.IncludeInResponse)},
	} {
		b.WriteString(in8 + indentUnit + kv[0] + ": " + kv[1] + ",\n")
	}
	b.WriteString(in8 + "},\n")
	b.WriteString(in8 + "input,\n")
	b.WriteString(in6 + "),\n")
	return b.String()
}

// resultTypeName is the exported result type of a step.
func resultTypeName(resultName string) string {
	return schema.Pascal(resultName) + "Result"
}

// inputTypeName is the exported input type of a step.
func inputTypeName(resultName string) string {
	return schema.Pascal(resultName) + "Input"
}

// importLine renders one import entry as an ES import statement.
func importLine(imp core.ImportEntry) string {
	module := strings.TrimSpace(imp.Module)
	if module == "" {
		return ""
	}
	var clauses []string
	if imp.Default != "" && schema.IsIdentifier(imp.Default) {
		clauses = append(clauses, imp.Default)
	}
	var names []string
	for _, n := range imp.Names {
		n = strings.TrimSpace(n)
		if n != "" {
			names = append(names, n)
		}
	}
	if len(names) > 0 {
		clauses = append(clauses, "{ "+strings.Join(names, ", ")+" }")
	}
	if len(clauses) == 0 {
		return "import " + jsString(module) + ";"
	}
	return "import " + strings.Join(clauses, ", ") + " from " + jsString(module) + ";"
}

func jsString(s string) string {
	return schema.Quote(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, values ...string) string {
	var parts []string
	for _, v := range values {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}

func splitLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
