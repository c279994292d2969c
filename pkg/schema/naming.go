package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// reservedWords cannot be used as binding names in generated code.
var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "enum": true, "export": true, "extends": true, "false": true,
	"finally": true, "for": true, "function": true, "if": true, "import": true,
	"in": true, "instanceof": true, "new": true, "null": true, "return": true,
	"super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true,
	"with": true, "yield": true, "let": true, "static": true, "await": true,
	"data": true, "services": true, "context": true,
}

// words splits s into words at non-alphanumeric runes and lower-to-upper transitions.
func words(s string) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if i > 0 && unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return out
}

// LowerCamel converts s to a lowerCamelCase identifier.
func LowerCamel(s string) string {
	parts := words(s)
	if len(parts) == 0 {
		return "value"
	}
	// Casers are stateful, so each call gets its own.
	title := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	b.WriteString(cases.Lower(language.Und).String(parts[0]))
	for _, p := range parts[1:] {
		b.WriteString(title.String(p))
	}
	return safeIdentifier(b.String())
}

// Pascal converts s to a PascalCase identifier.
func Pascal(s string) string {
	parts := words(s)
	if len(parts) == 0 {
		return "Value"
	}
	title := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(title.String(p))
	}
	return safeIdentifier(b.String())
}

// Title turns a lookup such as "daily_orders" into a display label
// ("Daily Orders").
func Title(s string) string {
	parts := words(s)
	title := cases.Title(language.Und)
	for i, p := range parts {
		parts[i] = title.String(p)
	}
	return strings.Join(parts, " ")
}

// BindingName returns a lowerCamel name that is safe as a local binding.
func BindingName(s string) string {
	name := LowerCamel(s)
	if reservedWords[name] {
		return name + "Result"
	}
	return name
}

// IsReserved reports whether name cannot be used as a binding in generated code.
func IsReserved(name string) bool {
	return reservedWords[name]
}

// IsIdentifier reports whether s is a valid plain identifier.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || r == '$' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// PropertyName renders s as an object property key, quoting it when needed.
func PropertyName(s string) string {
	if IsIdentifier(s) {
		return s
	}
	return Quote(s)
}

func safeIdentifier(s string) string {
	if s == "" {
		return "value"
	}
	if unicode.IsDigit([]rune(s)[0]) {
		return "_" + s
	}
	return s
}
