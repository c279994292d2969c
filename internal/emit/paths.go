package emit

import (
	"path"
	"strings"
	"unicode"
)

// Root is the virtual directory every artifact lives under.
const Root = "interfaces"

// RegistryPath is the virtual path of the workspace registry.
var RegistryPath = path.Join(Root, "registry.ts")

// Artifact file names inside an interface directory.
const (
	FileTypes    = "types.ts"
	FileServices = "services.ts"
	FileModule   = "module.tsx"
	FileIndex    = "index.tsx"
	FileHandler  = "handler.ts"
)

// Dir returns the directory segment for an interface lookup: lower-cased,
// with anything outside [a-z0-9_-] replaced by '-'.
func Dir(lookup string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(lookup)) {
		switch {
		case r == '-' || r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))):
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	dir := strings.Trim(b.String(), "-")
	if dir == "" {
		return "interface"
	}
	return dir
}

// ArtifactPath returns the virtual path of one artifact of an interface.
func ArtifactPath(lookup, file string) string {
	return path.Join(Root, Dir(lookup), file)
}
