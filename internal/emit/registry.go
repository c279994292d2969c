package emit

import (
	"strconv"

	"github.com/leapstack-labs/leapview/pkg/schema"
)

// RegistryEntry wires one interface's page and loader behind its lookup key.
type RegistryEntry struct {
	ID      string `json:"id"`
	Lookup  string `json:"lookup"`
	WebPath string `json:"web_path,omitempty"`
}

type registryLine struct {
	RegistryEntry
	Dir       string
	PageIdent string
	LoadIdent string
}

// EmitRegistry renders the workspace registry. Entries keep the given order;
// callers pass them in dependency order.
func (e *Emitter) EmitRegistry(entries []RegistryEntry) (Artifact, error) {
	kept, _ := ClaimDirs(entries)
	taken := make(map[string]bool)
	lines := make([]registryLine, 0, len(kept))
	for _, en := range kept {
		base := uniqueIdent(schema.LowerCamel(en.Lookup), taken)
		lines = append(lines, registryLine{
			RegistryEntry: en,
			Dir:           Dir(en.Lookup),
			PageIdent:     base + "Page",
			LoadIdent:     base + "Load",
		})
	}

	content, err := render("registry.ts.tmpl", struct {
		Runtime string
		Entries []registryLine
	}{RuntimeModule, lines})
	if err != nil {
		return Artifact{}, err
	}
	e.logger.Debug("emitted registry", "entries", len(lines))
	return Artifact{Path: RegistryPath, Content: content}, nil
}

// DirConflict is an entry whose artifact directory already belongs to an
// earlier entry.
type DirConflict struct {
	Dir   string
	Entry RegistryEntry
	Owner RegistryEntry
}

// ClaimDirs gives each artifact directory to the first entry mapping to it.
// Later entries for the same interface are dropped; later entries of other
// interfaces are dropped and reported.
func ClaimDirs(entries []RegistryEntry) (kept []RegistryEntry, conflicts []DirConflict) {
	owners := make(map[string]RegistryEntry, len(entries))
	for _, en := range entries {
		dir := Dir(en.Lookup)
		if owner, ok := owners[dir]; ok {
			if owner.ID != en.ID {
				conflicts = append(conflicts, DirConflict{Dir: dir, Entry: en, Owner: owner})
			}
			continue
		}
		owners[dir] = en
		kept = append(kept, en)
	}
	return kept, conflicts
}

func uniqueIdent(base string, taken map[string]bool) string {
	name := base
	for i := 2; taken[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	taken[name] = true
	return name
}
