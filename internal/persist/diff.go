// Package persist turns interface state into minimal details patches and
// writes them through a debounced scheduler.
//
// Patches are computed as a structural diff against the last snapshot that was
// written successfully. A patch whose serialized form equals the last one sent
// is suppressed. A failed write changes nothing, so the same patch is
// considered again on the next cycle.
package persist

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapview/pkg/core"
)

// Diff returns the patch that turns last into current. Unchanged fields are
// left nil.
func Diff(last, current core.Details) core.DetailsPatch {
	var p core.DetailsPatch
	if !slices.EqualFunc(last.Imports, current.Imports, importEqual) {
		imports := slices.Clone(current.Imports)
		if imports == nil {
			imports = []core.ImportEntry{}
		}
		p.Imports = &imports
	}
	p.PageDataType = diffString(last.PageDataType, current.PageDataType)
	p.PageHandler = diffString(last.PageHandler, current.PageHandler)
	p.Page = diffString(last.Page, current.Page)
	p.HandlerGenerated = diffString(last.HandlerGenerated, current.HandlerGenerated)
	p.PageGenerated = diffString(last.PageGenerated, current.PageGenerated)
	return p
}

func diffString(last, current string) *string {
	if last == current {
		return nil
	}
	return &current
}

func importEqual(a, b core.ImportEntry) bool {
	return a.Module == b.Module &&
		a.Default == b.Default &&
		a.Status == b.Status &&
		a.Error == b.Error &&
		slices.Equal(a.Names, b.Names) &&
		slices.Equal(a.Exports, b.Exports)
}

// Serialize renders a patch in the canonical form used for duplicate
// suppression.
func Serialize(p core.DetailsPatch) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize patch: %w", err)
	}
	return data, nil
}

// Snapshot collects the persisted parts of an interface from its current
// state: imports, data-shape module and the two authored code blocks with
// the generated values they are compared against.
func Snapshot(imports []core.ImportEntry, pageDataType string, handler, page core.Fragment) core.Details {
	return core.Details{
		Imports:          slices.Clone(imports),
		PageDataType:     pageDataType,
		PageHandler:      handler.Value,
		Page:             page.Value,
		HandlerGenerated: handler.Generated,
		PageGenerated:    page.Generated,
	}
}
