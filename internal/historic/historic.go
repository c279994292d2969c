// Package historic normalizes historic-download and prefetch configuration of
// data-connection-backed slices.
//
// Normalization never fails. Invalid input is corrected to the nearest valid
// configuration, and a configuration with nothing left in it normalizes to nil.
// Normalize is idempotent.
package historic

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/leapstack-labs/leapview/pkg/core"
)

// DefaultFormats is used when historic download is allowed without formats.
var DefaultFormats = []string{core.FormatJSON}

var supportedFormats = map[string]bool{
	core.FormatJSON: true,
	core.FormatCSV:  true,
}

var supportedUnits = map[string]bool{
	core.UnitMinutes: true,
	core.UnitHours:   true,
	core.UnitDays:    true,
}

// Normalize returns the canonical form of f. The input is not modified.
func Normalize(f *core.DataConnectionFeatures) *core.DataConnectionFeatures {
	if f == nil {
		return nil
	}

	out := &core.DataConnectionFeatures{
		AllowHistoricDownload: f.AllowHistoricDownload,
	}
	if f.AllowHistoricDownload {
		out.HistoricDownloadFormats = NormalizeFormats(f.HistoricDownloadFormats)
		if len(out.HistoricDownloadFormats) == 0 {
			out.HistoricDownloadFormats = slices.Clone(DefaultFormats)
		}
	}
	out.PrefetchHistoricSlice = NormalizePrefetch(f.PrefetchHistoricSlice)

	if !out.AllowHistoricDownload && out.PrefetchHistoricSlice == nil {
		return nil
	}
	return out
}

// NormalizeFormats filters formats to the supported set, lower-cased and
// deduplicated in first-seen order. Returns nil when nothing is left.
func NormalizeFormats(formats []string) []string {
	var out []string
	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))
		if !supportedFormats[format] || slices.Contains(out, format) {
			continue
		}
		out = append(out, format)
	}
	return out
}

// NormalizePrefetch returns a prefetch block holding exactly the range its mode
// selects, or nil when no consistent block can be derived.
func NormalizePrefetch(p *core.PrefetchHistoricSlice) *core.PrefetchHistoricSlice {
	if p == nil {
		return nil
	}

	mode := p.Mode
	switch mode {
	case core.PrefetchRelative, core.PrefetchAbsolute:
	default:
		// Unset or unknown: infer from the populated field, absolute first.
		switch {
		case p.AbsoluteRange != nil:
			mode = core.PrefetchAbsolute
		case p.Range != nil:
			mode = core.PrefetchRelative
		default:
			return nil
		}
	}

	switch mode {
	case core.PrefetchRelative:
		r := NormalizeRange(p.Range)
		if r == nil {
			return nil
		}
		return &core.PrefetchHistoricSlice{Mode: mode, Range: r}
	case core.PrefetchAbsolute:
		abs := NormalizeAbsolute(p.AbsoluteRange)
		if abs == nil {
			return nil
		}
		return &core.PrefetchHistoricSlice{Mode: mode, AbsoluteRange: abs}
	}
	return nil
}

// NormalizeRange validates a relative range. The amount is rounded to a whole
// number and must stay positive. An invalid offset is dropped on its own.
func NormalizeRange(r *core.RelativeRange) *core.RelativeRange {
	out := normalizeWindow(r)
	if out == nil {
		return nil
	}
	if off := normalizeWindow(r.Offset); off != nil {
		out.Offset = off
	}
	return out
}

// normalizeWindow validates amount and unit only; nested offsets are not kept.
func normalizeWindow(r *core.RelativeRange) *core.RelativeRange {
	if r == nil {
		return nil
	}
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		return nil
	}
	amount := math.Round(r.Amount)
	if amount <= 0 {
		return nil
	}
	unit := strings.ToLower(strings.TrimSpace(r.Unit))
	if !supportedUnits[unit] {
		return nil
	}
	return &core.RelativeRange{Amount: amount, Unit: unit}
}

// NormalizeAbsolute validates an absolute range. Start must parse as a date-time.
// An unparseable End, or one before Start, is dropped and the range stays open-ended.
func NormalizeAbsolute(r *core.AbsoluteRange) *core.AbsoluteRange {
	if r == nil {
		return nil
	}
	start := strings.TrimSpace(r.Start)
	startAt, ok := ParseTime(start)
	if !ok {
		return nil
	}
	out := &core.AbsoluteRange{Start: start}

	end := strings.TrimSpace(r.End)
	if end == "" {
		return out
	}
	if endAt, ok := ParseTime(end); ok && !endAt.Before(startAt) {
		out.End = end
	}
	return out
}

// ParseTime parses a date-time in any common layout. Layouts without a zone are
// read as UTC.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Window resolves a prefetch block to concrete bounds relative to now.
// A zero end means open-ended.
func Window(p *core.PrefetchHistoricSlice, now time.Time) (start, end time.Time, ok bool) {
	p = NormalizePrefetch(p)
	if p == nil {
		return time.Time{}, time.Time{}, false
	}
	if p.Mode == core.PrefetchAbsolute {
		start, _ = ParseTime(p.AbsoluteRange.Start)
		end, _ = ParseTime(p.AbsoluteRange.End)
		return start, end, true
	}
	end = now
	if p.Range.Offset != nil {
		end = end.Add(-Duration(p.Range.Offset))
	}
	return end.Add(-Duration(p.Range)), end, true
}

// Duration converts a relative range to a duration, ignoring its offset.
func Duration(r *core.RelativeRange) time.Duration {
	if r == nil {
		return 0
	}
	var unit time.Duration
	switch r.Unit {
	case core.UnitMinutes:
		unit = time.Minute
	case core.UnitHours:
		unit = time.Hour
	case core.UnitDays:
		unit = 24 * time.Hour
	}
	return time.Duration(r.Amount) * unit
}
