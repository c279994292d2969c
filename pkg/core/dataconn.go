package core

// Historic download formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// PrefetchMode selects which range representation a prefetch block uses.
type PrefetchMode string

// Prefetch modes.
const (
	PrefetchRelative PrefetchMode = "relative"
	PrefetchAbsolute PrefetchMode = "absolute"
)

// Range units.
const (
	UnitMinutes = "minutes"
	UnitHours   = "hours"
	UnitDays    = "days"
)

// RelativeRange is a window measured back from now, optionally shifted by Offset.
type RelativeRange struct {
	Amount float64        `json:"amount"`
	Unit   string         `json:"unit"`
	Offset *RelativeRange `json:"offset,omitempty"`
}

// AbsoluteRange is a fixed window. End is optional (open-ended).
type AbsoluteRange struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// PrefetchHistoricSlice describes a historic window fetched ahead of time.
type PrefetchHistoricSlice struct {
	Mode          PrefetchMode   `json:"mode,omitempty"`
	Range         *RelativeRange `json:"range,omitempty"`
	AbsoluteRange *AbsoluteRange `json:"absolute_range,omitempty"`
}

// DataConnectionFeatures holds historic-download and prefetch configuration
// for a data-connection-backed slice.
type DataConnectionFeatures struct {
	AllowHistoricDownload   bool                   `json:"allow_historic_download,omitempty"`
	HistoricDownloadFormats []string               `json:"historic_download_formats,omitempty"`
	PrefetchHistoricSlice   *PrefetchHistoricSlice `json:"prefetch_historic_slice,omitempty"`
}

// Clone returns a deep copy of the features.
func (f *DataConnectionFeatures) Clone() *DataConnectionFeatures {
	if f == nil {
		return nil
	}
	out := *f
	if f.HistoricDownloadFormats != nil {
		out.HistoricDownloadFormats = append([]string(nil), f.HistoricDownloadFormats...)
	}
	if f.PrefetchHistoricSlice != nil {
		p := *f.PrefetchHistoricSlice
		p.Range = p.Range.Clone()
		if p.AbsoluteRange != nil {
			abs := *p.AbsoluteRange
			p.AbsoluteRange = &abs
		}
		out.PrefetchHistoricSlice = &p
	}
	return &out
}

// Clone returns a deep copy of the range.
func (r *RelativeRange) Clone() *RelativeRange {
	if r == nil {
		return nil
	}
	out := *r
	out.Offset = r.Offset.Clone()
	return &out
}
