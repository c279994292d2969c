package historic

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapview/pkg/core"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   *core.DataConnectionFeatures
		want *core.DataConnectionFeatures
	}{
		{
			name: "nil stays nil",
			in:   nil,
			want: nil,
		},
		{
			name: "empty object is absent",
			in:   &core.DataConnectionFeatures{},
			want: nil,
		},
		{
			name: "allowed without formats defaults to json",
			in:   &core.DataConnectionFeatures{AllowHistoricDownload: true, HistoricDownloadFormats: []string{}},
			want: &core.DataConnectionFeatures{AllowHistoricDownload: true, HistoricDownloadFormats: []string{"json"}},
		},
		{
			name: "formats filtered and deduplicated",
			in: &core.DataConnectionFeatures{
				AllowHistoricDownload:   true,
				HistoricDownloadFormats: []string{"CSV", "xml", "csv", " json "},
			},
			want: &core.DataConnectionFeatures{AllowHistoricDownload: true, HistoricDownloadFormats: []string{"csv", "json"}},
		},
		{
			name: "only unsupported formats fall back to json",
			in:   &core.DataConnectionFeatures{AllowHistoricDownload: true, HistoricDownloadFormats: []string{"parquet"}},
			want: &core.DataConnectionFeatures{AllowHistoricDownload: true, HistoricDownloadFormats: []string{"json"}},
		},
		{
			name: "disallowed drops formats",
			in:   &core.DataConnectionFeatures{HistoricDownloadFormats: []string{"csv"}},
			want: nil,
		},
		{
			name: "relative mode inferred and amount rounded",
			in: &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				Range: &core.RelativeRange{Amount: 2.6, Unit: "Hours"},
			}},
			want: &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				Mode:  core.PrefetchRelative,
				Range: &core.RelativeRange{Amount: 3, Unit: "hours"},
			}},
		},
		{
			name: "absolute wins inference",
			in: &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				Range:         &core.RelativeRange{Amount: 1, Unit: "days"},
				AbsoluteRange: &core.AbsoluteRange{Start: "2024-01-01T00:00:00Z"},
			}},
			want: &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				Mode:          core.PrefetchAbsolute,
				AbsoluteRange: &core.AbsoluteRange{Start: "2024-01-01T00:00:00Z"},
			}},
		},
		{
			name: "explicit mode drops the other field",
			in: &core.DataConnectionFeatures{AllowHistoricDownload: true, PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				Mode:          core.PrefetchRelative,
				Range:         &core.RelativeRange{Amount: 15, Unit: "minutes"},
				AbsoluteRange: &core.AbsoluteRange{Start: "2024-01-01"},
			}},
			want: &core.DataConnectionFeatures{
				AllowHistoricDownload:   true,
				HistoricDownloadFormats: []string{"json"},
				PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
					Mode:  core.PrefetchRelative,
					Range: &core.RelativeRange{Amount: 15, Unit: "minutes"},
				},
			},
		},
		{
			name: "mode mismatch clears prefetch",
			in: &core.DataConnectionFeatures{AllowHistoricDownload: true, PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				Mode:  core.PrefetchAbsolute,
				Range: &core.RelativeRange{Amount: 1, Unit: "days"},
			}},
			want: &core.DataConnectionFeatures{AllowHistoricDownload: true, HistoricDownloadFormats: []string{"json"}},
		},
		{
			name: "non-positive amount clears prefetch",
			in: &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				Range: &core.RelativeRange{Amount: 0.4, Unit: "days"},
			}},
			want: nil,
		},
		{
			name: "unsupported unit clears prefetch",
			in: &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				Range: &core.RelativeRange{Amount: 1, Unit: "weeks"},
			}},
			want: nil,
		},
		{
			name: "invalid offset dropped alone",
			in: &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				Range: &core.RelativeRange{Amount: 1, Unit: "days", Offset: &core.RelativeRange{Amount: -1, Unit: "days"}},
			}},
			want: &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				Mode:  core.PrefetchRelative,
				Range: &core.RelativeRange{Amount: 1, Unit: "days"},
			}},
		},
		{
			name: "valid offset kept without nesting",
			in: &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				Range: &core.RelativeRange{Amount: 1, Unit: "days", Offset: &core.RelativeRange{
					Amount: 2, Unit: "hours", Offset: &core.RelativeRange{Amount: 1, Unit: "minutes"},
				}},
			}},
			want: &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				Mode:  core.PrefetchRelative,
				Range: &core.RelativeRange{Amount: 1, Unit: "days", Offset: &core.RelativeRange{Amount: 2, Unit: "hours"}},
			}},
		},
		{
			name: "bad start clears prefetch",
			in: &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				AbsoluteRange: &core.AbsoluteRange{Start: "not a date"},
			}},
			want: nil,
		},
		{
			name: "bad end is dropped",
			in: &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				AbsoluteRange: &core.AbsoluteRange{Start: " 2024-03-01 10:00:00 ", End: "soon"},
			}},
			want: &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				Mode:          core.PrefetchAbsolute,
				AbsoluteRange: &core.AbsoluteRange{Start: "2024-03-01 10:00:00"},
			}},
		},
		{
			name: "end before start is dropped",
			in: &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				AbsoluteRange: &core.AbsoluteRange{Start: "2024-03-02", End: "2024-03-01"},
			}},
			want: &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{
				Mode:          core.PrefetchAbsolute,
				AbsoluteRange: &core.AbsoluteRange{Start: "2024-03-02"},
			}},
		},
		{
			name: "no range and no mode drops the block",
			in:   &core.DataConnectionFeatures{PrefetchHistoricSlice: &core.PrefetchHistoricSlice{}},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalization must be idempotent")
		})
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := &core.DataConnectionFeatures{
		AllowHistoricDownload:   true,
		HistoricDownloadFormats: []string{"CSV"},
		PrefetchHistoricSlice:   &core.PrefetchHistoricSlice{Range: &core.RelativeRange{Amount: 1.2, Unit: "days"}},
	}
	_ = Normalize(in)
	assert.Equal(t, []string{"CSV"}, in.HistoricDownloadFormats)
	assert.Equal(t, 1.2, in.PrefetchHistoricSlice.Range.Amount)
	assert.Empty(t, in.PrefetchHistoricSlice.Mode)
}

func TestNormalizeRange_RejectsNonFinite(t *testing.T) {
	assert.Nil(t, NormalizeRange(&core.RelativeRange{Amount: math.NaN(), Unit: "days"}))
	assert.Nil(t, NormalizeRange(&core.RelativeRange{Amount: math.Inf(1), Unit: "days"}))
}

func TestWindow(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	start, end, ok := Window(&core.PrefetchHistoricSlice{
		Range: &core.RelativeRange{Amount: 2, Unit: "days", Offset: &core.RelativeRange{Amount: 1, Unit: "hours"}},
	}, now)
	require.True(t, ok)
	assert.Equal(t, now.Add(-time.Hour), end)
	assert.Equal(t, now.Add(-time.Hour-48*time.Hour), start)

	start, end, ok = Window(&core.PrefetchHistoricSlice{
		AbsoluteRange: &core.AbsoluteRange{Start: "2024-01-01T00:00:00Z"},
	}, now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start.UTC())
	assert.True(t, end.IsZero())

	_, _, ok = Window(nil, now)
	assert.False(t, ok)
}
