package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMode(t *testing.T) {
	assert.Equal(t, ModeJSON, Mode("JSON"))
	assert.Equal(t, ModeMarkdown, Mode("markdown"))
	assert.Equal(t, ModeAuto, Mode(""))
	assert.Equal(t, ModeAuto, Mode("xml"))
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  OutputMode
		isTTY bool
		want  OutputMode
	}{
		{"auto on terminal", ModeAuto, true, ModeText},
		{"auto piped", ModeAuto, false, ModeMarkdown},
		{"explicit json", ModeJSON, true, ModeJSON},
		{"explicit text piped", ModeText, false, ModeText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.isTTY, tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestRenderer_Table(t *testing.T) {
	t.Run("markdown", func(t *testing.T) {
		var out bytes.Buffer
		r := NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeAuto)
		r.Table([]string{"Key", "Mode"}, [][]string{{"ticks", "a|b"}})
		assert.Equal(t, "| Key | Mode |\n| --- | --- |\n| ticks | a\\|b |\n", out.String())
	})

	t.Run("text", func(t *testing.T) {
		var out bytes.Buffer
		r := NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeText)
		r.Table([]string{"Key"}, [][]string{{"ticks"}})
		assert.Contains(t, out.String(), "ticks")
		assert.Contains(t, out.String(), "┌")
	})
}

func TestRenderer_Streams(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeMarkdown)

	r.Header(1, "Slices")
	r.Success("done")
	r.Warning("careful")
	r.StatusLine("react", "ready", "3 exports")

	assert.Contains(t, out.String(), "# Slices\n\n")
	assert.Contains(t, out.String(), "[ok] done")
	assert.Contains(t, out.String(), "[ok] react 3 exports")
	assert.Equal(t, "warning: careful\n", errOut.String())
}

func TestRenderer_JSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &bytes.Buffer{}, false, ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"a": 1}))
	assert.JSONEq(t, `{"a":1}`, out.String())
}

func TestFormatKeyValue(t *testing.T) {
	assert.Equal(t, "- **Lookup:** ticks", FormatKeyValue("Lookup", "ticks"))
	assert.Equal(t, "## Plan", FormatHeader(2, "Plan"))
}
