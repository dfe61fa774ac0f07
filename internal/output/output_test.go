package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `json:"name" yaml:"name"`
	IDs  []int  `json:"ids" yaml:"ids"`
}

func (s sample) String() string { return "sample " + s.Name }

func TestPrintFormats(t *testing.T) {
	v := sample{Name: "a<b", IDs: []int{1, 2}}
	tests := []struct {
		name    string
		printer Printer
		want    string
	}{
		{"json", Printer{Format: FormatJSON}, `{"name":"a<b","ids":[1,2]}` + "\n"},
		{"pretty json", Printer{Format: FormatJSON, Pretty: true}, "{\n  \"name\": \"a<b\",\n  \"ids\": [\n    1,\n    2\n  ]\n}\n"},
		{"yaml", Printer{Format: FormatYAML}, "name: a<b\nids:\n  - 1\n  - 2\n"},
		{"text", Printer{Format: FormatText}, "sample a<b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.printer.W = &buf
			require.NoError(t, tt.printer.Print(v))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("json", FormatYAML, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("text", FormatYAML, FormatJSON)
	assert.ErrorContains(t, err, "unsupported format")
}

func TestPrintUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Printer{W: &buf, Format: "xml"}.Print(1))
}
