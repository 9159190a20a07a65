package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRenderQuotesCommas(t *testing.T) {
	data := Dataset{
		Headers: []string{"name", "status"},
		Rows: []map[string]string{
			{"name": "Mensah, Kofi", "status": "Pass"},
			{"name": "Ama \"Serwaa\"", "status": "Fail"},
		},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "name,status\n\"Mensah, Kofi\",Pass\n\"Ama \"\"Serwaa\"\"\",Fail\n", string(out))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestCSVReadRoundTrip(t *testing.T) {
	exporter := NewCSVExporter()
	data := Dataset{
		Headers: []string{"name", "score"},
		Rows:    []map[string]string{{"name": "Mensah, Kofi", "score": "67"}},
	}
	out, err := exporter.Render(data)
	require.NoError(t, err)

	parsed, err := exporter.Read(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, data.Headers, parsed.Headers)
	assert.Equal(t, data.Rows, parsed.Rows)
	assert.Equal(t, []int{2}, parsed.Lines)
}

func TestCSVReadNormalizesHeadersAndShortRows(t *testing.T) {
	input := "\ufeffName , ClassName,Subject\nKofi Mensah,JHS 1\n"
	parsed, err := NewCSVExporter().Read(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "classname", "subject"}, parsed.Headers)
	require.Len(t, parsed.Rows, 1)
	assert.Equal(t, "", parsed.Rows[0]["subject"])
	assert.True(t, parsed.HasHeaders("NAME", "classname"))
	assert.False(t, parsed.HasHeaders("examscore"))
	assert.Equal(t, "Kofi Mensah", parsed.Rows[0]["name"])
}

func TestCSVReadTracksSourceLines(t *testing.T) {
	input := "name,remark\nKofi Mensah,\"Works hard,\nneeds focus\"\n\nAma Serwaa,Good\n"
	parsed, err := NewCSVExporter().Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 2)
	assert.Equal(t, "Works hard,\nneeds focus", parsed.Rows[0]["remark"])
	assert.Equal(t, []int{2, 5}, parsed.Lines)
	assert.Equal(t, 5, parsed.Line(1))
	assert.Equal(t, 4, Dataset{}.Line(2))
}

func TestCSVReadRejectsLongRows(t *testing.T) {
	_, err := NewCSVExporter().Read(strings.NewReader("name\nKofi,extra\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = NewCSVExporter().Read(strings.NewReader(""))
	assert.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	out, err := NewPDFExporter().Render(Dataset{
		Headers: []string{"Name", "Average"},
		Rows:    []map[string]string{{"Name": "Kofi Mensah", "Average": "75"}},
	}, "Class Results")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFRenderDocuments(t *testing.T) {
	doc := Document{
		Title:    "Accra Basic School",
		Subtitle: "Terminal Report",
		Details:  []Field{{Label: "Name", Value: "Kofi Mensah"}, {Label: "Position", Value: "1 of 30"}},
		Table: Dataset{
			Headers: []string{"Subject", "Total"},
			Rows:    []map[string]string{{"Subject": "Mathematics", "Total": "87"}},
		},
		Footer: []Field{{Label: "Result", Value: "Pass"}},
	}
	out, err := NewPDFExporter().RenderDocuments([]Document{doc, doc})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().RenderDocuments(nil)
	assert.Error(t, err)
}
