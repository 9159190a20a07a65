package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const pageWidth = 190.0

// Document is one printable page: a heading block, key/value details, a table and footer lines.
type Document struct {
	Title    string
	Subtitle string
	Details  []Field
	Table    Dataset
	Footer   []Field
}

// Field is a labelled value printed in the details or footer block.
type Field struct {
	Label string
	Value string
}

// PDFExporter renders datasets and documents with gofpdf.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF with an optional title and a single table.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := newDocument()
	pdf.AddPage()
	writeTitle(pdf, title, "")
	writeTable(pdf, data)
	return output(pdf)
}

// RenderDocuments prints each document on its own page.
func (e *PDFExporter) RenderDocuments(docs []Document) ([]byte, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("pdf requires at least one document")
	}
	pdf := newDocument()
	for _, doc := range docs {
		pdf.AddPage()
		writeTitle(pdf, doc.Title, doc.Subtitle)
		writeFields(pdf, doc.Details, 2)
		pdf.Ln(4)
		if len(doc.Table.Headers) > 0 {
			writeTable(pdf, doc.Table)
			pdf.Ln(4)
		}
		writeFields(pdf, doc.Footer, 1)
	}
	return output(pdf)
}

func newDocument() *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	return pdf
}

func writeTitle(pdf *gofpdf.Fpdf, title, subtitle string) {
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
	}
	if subtitle != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, tr(subtitle), "", 1, "C", false, 0, "")
	}
	if title != "" || subtitle != "" {
		pdf.Ln(4)
	}
}

func writeFields(pdf *gofpdf.Fpdf, fields []Field, perLine int) {
	if len(fields) == 0 {
		return
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width := pageWidth / float64(perLine)
	for i, field := range fields {
		pdf.SetFont("Arial", "B", 10)
		label := field.Label + ": "
		labelWidth := pdf.GetStringWidth(label) + 1
		pdf.CellFormat(labelWidth, 7, tr(label), "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		ln := 0
		if (i+1)%perLine == 0 || i == len(fields)-1 {
			ln = 1
		}
		pdf.CellFormat(width-labelWidth, 7, tr(field.Value), "", ln, "", false, 0, "")
	}
}

func writeTable(pdf *gofpdf.Fpdf, data Dataset) {
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	colWidth := pageWidth / float64(len(data.Headers))

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, tr(row[header]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
