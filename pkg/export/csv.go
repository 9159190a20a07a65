package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSVExporter renders Dataset records into CSV bytes and reads them back.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV bytes. Values containing commas, quotes or newlines are quoted.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Headers))
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Read parses CSV input whose first record is the header row. Header names are
// trimmed and lower-cased; blank lines are skipped. Each row keeps the line it
// started on, so quoted multi-line fields do not shift later line numbers.
func (e *CSVExporter) Read(r io.Reader) (Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Dataset{}, fmt.Errorf("csv input is empty")
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("read csv headers: %w", err)
	}
	for i := range headers {
		headers[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(headers[i], "\ufeff")))
	}

	data := Dataset{Headers: headers}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if len(record) > len(headers) {
			return Dataset{}, fmt.Errorf("csv line %d has %d fields, expected %d", line, len(record), len(headers))
		}
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = strings.TrimSpace(record[i])
			}
		}
		data.Rows = append(data.Rows, row)
		data.Lines = append(data.Lines, line)
	}
	return data, nil
}
