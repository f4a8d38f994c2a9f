package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// Column layout accepted by Google Calendar's CSV import.
var googleCSVHeaders = []string{
	"Subject", "Start Date", "Start Time", "End Date", "End Time",
	"All Day Event", "Description", "Location", "Private",
}

const (
	csvDateLayout = "01/02/2006"
	csvTimeLayout = "03:04 PM"
)

// CSVExporter renders agendas as Google Calendar compatible CSV.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Dataset lays the agenda out in import column order.
func (e *CSVExporter) Dataset(a Agenda) Dataset {
	data := Dataset{Headers: googleCSVHeaders}
	for _, entry := range a.sorted() {
		row := []string{
			entry.Subject,
			entry.Start.Format(csvDateLayout),
			"",
			entry.End.Format(csvDateLayout),
			"",
			strconv.FormatBool(entry.AllDay),
			entry.Description,
			entry.Location,
			strconv.FormatBool(entry.Private()),
		}
		if !entry.AllDay {
			row[2] = entry.Start.Format(csvTimeLayout)
			row[4] = entry.End.Format(csvTimeLayout)
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

// Render produces CSV encoded bytes for the agenda.
func (e *CSVExporter) Render(a Agenda) ([]byte, error) {
	data := e.Dataset(a)
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	if err := writer.WriteAll(data.Rows); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}
