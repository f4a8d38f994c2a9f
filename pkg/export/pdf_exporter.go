package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

var agendaColumns = []struct {
	header string
	width  float64
}{
	{"Date", 28},
	{"Time", 30},
	{"Subject", 62},
	{"Location", 26},
	{"Status", 22},
	{"Series", 22},
}

// PDFExporter renders an agenda as a printable table.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Dataset lays the agenda out as table rows.
func (e *PDFExporter) Dataset(a Agenda) Dataset {
	data := Dataset{}
	for _, col := range agendaColumns {
		data.Headers = append(data.Headers, col.header)
	}
	for _, entry := range a.sorted() {
		span := "all day"
		if !entry.AllDay {
			span = fmt.Sprintf("%s-%s", entry.Start.Format("15:04"), entry.End.Format("15:04"))
		}
		data.Rows = append(data.Rows, []string{
			entry.Start.Format("Mon 02 Jan"),
			span,
			entry.Subject,
			entry.Location,
			entry.Status,
			seriesLabel(entry.SeriesID),
		})
	}
	return data
}

// Render creates the agenda document.
func (e *PDFExporter) Render(a Agenda) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	title := a.Name
	if a.Timezone != nil {
		title = fmt.Sprintf("%s (%s)", a.Name, a.Timezone.String())
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	if !a.GeneratedAt.IsZero() {
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 5, "Generated "+a.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	data := e.Dataset(a)
	pdf.SetFont("Arial", "B", 10)
	for _, col := range agendaColumns {
		pdf.CellFormat(col.width, 8, col.header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, row := range data.Rows {
		for i, value := range row {
			pdf.CellFormat(agendaColumns[i].width, 7, tr(value), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
