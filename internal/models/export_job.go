package models

import (
	"fmt"
	"strings"
	"time"
)

// ExportFormat enumerates supported export renderings.
type ExportFormat string

const (
	ExportFormatICS ExportFormat = "ics"
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat normalises a format name.
func ParseExportFormat(v string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(v))); f {
	case ExportFormatICS, ExportFormatCSV, ExportFormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", v)
}

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob tracks one scheduled export of a calendar.
type ExportJob struct {
	ID           string       `json:"id"`
	Calendar     string       `json:"calendar"`
	Format       ExportFormat `json:"format"`
	Status       ExportStatus `json:"status"`
	ResultPath   string       `json:"result_path,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
	ErrorMessage *string      `json:"error_message,omitempty"`
}

// ExportResult describes a rendered export file.
type ExportResult struct {
	Calendar    string       `json:"calendar"`
	Format      ExportFormat `json:"format"`
	Path        string       `json:"path"`
	Size        int64        `json:"size"`
	EventCount  int          `json:"event_count"`
	Token       string       `json:"token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	GeneratedAt time.Time    `json:"generated_at"`
}
