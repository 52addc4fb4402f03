package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	MimePDF  = "application/pdf"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeJSON = "application/json"
)

// Format is a downloadable artifact format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "pdf" or "xlsx".
func ParseFormat(raw string) (Format, bool) {
	switch Format(raw) {
	case FormatPDF, FormatXLSX:
		return Format(raw), true
	default:
		return "", false
	}
}

// MimeType returns the content type served for the format.
func (f Format) MimeType() string {
	if f == FormatXLSX {
		return MimeXLSX
	}
	return MimePDF
}

// GeneratedArtifact is an in-memory handle to a viewable or downloadable file.
type GeneratedArtifact struct {
	ID        uuid.UUID `json:"id"`
	ReportID  *int64    `json:"reportId,omitempty"`
	Title     string    `json:"title"`
	FileName  string    `json:"fileName"`
	MimeType  string    `json:"mimeType"`
	Bytes     []byte    `json:"-"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}
