package artifact

import (
	"mime"
	"strings"

	"fleet-report-builder/internal/model"
)

var unsafeFileChars = strings.NewReplacer("/", "-", "\\", "-", ":", "-", "\"", "", "\n", " ", "\r", " ")

// Extension maps a content type to the file extension used for downloads.
func Extension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	switch mediaType {
	case model.MimePDF:
		return "pdf"
	case model.MimeXLSX:
		return "xlsx"
	case model.MimeJSON:
		return "json"
	case "text/csv":
		return "csv"
	default:
		return "bin"
	}
}

// FileName returns "<title>.<ext>" with path separators removed.
func FileName(title, contentType string) string {
	name := strings.TrimSpace(unsafeFileChars.Replace(title))
	if name == "" {
		name = "report"
	}
	return name + "." + Extension(contentType)
}
