package model

import "time"

// ReportRequest is the JSON body sent to the backend's generation endpoints.
type ReportRequest struct {
	SessionKey        string  `json:"sessionKey"`
	TrackerIDs        []int64 `json:"trackerIds"`
	StartDate         string  `json:"startDate,omitempty"`
	EndDate           string  `json:"endDate,omitempty"`
	DaysWithoutSignal int     `json:"daysWithoutSignal,omitempty"`
	UserID            string  `json:"userId"`
	ReportType        string  `json:"reportType"`
	ReportTitle       string  `json:"reportTitle"`
}

// ReportRecord describes a report the backend generated earlier.
type ReportRecord struct {
	ID          int64     `json:"id"`
	ReportType  string    `json:"report_type"`
	ReportTitle string    `json:"report_title"`
	FileFormat  string    `json:"file_format"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Payload is a raw backend response body with its declared content type.
type Payload struct {
	Data        []byte
	ContentType string
	// ReportID is set when the backend announces the id of the stored report.
	ReportID *int64
}
