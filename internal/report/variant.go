// Package report is the catalog of supported report variants. Each variant
// owns its validation, object filter, request shape and backend operation.
package report

import (
	"context"
	"strings"

	"fleet-report-builder/internal/errs"
	"fleet-report-builder/internal/model"
	"fleet-report-builder/internal/timewindow"
)

// Kind is the wire name of a report variant.
type Kind string

const (
	KindCheckins    Kind = "checkins"
	KindEngineHours Kind = "engineHours"
	KindStaleGPS    Kind = "staleGPS"
)

const (
	MinDaysWithoutSignal = 1
	MaxDaysWithoutSignal = 30
)

// Submission is everything the user configured for one report.
type Submission struct {
	SessionKey        string
	OwnerID           string
	TrackerIDs        []int64
	Window            timewindow.Window
	DaysWithoutSignal int
	Title             string
	Format            model.Format
}

// Clone returns a deep copy so later edits of the form cannot leak into an
// in-flight submission.
func (s Submission) Clone() Submission {
	s.TrackerIDs = append([]int64(nil), s.TrackerIDs...)
	return s
}

// Generator is the set of backend generation operations.
type Generator interface {
	GenerateCheckins(ctx context.Context, req model.ReportRequest) (*model.Payload, error)
	GenerateEngineHours(ctx context.Context, req model.ReportRequest) (*model.Payload, error)
	GenerateStaleGPS(ctx context.Context, req model.ReportRequest) (*model.Payload, error)
}

// Variant is one supported report kind.
type Variant interface {
	Kind() Kind
	Label() string
	Description() string
	// Admits reports whether the tracker may be part of this report.
	Admits(t model.Tracker) bool
	// NeedsWindow is true when the request carries a normalized time window.
	NeedsWindow() bool
	Validate(s Submission) error
	Build(s Submission, window *timewindow.Range) (model.ReportRequest, error)
	Generate(ctx context.Context, g Generator, req model.ReportRequest) (*model.Payload, error)
}

// DefaultTitle returns title, or "<kind> report" when it is blank.
func DefaultTitle(kind Kind, title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return string(kind) + " report"
}

// windowed is shared by the variants that report over a date range.
type windowed struct{}

func (windowed) NeedsWindow() bool { return true }

func (windowed) validate(s Submission) error {
	var missing []string
	if len(s.TrackerIDs) == 0 {
		missing = append(missing, "trackerIds")
	}
	if strings.TrimSpace(s.Window.StartDate) == "" {
		missing = append(missing, "startDate")
	}
	if strings.TrimSpace(s.Window.EndDate) == "" {
		missing = append(missing, "endDate")
	}
	return errs.Validation(missing...)
}

func (windowed) build(kind Kind, s Submission, window *timewindow.Range) (model.ReportRequest, error) {
	if window == nil {
		return model.ReportRequest{}, &errs.ConfigurationError{Reason: string(kind) + " requires a normalized time window"}
	}
	return model.ReportRequest{
		SessionKey:  s.SessionKey,
		TrackerIDs:  append([]int64(nil), s.TrackerIDs...),
		StartDate:   window.StartUTC,
		EndDate:     window.EndUTC,
		UserID:      s.OwnerID,
		ReportType:  string(kind),
		ReportTitle: DefaultTitle(kind, s.Title),
	}, nil
}

type checkins struct{ windowed }

func (checkins) Kind() Kind { return KindCheckins }
func (checkins) Label() string { return "Check-ins" }
func (checkins) Description() string {
	return "Check-ins on the map submitted by mobile employees"
}
func (checkins) Admits(model.Tracker) bool { return true }

func (v checkins) Validate(s Submission) error { return v.validate(s) }

func (v checkins) Build(s Submission, window *timewindow.Range) (model.ReportRequest, error) {
	return v.build(KindCheckins, s, window)
}

func (checkins) Generate(ctx context.Context, g Generator, req model.ReportRequest) (*model.Payload, error) {
	return g.GenerateCheckins(ctx, req)
}

type engineHours struct{ windowed }

func (engineHours) Kind() Kind { return KindEngineHours }
func (engineHours) Label() string { return "Engine Hours" }
func (engineHours) Description() string {
	return "Engine hours for selected vehicles over a specified time period"
}
func (engineHours) Admits(t model.Tracker) bool { return t.HasEngineHours }

func (v engineHours) Validate(s Submission) error { return v.validate(s) }

func (v engineHours) Build(s Submission, window *timewindow.Range) (model.ReportRequest, error) {
	return v.build(KindEngineHours, s, window)
}

func (engineHours) Generate(ctx context.Context, g Generator, req model.ReportRequest) (*model.Payload, error) {
	return g.GenerateEngineHours(ctx, req)
}

type staleGPS struct{}

func (staleGPS) Kind() Kind { return KindStaleGPS }
func (staleGPS) Label() string { return "Stale GPS" }
func (staleGPS) Description() string {
	return "Vehicles that haven't had a GPS update within a specified time frame"
}
func (staleGPS) Admits(model.Tracker) bool { return true }
func (staleGPS) NeedsWindow() bool { return false }

func (staleGPS) Validate(s Submission) error {
	var missing []string
	if len(s.TrackerIDs) == 0 {
		missing = append(missing, "trackerIds")
	}
	if s.DaysWithoutSignal < MinDaysWithoutSignal || s.DaysWithoutSignal > MaxDaysWithoutSignal {
		missing = append(missing, "daysWithoutSignal")
	}
	return errs.Validation(missing...)
}

func (staleGPS) Build(s Submission, _ *timewindow.Range) (model.ReportRequest, error) {
	return model.ReportRequest{
		SessionKey:        s.SessionKey,
		TrackerIDs:        append([]int64(nil), s.TrackerIDs...),
		DaysWithoutSignal: s.DaysWithoutSignal,
		UserID:            s.OwnerID,
		ReportType:        string(KindStaleGPS),
		ReportTitle:       DefaultTitle(KindStaleGPS, s.Title),
	}, nil
}

func (staleGPS) Generate(ctx context.Context, g Generator, req model.ReportRequest) (*model.Payload, error) {
	return g.GenerateStaleGPS(ctx, req)
}
