package wizard

import (
	"strings"
	"time"

	"fleet-report-builder/internal/errs"
	"fleet-report-builder/internal/model"
	"fleet-report-builder/internal/report"
	"fleet-report-builder/internal/selection"
	"fleet-report-builder/internal/timewindow"
)

// Defaults seed a new form.
type Defaults struct {
	Timezone          string
	Format            model.Format
	DaysWithoutSignal int
}

// Settings are the non-selection inputs of a report.
type Settings struct {
	Title             string       `json:"title"`
	StartDate         string       `json:"startDate"`
	EndDate           string       `json:"endDate"`
	StartMinutes      int          `json:"startMinutes"`
	EndMinutes        int          `json:"endMinutes"`
	StartTime         string       `json:"startTime"`
	EndTime           string       `json:"endTime"`
	Timezone          string       `json:"timezone"`
	DaysWithoutSignal int          `json:"daysWithoutSignal"`
	Format            model.Format `json:"format"`
}

// SettingsUpdate changes only the fields that are set.
type SettingsUpdate struct {
	Title             *string `json:"title"`
	StartDate         *string `json:"startDate"`
	EndDate           *string `json:"endDate"`
	StartMinutes      *int    `json:"startMinutes"`
	EndMinutes        *int    `json:"endMinutes"`
	StartTime         *string `json:"startTime"`
	EndTime           *string `json:"endTime"`
	Timezone          *string `json:"timezone"`
	DaysWithoutSignal *int    `json:"daysWithoutSignal"`
	Format            *string `json:"format"`
}

// Form is the in-progress configuration of one variant. It lives only while
// the wizard is in the configuration step.
type Form struct {
	variant   report.Variant
	selection *selection.Model
	settings  Settings
}

func newForm(variant report.Variant, defaults Defaults, now time.Time) *Form {
	today := now.UTC().Format("2006-01-02")
	if loc, err := timewindow.LoadLocation(defaults.Timezone); err == nil {
		today = now.In(loc).Format("2006-01-02")
	}
	format := defaults.Format
	if format == "" {
		format = model.FormatPDF
	}
	days := defaults.DaysWithoutSignal
	if days <= 0 {
		days = report.MinDaysWithoutSignal
	}

	f := &Form{
		variant:   variant,
		selection: selection.New(variant.Admits),
		settings: Settings{
			StartDate:         today,
			EndDate:           today,
			StartMinutes:      0,
			EndMinutes:        timewindow.MaxMinutes,
			Timezone:          defaults.Timezone,
			DaysWithoutSignal: days,
			Format:            format,
		},
	}
	f.syncClock()
	return f
}

func (f *Form) syncClock() {
	f.settings.StartTime = timewindow.FormatMinutes(f.settings.StartMinutes)
	f.settings.EndTime = timewindow.FormatMinutes(f.settings.EndMinutes)
}

// Apply changes the settings. Time-of-day values are quantized; clock
// strings take precedence over minute values when both are set.
func (f *Form) Apply(u SettingsUpdate) error {
	next := f.settings
	var invalid []string

	if u.Title != nil {
		next.Title = *u.Title
	}
	if u.StartDate != nil {
		next.StartDate = strings.TrimSpace(*u.StartDate)
	}
	if u.EndDate != nil {
		next.EndDate = strings.TrimSpace(*u.EndDate)
	}
	if u.StartMinutes != nil {
		next.StartMinutes = timewindow.QuantizeTimeOfDay(*u.StartMinutes)
	}
	if u.EndMinutes != nil {
		next.EndMinutes = timewindow.QuantizeTimeOfDay(*u.EndMinutes)
	}
	if u.StartTime != nil {
		if m, err := timewindow.ParseClock(*u.StartTime); err != nil {
			invalid = append(invalid, "startTime")
		} else {
			next.StartMinutes = timewindow.QuantizeTimeOfDay(m)
		}
	}
	if u.EndTime != nil {
		if m, err := timewindow.ParseClock(*u.EndTime); err != nil {
			invalid = append(invalid, "endTime")
		} else {
			next.EndMinutes = timewindow.QuantizeTimeOfDay(m)
		}
	}
	if u.Timezone != nil {
		next.Timezone = strings.TrimSpace(*u.Timezone)
	}
	if u.DaysWithoutSignal != nil {
		next.DaysWithoutSignal = *u.DaysWithoutSignal
	}
	if u.Format != nil {
		format, ok := model.ParseFormat(strings.ToLower(strings.TrimSpace(*u.Format)))
		if !ok {
			invalid = append(invalid, "format")
		}
		next.Format = format
	}

	if err := errs.Validation(invalid...); err != nil {
		return err
	}
	f.settings = next
	f.syncClock()
	return nil
}

func (f *Form) Settings() Settings { return f.settings }

func (f *Form) Variant() report.Variant { return f.variant }

// Selection exposes the tracker selection of the form.
func (f *Form) Selection() *selection.Model { return f.selection }

// submission captures the form as an immutable submission.
func (f *Form) submission(p Principal) report.Submission {
	s := report.Submission{
		SessionKey:        p.SessionKey,
		OwnerID:           p.OwnerID,
		TrackerIDs:        f.selection.Selected(),
		DaysWithoutSignal: f.settings.DaysWithoutSignal,
		Title:             f.settings.Title,
		Format:            f.settings.Format,
	}
	if f.variant.NeedsWindow() {
		s.Window = timewindow.Window{
			StartDate:    f.settings.StartDate,
			EndDate:      f.settings.EndDate,
			StartMinutes: f.settings.StartMinutes,
			EndMinutes:   f.settings.EndMinutes,
			Timezone:     f.settings.Timezone,
		}
	}
	return s
}
