// Package dispatch turns a configured submission into exactly one backend
// generation call and wraps the answer into a viewable artifact.
package dispatch

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fleet-report-builder/internal/artifact"
	"fleet-report-builder/internal/backend"
	"fleet-report-builder/internal/errs"
	"fleet-report-builder/internal/model"
	"fleet-report-builder/internal/render"
	"fleet-report-builder/internal/report"
	"fleet-report-builder/internal/selection"
	"fleet-report-builder/internal/timewindow"
)

// State is a step of a single submission.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSending    State = "sending"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Attempt is the outcome of one Submit call.
type Attempt struct {
	Kind       report.Kind
	Submission report.Submission
	State      State
	History    []State
	Request    *model.ReportRequest
	Artifact   *model.GeneratedArtifact
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

func (a *Attempt) enter(s State) {
	a.State = s
	a.History = append(a.History, s)
}

// Succeeded reports whether the attempt produced an artifact.
func (a *Attempt) Succeeded() bool {
	return a.State == StateSucceeded
}

// GeneratedEvent is published after a successful generation.
type GeneratedEvent struct {
	OwnerID    string
	SessionKey string
	Kind       report.Kind
	Title      string
	ReportID   *int64
	Artifact   *model.GeneratedArtifact
}

// Listener is notified of every successful generation.
type Listener interface {
	ReportGenerated(ctx context.Context, event GeneratedEvent)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event GeneratedEvent)

func (f ListenerFunc) ReportGenerated(ctx context.Context, event GeneratedEvent) {
	f(ctx, event)
}

// Recorder persists the terminal state of attempts.
type Recorder interface {
	RecordSubmission(ctx context.Context, entry *model.SubmissionLog) error
}

// Dispatcher is safe for concurrent use. Each Submit works on its own
// copy of the submission.
type Dispatcher struct {
	catalog   *report.Catalog
	generator report.Generator
	artifacts *artifact.Registry
	renderer  *render.Renderer
	recorder  Recorder
	directory backend.Directory
	listeners []Listener
	log       zerolog.Logger
	now       func() time.Time
}

func New(catalog *report.Catalog, generator report.Generator, artifacts *artifact.Registry, renderer *render.Renderer, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		catalog:   catalog,
		generator: generator,
		artifacts: artifacts,
		renderer:  renderer,
		log:       log.With().Str("component", "dispatch").Logger(),
		now:       time.Now,
	}
}

// WithRecorder returns a copy of the dispatcher that records attempts.
func (d *Dispatcher) WithRecorder(r Recorder) *Dispatcher {
	clone := *d
	clone.recorder = r
	return &clone
}

// WithDirectory returns a copy of the dispatcher that rejects tracker ids
// the directory does not list or the variant does not admit.
func (d *Dispatcher) WithDirectory(dir backend.Directory) *Dispatcher {
	clone := *d
	clone.directory = dir
	return &clone
}

// WithListener returns a copy of the dispatcher with l added to its listeners.
func (d *Dispatcher) WithListener(l Listener) *Dispatcher {
	clone := *d
	clone.listeners = append(append([]Listener(nil), d.listeners...), l)
	return &clone
}

// Submit runs one submission to completion. It never returns nil.
func (d *Dispatcher) Submit(ctx context.Context, kind report.Kind, s report.Submission) *Attempt {
	attempt := &Attempt{
		Kind:       kind,
		Submission: s.Clone(),
		StartedAt:  d.now(),
	}
	attempt.enter(StateIdle)

	if err := d.run(ctx, attempt); err != nil {
		attempt.Err = err
		attempt.enter(StateFailed)
		d.logFailure(attempt)
	} else {
		attempt.enter(StateSucceeded)
	}
	attempt.FinishedAt = d.now()

	d.record(ctx, attempt)
	if attempt.Succeeded() {
		event := GeneratedEvent{
			OwnerID:    attempt.Submission.OwnerID,
			SessionKey: attempt.Submission.SessionKey,
			Kind:       kind,
			Title:      attempt.Artifact.Title,
			ReportID:   attempt.Artifact.ReportID,
			Artifact:   attempt.Artifact,
		}
		for _, l := range d.listeners {
			l.ReportGenerated(ctx, event)
		}
	}
	return attempt
}

func (d *Dispatcher) run(ctx context.Context, attempt *Attempt) error {
	attempt.enter(StateValidating)
	variant, err := d.catalog.Lookup(attempt.Kind)
	if err != nil {
		return err
	}
	s := attempt.Submission
	if err := variant.Validate(s); err != nil {
		return err
	}
	if d.directory != nil {
		if err := d.checkAdmitted(ctx, variant, s); err != nil {
			return err
		}
	}

	var window *timewindow.Range
	if variant.NeedsWindow() {
		normalized, err := timewindow.Normalize(s.Window)
		if err != nil {
			return err
		}
		window = &normalized
	}

	req, err := variant.Build(s, window)
	if err != nil {
		return err
	}
	attempt.Request = &req

	attempt.enter(StateSending)
	payload, err := variant.Generate(ctx, d.generator, req)
	if err != nil {
		return err
	}

	a, err := d.wrap(req.ReportTitle, s.Format, payload)
	if err != nil {
		return err
	}
	attempt.Artifact = a
	return nil
}

// checkAdmitted runs the submitted ids through a selection model filtered
// by the variant, as the wizard form does.
func (d *Dispatcher) checkAdmitted(ctx context.Context, variant report.Variant, s report.Submission) error {
	trackers, err := d.directory.ListTrackers(ctx, s.SessionKey)
	if err != nil {
		return err
	}
	groups, err := d.directory.ListTrackerGroups(ctx, s.SessionKey)
	if err != nil {
		return err
	}

	m := selection.New(variant.Admits)
	m.SetDirectory(trackers, groups)
	for _, id := range s.TrackerIDs {
		if !m.Toggle(id, true) {
			d.log.Debug().Int64("tracker", id).Str("kind", string(variant.Kind())).Msg("tracker not admitted")
			return errs.Validation("trackerIds")
		}
	}
	return nil
}

// wrap registers the payload as an artifact. JSON payloads are rendered
// into the preferred format first.
func (d *Dispatcher) wrap(title string, format model.Format, payload *model.Payload) (*model.GeneratedArtifact, error) {
	data := payload.Data
	contentType := payload.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	if isJSON(contentType) {
		if format == "" {
			format = model.FormatPDF
		}
		rendered, err := d.renderer.Render(title, data, format)
		if err != nil {
			return nil, &errs.MalformedResponseError{Op: "render report", Err: err}
		}
		data = rendered
		contentType = format.MimeType()
	}

	return d.artifacts.Create(title, artifact.FileName(title, contentType), contentType, data, payload.ReportID), nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType == model.MimeJSON || strings.HasSuffix(mediaType, "+json")
}

func (d *Dispatcher) record(ctx context.Context, attempt *Attempt) {
	if d.recorder == nil {
		return
	}
	entry := &model.SubmissionLog{
		OwnerID:      attempt.Submission.OwnerID,
		ReportType:   string(attempt.Kind),
		ReportTitle:  report.DefaultTitle(attempt.Kind, attempt.Submission.Title),
		TrackerCount: len(attempt.Submission.TrackerIDs),
		Outcome:      model.OutcomeSucceeded,
		CreatedAt:    attempt.FinishedAt.UTC(),
	}
	if attempt.Err != nil {
		entry.Outcome = model.OutcomeFailed
		entry.Error = errs.Truncate(attempt.Err.Error(), 1024)
	}
	if attempt.Artifact != nil {
		entry.ReportID = attempt.Artifact.ReportID
	}
	if err := d.recorder.RecordSubmission(ctx, entry); err != nil {
		d.log.Warn().Err(err).Str("owner", entry.OwnerID).Msg("failed to record submission")
	}
}

func (d *Dispatcher) logFailure(attempt *Attempt) {
	evt := d.log.Warn()
	switch {
	case errors.Is(attempt.Err, errs.ErrValidation):
		evt = d.log.Debug()
	case errors.Is(attempt.Err, errs.ErrConfiguration):
		evt = d.log.Error()
	}
	evt.Err(attempt.Err).
		Str("kind", string(attempt.Kind)).
		Str("owner", attempt.Submission.OwnerID).
		Msg("report submission failed")
}
