// Package wizard drives report creation: reports home, type selection and
// configuration, with a viewer overlay for existing reports.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fleet-report-builder/internal/artifact"
	"fleet-report-builder/internal/backend"
	"fleet-report-builder/internal/dispatch"
	"fleet-report-builder/internal/errs"
	"fleet-report-builder/internal/model"
	"fleet-report-builder/internal/report"
	"fleet-report-builder/internal/reportlist"
	"fleet-report-builder/internal/selection"
)

var ErrInvalidTransition = errors.New("invalid wizard transition")

// Step is a wizard screen.
type Step string

const (
	StepReportsHome   Step = "reportsHome"
	StepTypeSelection Step = "typeSelection"
	StepConfiguration Step = "configuration"
)

// Principal is the session credential and the owner reports belong to.
type Principal struct {
	SessionKey string
	OwnerID    string
}

// Downloader fetches stored reports.
type Downloader interface {
	DownloadReport(ctx context.Context, reportID int64, format model.Format) (*model.Payload, error)
}

type invalidator interface {
	Invalidate(sessionKey string)
}

// Deps are the collaborators shared by all wizards.
type Deps struct {
	Catalog    *report.Catalog
	Directory  backend.Directory
	Reports    reportlist.Lister
	Downloader Downloader
	Dispatcher *dispatch.Dispatcher
	Artifacts  *artifact.Registry
	Defaults   Defaults
	Highlight  time.Duration
	Log        zerolog.Logger
}

// Viewer is an open existing report.
type Viewer struct {
	ReportID int64                    `json:"reportId"`
	Title    string                   `json:"title"`
	Artifact *model.GeneratedArtifact `json:"artifact"`
}

// View is a snapshot of the wizard for presentation.
type View struct {
	ID        uuid.UUID                `json:"id"`
	Step      Step                     `json:"step"`
	Kind      report.Kind              `json:"kind,omitempty"`
	Settings  *Settings                `json:"settings,omitempty"`
	Selected  []int64                  `json:"selected,omitempty"`
	Viewer    *Viewer                  `json:"viewer,omitempty"`
	Result    *model.GeneratedArtifact `json:"result,omitempty"`
	LastError string                   `json:"lastError,omitempty"`
}

// Controller is one user's wizard. All methods are safe for concurrent use;
// operations on the same controller are serialized.
type Controller struct {
	id         uuid.UUID
	principal  Principal
	deps       Deps
	board      *reportlist.Board
	dispatcher *dispatch.Dispatcher
	log        zerolog.Logger
	now        func() time.Time

	mu      sync.Mutex
	step    Step
	form    *Form
	viewer  *Viewer
	// downloads are the artifacts fetched from the open viewer.
	downloads []*model.GeneratedArtifact
	result    *model.GeneratedArtifact
	lastErr error
}

// New creates a wizard at the reports home step.
func New(p Principal, deps Deps) *Controller {
	id := uuid.New()
	log := deps.Log.With().Str("wizard", id.String()).Str("owner", p.OwnerID).Logger()
	board := reportlist.NewBoard(deps.Reports, p.OwnerID, p.SessionKey, deps.Highlight, log)
	return &Controller{
		id:         id,
		principal:  p,
		deps:       deps,
		board:      board,
		dispatcher: deps.Dispatcher.WithListener(board),
		log:        log,
		now:        time.Now,
		step:       StepReportsHome,
	}
}

func (c *Controller) ID() uuid.UUID { return c.id }

func (c *Controller) Principal() Principal { return c.principal }

// Board is the report list shown on the home step.
func (c *Controller) Board() *reportlist.Board { return c.board }

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func invalid(op string, step Step) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, step)
}

// CreateReport moves from the reports home to type selection.
func (c *Controller) CreateReport() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepReportsHome || c.viewer != nil {
		return invalid("createReport", c.step)
	}
	c.step = StepTypeSelection
	return nil
}

// SelectType enters configuration for kind and loads the tracker directory
// into a fresh form. A directory failure still enters configuration with an
// empty object list and is returned to the caller.
func (c *Controller) SelectType(ctx context.Context, kind report.Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepTypeSelection {
		return invalid("selectType", c.step)
	}
	variant, err := c.deps.Catalog.Lookup(kind)
	if err != nil {
		c.log.Error().Err(err).Str("kind", string(kind)).Msg("unsupported report type")
		return err
	}

	c.form = newForm(variant, c.deps.Defaults, c.now())
	c.step = StepConfiguration
	return c.loadDirectoryLocked(ctx)
}

func (c *Controller) loadDirectoryLocked(ctx context.Context) error {
	trackers, err := c.deps.Directory.ListTrackers(ctx, c.principal.SessionKey)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to load trackers")
		return err
	}
	groups, err := c.deps.Directory.ListTrackerGroups(ctx, c.principal.SessionKey)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to load tracker groups")
		return err
	}
	c.form.selection.SetDirectory(trackers, groups)
	return nil
}

// Back returns from configuration to type selection, discarding the form,
// or from type selection to the reports home.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.step {
	case StepConfiguration:
		c.discardFormLocked()
		c.step = StepTypeSelection
	case StepTypeSelection:
		c.step = StepReportsHome
	default:
		return invalid("back", c.step)
	}
	return nil
}

func (c *Controller) discardFormLocked() {
	c.form = nil
	c.deps.Artifacts.Release(c.result)
	c.result = nil
}

// OpenReport fetches a stored report as PDF and shows it in the viewer.
func (c *Controller) OpenReport(ctx context.Context, reportID int64, title string) (*Viewer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepReportsHome || c.viewer != nil {
		return nil, invalid("openReport", c.step)
	}

	payload, err := c.deps.Downloader.DownloadReport(ctx, reportID, model.FormatPDF)
	if err != nil {
		c.lastErr = err
		return nil, err
	}
	if title == "" {
		title = fmt.Sprintf("Report %d", reportID)
	}
	a := c.deps.Artifacts.Create(title, artifact.FileName(title, payload.ContentType), payload.ContentType, payload.Data, &reportID)
	c.viewer = &Viewer{ReportID: reportID, Title: title, Artifact: a}
	c.lastErr = nil
	return c.viewer, nil
}

// CloseViewer closes the viewer and releases its artifact and downloads.
func (c *Controller) CloseViewer() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.viewer == nil {
		return invalid("closeViewer", c.step)
	}
	c.closeViewerLocked()
	return nil
}

func (c *Controller) closeViewerLocked() {
	if c.viewer == nil {
		return
	}
	c.deps.Artifacts.Release(c.viewer.Artifact)
	for _, a := range c.downloads {
		c.deps.Artifacts.Release(a)
	}
	c.viewer = nil
	c.downloads = nil
}

// Download fetches the open report in format and returns it as
// "<title>.<ext>".
func (c *Controller) Download(ctx context.Context, format model.Format) (*model.GeneratedArtifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.viewer == nil {
		return nil, invalid("download", c.step)
	}

	payload, err := c.deps.Downloader.DownloadReport(ctx, c.viewer.ReportID, format)
	if err != nil {
		c.lastErr = err
		return nil, err
	}
	id := c.viewer.ReportID
	fileName := artifact.FileName(c.viewer.Title, format.MimeType())
	a := c.deps.Artifacts.Create(c.viewer.Title, fileName, payload.ContentType, payload.Data, &id)
	c.downloads = append(c.downloads, a)
	return a, nil
}

func (c *Controller) withForm(op string, fn func(f *Form) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepConfiguration || c.form == nil {
		return invalid(op, c.step)
	}
	return fn(c.form)
}

// Objects lists the trackers of the form grouped for display.
func (c *Controller) Objects() ([]selection.ListedGroup, error) {
	var listing []selection.ListedGroup
	err := c.withForm("objects", func(f *Form) error {
		listing = f.selection.Listing()
		return nil
	})
	return listing, err
}

func (c *Controller) SelectAll(selected bool) error {
	return c.withForm("selectAll", func(f *Form) error {
		f.selection.SelectAll(selected)
		return nil
	})
}

func (c *Controller) SelectGroup(groupID int64, selected bool) error {
	return c.withForm("selectGroup", func(f *Form) error {
		f.selection.SelectGroup(groupID, selected)
		return nil
	})
}

// Toggle selects or deselects one tracker. Trackers the variant does not
// admit are rejected.
func (c *Controller) Toggle(trackerID int64, selected bool) error {
	return c.withForm("toggle", func(f *Form) error {
		if !f.selection.Toggle(trackerID, selected) {
			c.log.Debug().Int64("tracker", trackerID).Msg("tracker is not selectable")
			return errs.Validation("trackerIds")
		}
		return nil
	})
}

func (c *Controller) UpdateSettings(u SettingsUpdate) (Settings, error) {
	var current Settings
	err := c.withForm("updateSettings", func(f *Form) error {
		err := f.Apply(u)
		current = f.settings
		return err
	})
	return current, err
}

// Submit generates the configured report. The form is snapshotted before
// the backend call; the new artifact replaces the previous result.
func (c *Controller) Submit(ctx context.Context) (*dispatch.Attempt, error) {
	c.mu.Lock()
	if c.step != StepConfiguration || c.form == nil {
		step := c.step
		c.mu.Unlock()
		return nil, invalid("submit", step)
	}
	form := c.form
	kind := form.variant.Kind()
	submission := form.submission(c.principal)
	c.mu.Unlock()

	attempt := c.dispatcher.Submit(ctx, kind, submission)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = attempt.Err
	if !attempt.Succeeded() {
		return attempt, attempt.Err
	}
	if c.form != form {
		// The form was discarded while the report was generating.
		c.deps.Artifacts.Release(attempt.Artifact)
		return attempt, nil
	}
	c.deps.Artifacts.Release(c.result)
	c.result = attempt.Artifact
	return attempt, nil
}

// Reload refreshes the report list, and in configuration also the tracker
// directory.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == StepConfiguration && c.form != nil {
		if inv, ok := c.deps.Directory.(invalidator); ok {
			inv.Invalidate(c.principal.SessionKey)
		}
		if err := c.loadDirectoryLocked(ctx); err != nil {
			return err
		}
	}
	return c.board.Refresh(ctx)
}

// Reports returns the report list with highlight flags.
func (c *Controller) Reports() []reportlist.Entry {
	return c.board.Entries()
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{ID: c.id, Step: c.step, Result: c.result}
	if c.viewer != nil {
		viewer := *c.viewer
		v.Viewer = &viewer
	}
	if c.form != nil {
		settings := c.form.settings
		v.Kind = c.form.variant.Kind()
		v.Settings = &settings
		v.Selected = c.form.selection.Selected()
	}
	if c.lastErr != nil {
		v.LastError = c.lastErr.Error()
	}
	return v
}

// Close releases every artifact held by the wizard.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeViewerLocked()
	c.discardFormLocked()
	c.board.Close()
}
