package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-report-builder/internal/artifact"
	"fleet-report-builder/internal/dispatch"
	"fleet-report-builder/internal/errs"
	"fleet-report-builder/internal/model"
	"fleet-report-builder/internal/render"
	"fleet-report-builder/internal/report"
)

type fakeBackend struct {
	mu          sync.Mutex
	trackers    []model.Tracker
	groups      []model.TrackerGroup
	records     []model.ReportRecord
	dirErr      error
	downloadErr error
	generated   []model.ReportRequest
	downloads   []model.Format
	invalidated int
	reportID    int64
}

func (b *fakeBackend) ListTrackers(context.Context, string) ([]model.Tracker, error) {
	if b.dirErr != nil {
		return nil, b.dirErr
	}
	return b.trackers, nil
}

func (b *fakeBackend) ListTrackerGroups(context.Context, string) ([]model.TrackerGroup, error) {
	return b.groups, nil
}

func (b *fakeBackend) Invalidate(string) { b.invalidated++ }

func (b *fakeBackend) ListReports(context.Context, string, string) ([]model.ReportRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.records, nil
}

func (b *fakeBackend) DownloadReport(_ context.Context, reportID int64, format model.Format) (*model.Payload, error) {
	if b.downloadErr != nil {
		return nil, b.downloadErr
	}
	b.downloads = append(b.downloads, format)
	return &model.Payload{Data: []byte("bytes"), ContentType: format.MimeType(), ReportID: &reportID}, nil
}

func (b *fakeBackend) generate(req model.ReportRequest) (*model.Payload, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generated = append(b.generated, req)
	b.reportID++
	id := b.reportID
	b.records = append(b.records, model.ReportRecord{ID: id, ReportTitle: req.ReportTitle, GeneratedAt: time.Now()})
	return &model.Payload{Data: []byte("%PDF"), ContentType: model.MimePDF, ReportID: &id}, nil
}

func (b *fakeBackend) GenerateCheckins(_ context.Context, req model.ReportRequest) (*model.Payload, error) {
	return b.generate(req)
}

func (b *fakeBackend) GenerateEngineHours(_ context.Context, req model.ReportRequest) (*model.Payload, error) {
	return b.generate(req)
}

func (b *fakeBackend) GenerateStaleGPS(_ context.Context, req model.ReportRequest) (*model.Payload, error) {
	return b.generate(req)
}

func newController(t *testing.T) (*Controller, *fakeBackend, *artifact.Registry) {
	t.Helper()
	b := &fakeBackend{
		trackers: []model.Tracker{
			{ID: 1, Label: "Van", GroupID: 10, HasEngineHours: true},
			{ID: 2, Label: "Bike", GroupID: 10},
			{ID: 3, Label: "Truck", GroupID: 0, HasEngineHours: true},
		},
		groups: []model.TrackerGroup{{ID: 10, Title: "Depot"}},
	}
	registry := artifact.NewRegistry(time.Minute)
	catalog := report.NewCatalog()
	deps := Deps{
		Catalog:    catalog,
		Directory:  b,
		Reports:    b,
		Downloader: b,
		Dispatcher: dispatch.New(catalog, b, registry, render.NewRenderer(), zerolog.Nop()),
		Artifacts:  registry,
		Defaults:   Defaults{Timezone: "UTC", Format: model.FormatPDF, DaysWithoutSignal: 1},
		Highlight:  50 * time.Millisecond,
		Log:        zerolog.Nop(),
	}
	c := New(Principal{SessionKey: "sess", OwnerID: "customer_123"}, deps)
	c.now = func() time.Time { return time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC) }
	t.Cleanup(c.Close)
	return c, b, registry
}

func TestController_Transitions(t *testing.T) {
	c, _, _ := newController(t)
	ctx := context.Background()

	assert.Equal(t, StepReportsHome, c.Step())
	assert.ErrorIs(t, c.Back(), ErrInvalidTransition)
	assert.ErrorIs(t, c.SelectType(ctx, report.KindCheckins), ErrInvalidTransition)

	require.NoError(t, c.CreateReport())
	assert.Equal(t, StepTypeSelection, c.Step())
	assert.ErrorIs(t, c.CreateReport(), ErrInvalidTransition)

	assert.ErrorIs(t, c.SelectType(ctx, "fuel"), errs.ErrUnsupportedVariant)
	assert.Equal(t, StepTypeSelection, c.Step())

	require.NoError(t, c.SelectType(ctx, report.KindEngineHours))
	assert.Equal(t, StepConfiguration, c.Step())
	assert.Equal(t, report.KindEngineHours, c.View().Kind)
	_, err := c.OpenReport(ctx, 1, "x")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, c.Back())
	assert.Equal(t, StepTypeSelection, c.Step())
	assert.Empty(t, c.View().Kind, "back discards the variant")
	_, err = c.Objects()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, c.Back())
	assert.Equal(t, StepReportsHome, c.Step())
}

func TestController_FormDefaults(t *testing.T) {
	c, _, _ := newController(t)
	c.deps.Defaults.Timezone = "Europe/Berlin"
	require.NoError(t, c.CreateReport())
	require.NoError(t, c.SelectType(context.Background(), report.KindCheckins))

	settings := c.View().Settings
	require.NotNil(t, settings)
	assert.Equal(t, "2024-03-11", settings.StartDate, "today in the default timezone")
	assert.Equal(t, "2024-03-11", settings.EndDate)
	assert.Equal(t, 0, settings.StartMinutes)
	assert.Equal(t, 1439, settings.EndMinutes)
	assert.Equal(t, "23:59", settings.EndTime)
	assert.Equal(t, 1, settings.DaysWithoutSignal)
	assert.Equal(t, model.FormatPDF, settings.Format)
}

func TestController_SettingsQuantize(t *testing.T) {
	c, _, _ := newController(t)
	require.NoError(t, c.CreateReport())
	require.NoError(t, c.SelectType(context.Background(), report.KindCheckins))

	start, end := 548, 1500
	settings, err := c.UpdateSettings(SettingsUpdate{StartMinutes: &start, EndMinutes: &end})
	require.NoError(t, err)
	assert.Equal(t, 555, settings.StartMinutes)
	assert.Equal(t, "09:15", settings.StartTime)
	assert.Equal(t, 1439, settings.EndMinutes)

	clock := "07:08"
	settings, err = c.UpdateSettings(SettingsUpdate{StartTime: &clock})
	require.NoError(t, err)
	assert.Equal(t, 7*60+15, settings.StartMinutes)

	bad := "doc"
	title := "kept?"
	settings, err = c.UpdateSettings(SettingsUpdate{Format: &bad, Title: &title})
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, []string{"format"}, errs.Fields(err))
	assert.Empty(t, settings.Title, "rejected updates change nothing")
}

func TestController_EngineHoursFilter(t *testing.T) {
	c, b, _ := newController(t)
	ctx := context.Background()
	require.NoError(t, c.CreateReport())
	require.NoError(t, c.SelectType(ctx, report.KindEngineHours))

	assert.ErrorIs(t, c.Toggle(2, true), errs.ErrValidation)
	require.NoError(t, c.SelectAll(true))
	assert.Equal(t, []int64{1, 3}, c.View().Selected)

	attempt, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, attempt.Request.TrackerIDs)
	assert.NotContains(t, b.generated[0].TrackerIDs, int64(2))
}

func TestController_SubmitReplacesResultAndHighlights(t *testing.T) {
	c, b, registry := newController(t)
	ctx := context.Background()
	require.NoError(t, c.CreateReport())
	require.NoError(t, c.SelectType(ctx, report.KindCheckins))
	require.NoError(t, c.SelectGroup(10, true))

	first, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "checkins report", first.Request.ReportTitle)

	second, err := c.Submit(ctx)
	require.NoError(t, err)
	_, err = registry.Get(first.Artifact.ID)
	assert.ErrorIs(t, err, artifact.ErrNotFound, "previous result is released")
	assert.Equal(t, second.Artifact.ID, c.View().Result.ID)
	assert.Len(t, b.generated, 2)

	id, ok := c.Board().Highlighted()
	require.True(t, ok)
	assert.Equal(t, int64(2), id)
	assert.Eventually(t, func() bool {
		_, ok := c.Board().Highlighted()
		return !ok
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, c.Back())
	_, err = registry.Get(second.Artifact.ID)
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestController_SubmitValidation(t *testing.T) {
	c, b, _ := newController(t)
	ctx := context.Background()
	require.NoError(t, c.CreateReport())
	require.NoError(t, c.SelectType(ctx, report.KindStaleGPS))
	require.NoError(t, c.SelectAll(true))

	days := 35
	_, err := c.UpdateSettings(SettingsUpdate{DaysWithoutSignal: &days})
	require.NoError(t, err)

	attempt, err := c.Submit(ctx)
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, dispatch.StateFailed, attempt.State)
	assert.Empty(t, b.generated)
	assert.NotEmpty(t, c.View().LastError)
}

func TestController_DirectoryFailureStillEntersConfiguration(t *testing.T) {
	c, b, _ := newController(t)
	b.dirErr = &errs.NetworkError{Op: "list trackers", Err: errors.New("refused")}
	require.NoError(t, c.CreateReport())

	err := c.SelectType(context.Background(), report.KindCheckins)
	assert.ErrorIs(t, err, errs.ErrNetwork)
	assert.Equal(t, StepConfiguration, c.Step())

	b.dirErr = nil
	require.NoError(t, c.Reload(context.Background()))
	assert.Equal(t, 1, b.invalidated)
	objects, err := c.Objects()
	require.NoError(t, err)
	assert.NotEmpty(t, objects)
}

func TestController_Viewer(t *testing.T) {
	c, b, registry := newController(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.CloseViewer(), ErrInvalidTransition)
	_, err := c.Download(ctx, model.FormatXLSX)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	viewer, err := c.OpenReport(ctx, 7, "Weekly")
	require.NoError(t, err)
	assert.Equal(t, "Weekly.pdf", viewer.Artifact.FileName)
	assert.ErrorIs(t, c.CreateReport(), ErrInvalidTransition)
	_, err = c.OpenReport(ctx, 8, "Other")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	download, err := c.Download(ctx, model.FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "Weekly.xlsx", download.FileName)
	assert.Equal(t, []model.Format{model.FormatPDF, model.FormatXLSX}, b.downloads)
	_, err = registry.Get(download.ID)
	require.NoError(t, err)

	pdfCopy, err := c.Download(ctx, model.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, 3, registry.Len())

	require.NoError(t, c.CloseViewer())
	for _, a := range []*model.GeneratedArtifact{viewer.Artifact, download, pdfCopy} {
		_, err = registry.Get(a.ID)
		assert.ErrorIs(t, err, artifact.ErrNotFound, a.FileName)
	}
	assert.Equal(t, 0, registry.Len())
	assert.Nil(t, c.View().Viewer)

	b.downloadErr = &errs.BackendError{Op: "download report", Status: 404}
	_, err = c.OpenReport(ctx, 9, "")
	assert.ErrorIs(t, err, errs.ErrBackend)
	assert.Nil(t, c.View().Viewer)
}

func TestController_CloseReleasesDownloads(t *testing.T) {
	c, _, registry := newController(t)
	ctx := context.Background()

	_, err := c.OpenReport(ctx, 7, "Weekly")
	require.NoError(t, err)
	_, err = c.Download(ctx, model.FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, 2, registry.Len())

	c.Close()
	assert.Equal(t, 0, registry.Len())
}

func TestController_Reload(t *testing.T) {
	c, b, _ := newController(t)
	b.records = []model.ReportRecord{{ID: 1, ReportTitle: "old"}}

	require.NoError(t, c.Reload(context.Background()))
	require.Len(t, c.Reports(), 1)
	assert.False(t, c.Reports()[0].Highlighted)
	assert.Zero(t, b.invalidated, "directory is only reloaded while configuring")
}
