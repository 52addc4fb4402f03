package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-report-builder/internal/errs"
	"fleet-report-builder/internal/model"
	"fleet-report-builder/internal/timewindow"
)

type recordingGenerator struct {
	called string
}

func (g *recordingGenerator) GenerateCheckins(context.Context, model.ReportRequest) (*model.Payload, error) {
	g.called = "checkins"
	return &model.Payload{}, nil
}

func (g *recordingGenerator) GenerateEngineHours(context.Context, model.ReportRequest) (*model.Payload, error) {
	g.called = "engineHours"
	return &model.Payload{}, nil
}

func (g *recordingGenerator) GenerateStaleGPS(context.Context, model.ReportRequest) (*model.Payload, error) {
	g.called = "staleGPS"
	return &model.Payload{}, nil
}

func windowSubmission() Submission {
	return Submission{
		SessionKey: "sess",
		OwnerID:    "customer_123",
		TrackerIDs: []int64{1, 2},
		Window: timewindow.Window{
			StartDate:  "2024-05-01",
			EndDate:    "2024-05-02",
			EndMinutes: timewindow.MaxMinutes,
			Timezone:   "UTC",
		},
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c := NewCatalog()

	for _, kind := range []Kind{KindCheckins, KindEngineHours, KindStaleGPS} {
		v, err := c.Lookup(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, v.Kind())
	}

	_, err := c.Lookup("fuel")
	assert.ErrorIs(t, err, errs.ErrUnsupportedVariant)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestCatalog_Types(t *testing.T) {
	types := NewCatalog().Types()
	require.Len(t, types, 3)
	assert.Equal(t, TypeInfo{
		Kind:        KindEngineHours,
		Label:       "Engine Hours",
		Description: "Engine hours for selected vehicles over a specified time period",
	}, types[1])
}

func TestVariant_Validate(t *testing.T) {
	c := NewCatalog()

	testCases := []struct {
		name     string
		kind     Kind
		mutate   func(s *Submission)
		expected []string
	}{
		{"checkins complete", KindCheckins, func(s *Submission) {}, nil},
		{"checkins no trackers", KindCheckins, func(s *Submission) { s.TrackerIDs = nil }, []string{"trackerIds"}},
		{"engine hours missing dates", KindEngineHours, func(s *Submission) {
			s.Window.StartDate = ""
			s.Window.EndDate = " "
		}, []string{"startDate", "endDate"}},
		{"stale gps zero days", KindStaleGPS, func(s *Submission) { s.DaysWithoutSignal = 0 }, []string{"daysWithoutSignal"}},
		{"stale gps 35 days", KindStaleGPS, func(s *Submission) { s.DaysWithoutSignal = 35 }, []string{"daysWithoutSignal"}},
		{"stale gps 30 days", KindStaleGPS, func(s *Submission) { s.DaysWithoutSignal = 30 }, nil},
		{"stale gps ignores dates", KindStaleGPS, func(s *Submission) {
			s.Window = timewindow.Window{}
			s.DaysWithoutSignal = 1
		}, nil},
		{"stale gps no trackers", KindStaleGPS, func(s *Submission) {
			s.TrackerIDs = []int64{}
			s.DaysWithoutSignal = 5
		}, []string{"trackerIds"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := c.Lookup(tc.kind)
			require.NoError(t, err)

			s := windowSubmission()
			tc.mutate(&s)
			err = v.Validate(s)
			if tc.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, errs.ErrValidation)
			assert.Equal(t, tc.expected, errs.Fields(err))
		})
	}
}

func TestVariant_Admits(t *testing.T) {
	c := NewCatalog()
	withHours := model.Tracker{ID: 1, HasEngineHours: true}
	without := model.Tracker{ID: 2}

	eh, _ := c.Lookup(KindEngineHours)
	assert.True(t, eh.Admits(withHours))
	assert.False(t, eh.Admits(without))

	ci, _ := c.Lookup(KindCheckins)
	assert.True(t, ci.Admits(without))

	sg, _ := c.Lookup(KindStaleGPS)
	assert.True(t, sg.Admits(without))
}

func TestVariant_BuildWindowed(t *testing.T) {
	v, _ := NewCatalog().Lookup(KindEngineHours)
	s := windowSubmission()
	s.Title = "   "

	_, err := v.Build(s, nil)
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	req, err := v.Build(s, &timewindow.Range{StartUTC: "2024-05-01T00:00:00Z", EndUTC: "2024-05-02T23:59:00Z"})
	require.NoError(t, err)
	assert.Equal(t, model.ReportRequest{
		SessionKey:  "sess",
		TrackerIDs:  []int64{1, 2},
		StartDate:   "2024-05-01T00:00:00Z",
		EndDate:     "2024-05-02T23:59:00Z",
		UserID:      "customer_123",
		ReportType:  "engineHours",
		ReportTitle: "engineHours report",
	}, req)

	s.TrackerIDs[0] = 99
	assert.Equal(t, int64(1), req.TrackerIDs[0], "request owns its tracker ids")
}

func TestVariant_BuildStaleGPS(t *testing.T) {
	v, _ := NewCatalog().Lookup(KindStaleGPS)
	s := windowSubmission()
	s.DaysWithoutSignal = 7
	s.Title = "  Weekly stale  "

	req, err := v.Build(s, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, req.DaysWithoutSignal)
	assert.Empty(t, req.StartDate)
	assert.Equal(t, "Weekly stale", req.ReportTitle)
	assert.Equal(t, "staleGPS", req.ReportType)
}

func TestVariant_GenerateRoutesToBackendOperation(t *testing.T) {
	c := NewCatalog()
	for _, kind := range []Kind{KindCheckins, KindEngineHours, KindStaleGPS} {
		g := &recordingGenerator{}
		v, _ := c.Lookup(kind)
		_, err := v.Generate(context.Background(), g, model.ReportRequest{})
		require.NoError(t, err)
		assert.Equal(t, string(kind), g.called)
	}
}

func TestDefaultTitle(t *testing.T) {
	assert.Equal(t, "checkins report", DefaultTitle(KindCheckins, ""))
	assert.Equal(t, "engineHours report", DefaultTitle(KindEngineHours, "\t \n"))
	assert.Equal(t, "Fleet", DefaultTitle(KindStaleGPS, " Fleet "))
}

func TestSubmissionClone(t *testing.T) {
	s := windowSubmission()
	c := s.Clone()
	s.TrackerIDs[0] = 42
	assert.Equal(t, int64(1), c.TrackerIDs[0])
}
