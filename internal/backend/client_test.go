package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-report-builder/config"
	"fleet-report-builder/internal/errs"
	"fleet-report-builder/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.BackendConfig{
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
		Headers: map[string]string{"X-Client": "fleet-reports"},
	}, zerolog.Nop())
}

func TestClient_ListTrackers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/trackers", r.URL.Path)
		assert.Equal(t, "sess", r.URL.Query().Get("sessionKey"))
		assert.Equal(t, "fleet-reports", r.Header.Get("X-Client"))
		w.Write([]byte(`{"success":true,"list":[{"id":7,"label":"Van","group_id":3,"hasEngineHours":true}]}`))
	})

	trackers, err := client.ListTrackers(context.Background(), "sess")
	require.NoError(t, err)
	assert.Equal(t, []model.Tracker{{ID: 7, Label: "Van", GroupID: 3, HasEngineHours: true}}, trackers)
}

func TestClient_ListTrackerGroups_Malformed(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"success false", `{"success":false,"list":[]}`},
		{"list not array", `{"success":true,"list":{"id":1}}`},
		{"list missing", `{"success":true}`},
		{"not json", `<html>`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			})
			_, err := client.ListTrackerGroups(context.Background(), "sess")
			assert.ErrorIs(t, err, errs.ErrMalformedResponse)
		})
	}
}

func TestClient_ListReports(t *testing.T) {
	generated := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	records := []model.ReportRecord{{ID: 1, ReportType: "checkins", ReportTitle: "May", FileFormat: "pdf", GeneratedAt: generated}}
	bare, _ := json.Marshal(records)
	wrapped, _ := json.Marshal(map[string]any{"data": records})

	for name, body := range map[string][]byte{"bare array": bare, "data envelope": wrapped} {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "customer_123", r.URL.Query().Get("userId"))
				w.Write(body)
			})
			got, err := client.ListReports(context.Background(), "customer_123", "sess")
			require.NoError(t, err)
			assert.Equal(t, records, got)
		})
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":"nope"}`))
	})
	_, err := client.ListReports(context.Background(), "customer_123", "sess")
	assert.ErrorIs(t, err, errs.ErrMalformedResponse)
}

func TestClient_GenerateEngineHours(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/engine-hours", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req model.ReportRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []int64{1, 2}, req.TrackerIDs)
		assert.Equal(t, "engineHours", req.ReportType)

		w.Header().Set("Content-Type", model.MimePDF)
		w.Header().Set("X-Report-Id", "55")
		w.Write([]byte("%PDF-1.4"))
	})

	payload, err := client.GenerateEngineHours(context.Background(), model.ReportRequest{
		TrackerIDs: []int64{1, 2},
		ReportType: "engineHours",
	})
	require.NoError(t, err)
	assert.Equal(t, model.MimePDF, payload.ContentType)
	assert.Equal(t, []byte("%PDF-1.4"), payload.Data)
	require.NotNil(t, payload.ReportID)
	assert.Equal(t, int64(55), *payload.ReportID)
}

func TestClient_GenerateRoutes(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte("ok"))
	})

	ctx := context.Background()
	_, err := client.GenerateCheckins(ctx, model.ReportRequest{})
	require.NoError(t, err)
	_, err = client.GenerateStaleGPS(ctx, model.ReportRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/checkins", "/api/stale-gps"}, paths)
}

func TestClient_GenerateErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})
	_, err := client.GenerateCheckins(context.Background(), model.ReportRequest{})
	var berr *errs.BackendError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, http.StatusBadGateway, berr.Status)
	assert.Equal(t, "upstream down", berr.Body)

	empty := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err = empty.GenerateCheckins(context.Background(), model.ReportRequest{})
	assert.ErrorIs(t, err, errs.ErrMalformedResponse)

	offline := NewClient(config.BackendConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, zerolog.Nop())
	_, err = offline.GenerateCheckins(context.Background(), model.ReportRequest{})
	assert.ErrorIs(t, err, errs.ErrNetwork)
}

func TestClient_DownloadReport(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reports/9/download/xlsx", r.URL.Path)
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("PK"))
	})

	payload, err := client.DownloadReport(context.Background(), 9, model.FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, []byte("PK"), payload.Data)
	assert.Equal(t, int64(9), *payload.ReportID)
	assert.Equal(t, model.MimeXLSX, payload.ContentType)
}

type countingDirectory struct {
	trackerCalls atomic.Int32
	groupCalls   atomic.Int32
	fail         bool
}

func (d *countingDirectory) ListTrackers(context.Context, string) ([]model.Tracker, error) {
	d.trackerCalls.Add(1)
	if d.fail {
		return nil, &errs.NetworkError{Op: "list trackers", Err: context.DeadlineExceeded}
	}
	return []model.Tracker{{ID: 1}}, nil
}

func (d *countingDirectory) ListTrackerGroups(context.Context, string) ([]model.TrackerGroup, error) {
	d.groupCalls.Add(1)
	return []model.TrackerGroup{{ID: 2}}, nil
}

func TestCachedDirectory(t *testing.T) {
	next := &countingDirectory{}
	dir := NewCachedDirectory(next, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		trackers, err := dir.ListTrackers(ctx, "sess")
		require.NoError(t, err)
		assert.Len(t, trackers, 1)
		_, err = dir.ListTrackerGroups(ctx, "sess")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), next.trackerCalls.Load())
	assert.Equal(t, int32(1), next.groupCalls.Load())

	_, _ = dir.ListTrackers(ctx, "other")
	assert.Equal(t, int32(2), next.trackerCalls.Load(), "cache is keyed by session")

	dir.Invalidate("sess")
	_, _ = dir.ListTrackers(ctx, "sess")
	assert.Equal(t, int32(3), next.trackerCalls.Load())
}

func TestCachedDirectory_DoesNotCacheFailures(t *testing.T) {
	next := &countingDirectory{fail: true}
	dir := NewCachedDirectory(next, time.Minute)

	_, err := dir.ListTrackers(context.Background(), "sess")
	assert.ErrorIs(t, err, errs.ErrNetwork)
	_, _ = dir.ListTrackers(context.Background(), "sess")
	assert.Equal(t, int32(2), next.trackerCalls.Load())
}

func TestClient_ErrorBodyKeepsValidUTF8(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("x" + strings.Repeat("ошибка", 200)))
	})

	_, err := client.GenerateCheckins(context.Background(), model.ReportRequest{})
	var berr *errs.BackendError
	require.ErrorAs(t, err, &berr)
	assert.LessOrEqual(t, len(berr.Body), maxErrorBody)
	assert.True(t, utf8.ValidString(berr.Body))
}
