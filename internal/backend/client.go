// Package backend is the HTTP client of the report and tracker directory
// service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"fleet-report-builder/config"
	"fleet-report-builder/internal/errs"
	"fleet-report-builder/internal/model"
)

const (
	reportIDHeader = "X-Report-Id"
	maxErrorBody   = 512
)

// Client talks to the backend over HTTP. It is safe for concurrent use.
type Client struct {
	cfg    config.BackendConfig
	client *http.Client
	log    zerolog.Logger
}

// NewClient creates a backend client from the configuration.
func NewClient(cfg config.BackendConfig, log zerolog.Logger) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warn().Err(err).Str("proxy", cfg.HTTPProxy).Msg("invalid proxy url, backend client will not use a proxy")
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		log: log.With().Str("component", "backend").Logger(),
	}
}

type listEnvelope struct {
	Success bool            `json:"success"`
	List    json.RawMessage `json:"list"`
}

// ListTrackers fetches the tracker directory.
func (c *Client) ListTrackers(ctx context.Context, sessionKey string) ([]model.Tracker, error) {
	const op = "list trackers"
	var trackers []model.Tracker
	if err := c.getList(ctx, op, "/api/trackers", url.Values{"sessionKey": {sessionKey}}, &trackers); err != nil {
		return nil, err
	}
	return trackers, nil
}

// ListTrackerGroups fetches the tracker groups.
func (c *Client) ListTrackerGroups(ctx context.Context, sessionKey string) ([]model.TrackerGroup, error) {
	const op = "list tracker groups"
	var groups []model.TrackerGroup
	if err := c.getList(ctx, op, "/api/tracker-groups", url.Values{"sessionKey": {sessionKey}}, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *Client) getList(ctx context.Context, op, path string, query url.Values, out any) error {
	body, _, err := c.do(ctx, op, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}

	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &errs.MalformedResponseError{Op: op, Err: err}
	}
	if !env.Success || !isJSONArray(env.List) {
		return &errs.MalformedResponseError{Op: op, Err: fmt.Errorf("unexpected data format: success=%t", env.Success)}
	}
	if err := json.Unmarshal(env.List, out); err != nil {
		return &errs.MalformedResponseError{Op: op, Err: err}
	}
	return nil
}

// ListReports fetches the reports previously generated for ownerID. The
// backend answers with a bare array or with {"data": [...]}.
func (c *Client) ListReports(ctx context.Context, ownerID, sessionKey string) ([]model.ReportRecord, error) {
	const op = "list reports"
	body, _, err := c.do(ctx, op, http.MethodGet, "/api/reports", url.Values{
		"userId":     {ownerID},
		"sessionKey": {sessionKey},
	}, nil)
	if err != nil {
		return nil, err
	}

	raw := json.RawMessage(body)
	if !isJSONArray(raw) {
		var wrapped struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil || !isJSONArray(wrapped.Data) {
			return nil, &errs.MalformedResponseError{Op: op, Err: fmt.Errorf("reports payload is not an array")}
		}
		raw = wrapped.Data
	}

	var records []model.ReportRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &errs.MalformedResponseError{Op: op, Err: err}
	}
	return records, nil
}

// GenerateCheckins requests a check-ins report.
func (c *Client) GenerateCheckins(ctx context.Context, req model.ReportRequest) (*model.Payload, error) {
	return c.generate(ctx, "generate checkins report", "/api/checkins", req)
}

// GenerateEngineHours requests an engine hours report.
func (c *Client) GenerateEngineHours(ctx context.Context, req model.ReportRequest) (*model.Payload, error) {
	return c.generate(ctx, "generate engine hours report", "/api/engine-hours", req)
}

// GenerateStaleGPS requests a stale GPS report.
func (c *Client) GenerateStaleGPS(ctx context.Context, req model.ReportRequest) (*model.Payload, error) {
	return c.generate(ctx, "generate stale gps report", "/api/stale-gps", req)
}

func (c *Client) generate(ctx context.Context, op, path string, req model.ReportRequest) (*model.Payload, error) {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	body, header, err := c.do(ctx, op, http.MethodPost, path, nil, jsonBody)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, &errs.MalformedResponseError{Op: op, Err: fmt.Errorf("empty response body")}
	}

	payload := &model.Payload{
		Data:        body,
		ContentType: header.Get("Content-Type"),
	}
	if raw := header.Get(reportIDHeader); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			payload.ReportID = &id
		} else {
			c.log.Warn().Str("value", raw).Msg("ignoring non-numeric report id header")
		}
	}
	return payload, nil
}

// DownloadReport fetches a stored report in the requested format.
func (c *Client) DownloadReport(ctx context.Context, reportID int64, format model.Format) (*model.Payload, error) {
	const op = "download report"
	path := fmt.Sprintf("/api/reports/%d/download/%s", reportID, format)
	body, header, err := c.do(ctx, op, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	contentType := header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = format.MimeType()
	}
	id := reportID
	return &model.Payload{Data: body, ContentType: contentType, ReportID: &id}, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, jsonBody []byte) ([]byte, http.Header, error) {
	target := c.cfg.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if jsonBody != nil {
		reqBody = bytes.NewReader(jsonBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.cfg.Headers {
		req.Header.Set(key, value)
	}
	if jsonBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, &errs.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &errs.NetworkError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := errs.Truncate(strings.TrimSpace(string(body)), maxErrorBody)
		return nil, nil, &errs.BackendError{Op: op, Status: resp.StatusCode, Body: snippet}
	}

	c.log.Debug().Str("op", op).Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("backend call finished")
	return body, resp.Header, nil
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
