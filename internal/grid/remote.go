// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tomanizer/markdown-converter/internal/httputil"
	"github.com/tomanizer/markdown-converter/pkg/types"
)

// Client talks to a remote scheduler (a Server from this package) over HTTP.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds a scheduler client for the given base URL.
func NewClient(base string) *Client {
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// submitRequest is the POST /jobs payload.
type submitRequest struct {
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`
}

// Health verifies the scheduler is reachable and responding.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scheduler health check returned %s", resp.Status)
	}
	return nil
}

// SubmitJob submits a directory conversion and returns the scheduler's job
// record.
func (c *Client) SubmitJob(ctx context.Context, inputDir, outputDir string) (types.JobRecord, error) {
	body, err := json.Marshal(submitRequest{InputDir: inputDir, OutputDir: outputDir})
	if err != nil {
		return types.JobRecord{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/jobs", bytes.NewReader(body))
	if err != nil {
		return types.JobRecord{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var rec types.JobRecord
	if err := c.do(req, http.StatusAccepted, &rec); err != nil {
		return types.JobRecord{}, fmt.Errorf("submitting job: %w", err)
	}
	return rec, nil
}

// JobStatus fetches the current record for a job.
func (c *Client) JobStatus(ctx context.Context, id string) (types.JobRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/jobs/"+id, nil)
	if err != nil {
		return types.JobRecord{}, err
	}
	var rec types.JobRecord
	if err := c.do(req, http.StatusOK, &rec); err != nil {
		return types.JobRecord{}, fmt.Errorf("fetching job %s: %w", id, err)
	}
	return rec, nil
}

// Jobs lists all jobs the scheduler tracks.
func (c *Client) Jobs(ctx context.Context) ([]types.JobRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/jobs", nil)
	if err != nil {
		return nil, err
	}
	var recs []types.JobRecord
	if err := c.do(req, http.StatusOK, &recs); err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return recs, nil
}

// CancelJob requests cancellation; false means the job was already terminal
// or unknown to the scheduler.
func (c *Client) CancelJob(ctx context.Context, id string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.base+"/jobs/"+id, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusConflict, http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("cancel returned %s", resp.Status)
	}
}

// do executes the request, retrying transient scheduler responses, and
// decodes a JSON response into out when the status matches.
func (c *Client) do(req *http.Request, wantStatus int, out any) error {
	resp, err := httputil.DoWithRetry(req.Context(), c.http, req, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
