package platform

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	RunStatusRunning  = "RUNNING"
	RunStatusFinished = "FINISHED"
	RunStatusFailed   = "FAILED"
)

type RunTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type RunInfo struct {
	RunID        string `json:"run_id"`
	RunName      string `json:"run_name,omitempty"`
	ExperimentID string `json:"experiment_id"`
	Status       string `json:"status,omitempty"`
	ArtifactURI  string `json:"artifact_uri,omitempty"`
}

type CreateRunRequest struct {
	ExperimentID string   `json:"experiment_id"`
	RunName      string   `json:"run_name,omitempty"`
	StartTime    int64    `json:"start_time"`
	Tags         []RunTag `json:"tags,omitempty"`
}

// a finished request trace as stored by the tracking service
type TraceRecord struct {
	RequestID       string            `json:"request_id"`
	ExperimentID    string            `json:"experiment_id,omitempty"`
	TimestampMs     int64             `json:"timestamp_ms"`
	ExecutionTimeMs int64             `json:"execution_time_ms"`
	Status          string            `json:"status"`
	RequestMetadata map[string]string `json:"request_metadata,omitempty"`
	Tags            map[string]string `json:"tags,omitempty"`
	Spans           any               `json:"spans,omitempty"`
}

// looks up an experiment by name and creates it when missing
func (c *Client) GetOrCreateExperiment(ctx context.Context, name string) (string, error) {
	var found struct {
		Experiment struct {
			ExperimentID string `json:"experiment_id"`
		} `json:"experiment"`
	}

	err := c.get(ctx, "/api/2.0/mlflow/experiments/get-by-name", url.Values{"experiment_name": {name}}, &found)
	if err == nil {
		return found.Experiment.ExperimentID, nil
	}

	if !IsNotFound(err) {
		return "", fmt.Errorf("failed to get experiment %s: %w", name, err)
	}

	var created struct {
		ExperimentID string `json:"experiment_id"`
	}

	if err := c.post(ctx, "/api/2.0/mlflow/experiments/create", map[string]string{"name": name}, &created); err != nil {
		return "", fmt.Errorf("failed to create experiment %s: %w", name, err)
	}

	return created.ExperimentID, nil
}

func (c *Client) CreateRun(ctx context.Context, req CreateRunRequest) (*RunInfo, error) {
	if req.StartTime == 0 {
		req.StartTime = time.Now().UnixMilli()
	}

	var resp struct {
		Run struct {
			Info RunInfo `json:"info"`
		} `json:"run"`
	}

	if err := c.post(ctx, "/api/2.0/mlflow/runs/create", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return &resp.Run.Info, nil
}

func (c *Client) SetTag(ctx context.Context, runID, key, value string) error {
	body := map[string]string{"run_id": runID, "key": key, "value": value}

	if err := c.post(ctx, "/api/2.0/mlflow/runs/set-tag", body, nil); err != nil {
		return fmt.Errorf("failed to set tag %s: %w", key, err)
	}

	return nil
}

// logs params and tags in one call
func (c *Client) LogBatch(ctx context.Context, runID string, params []Param, tags []RunTag) error {
	body := map[string]any{"run_id": runID}
	if len(params) > 0 {
		body["params"] = params
	}
	if len(tags) > 0 {
		body["tags"] = tags
	}

	if err := c.post(ctx, "/api/2.0/mlflow/runs/log-batch", body, nil); err != nil {
		return fmt.Errorf("failed to log batch for run %s: %w", runID, err)
	}

	return nil
}

// uploads a file under the run's artifact root
func (c *Client) UploadArtifact(ctx context.Context, run *RunInfo, path string, data []byte) error {
	if run == nil {
		return fmt.Errorf("run is required")
	}

	target := fmt.Sprintf("/api/2.0/mlflow-artifacts/artifacts/%s/%s/artifacts/%s",
		escape(run.ExperimentID), escape(run.RunID), strings.TrimLeft(path, "/"))

	contentType := "application/octet-stream"
	switch {
	case strings.HasSuffix(path, ".json"):
		contentType = "application/json"
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		contentType = "application/x-yaml"
	case strings.HasSuffix(path, ".md"):
		contentType = "text/markdown"
	}

	if err := c.send(ctx, "PUT", target, nil, data, contentType, nil); err != nil {
		return fmt.Errorf("failed to upload artifact %s: %w", path, err)
	}

	return nil
}

// marks a run as finished or failed
func (c *Client) UpdateRun(ctx context.Context, runID, status string) error {
	body := map[string]any{
		"run_id":   runID,
		"status":   status,
		"end_time": time.Now().UnixMilli(),
	}

	if err := c.post(ctx, "/api/2.0/mlflow/runs/update", body, nil); err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}

	return nil
}

func (c *Client) LogTrace(ctx context.Context, trace TraceRecord) error {
	if err := c.post(ctx, "/api/2.0/mlflow/traces", trace, nil); err != nil {
		return fmt.Errorf("failed to log trace %s: %w", trace.RequestID, err)
	}

	return nil
}
