package platform

import (
	"context"
	"fmt"
	"net/url"
)

const (
	ModelVersionReady   = "READY"
	ModelVersionPending = "PENDING_REGISTRATION"
	ModelVersionFailed  = "FAILED_REGISTRATION"
)

type RegisteredModel struct {
	Name string `json:"name"`
}

type ModelVersion struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Source  string `json:"source,omitempty"`
	RunID   string `json:"run_id,omitempty"`
	Status  string `json:"status,omitempty"`
}

// creates the registered model, treating "already exists" as success
func (c *Client) CreateRegisteredModel(ctx context.Context, name string) error {
	body := map[string]string{"name": name}

	err := c.post(ctx, "/api/2.0/mlflow/unity-catalog/registered-models/create", body, nil)
	if err != nil && !IsAlreadyExists(err) {
		return fmt.Errorf("failed to create registered model %s: %w", name, err)
	}

	return nil
}

func (c *Client) CreateModelVersion(ctx context.Context, name, source, runID string) (*ModelVersion, error) {
	body := map[string]string{
		"name":   name,
		"source": source,
		"run_id": runID,
	}

	var resp struct {
		ModelVersion ModelVersion `json:"model_version"`
	}

	if err := c.post(ctx, "/api/2.0/mlflow/unity-catalog/model-versions/create", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to create version of %s: %w", name, err)
	}

	return &resp.ModelVersion, nil
}

func (c *Client) GetModelVersion(ctx context.Context, name, version string) (*ModelVersion, error) {
	query := url.Values{"name": {name}, "version": {version}}

	var resp struct {
		ModelVersion ModelVersion `json:"model_version"`
	}

	if err := c.get(ctx, "/api/2.0/mlflow/unity-catalog/model-versions/get", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to get version %s of %s: %w", version, name, err)
	}

	return &resp.ModelVersion, nil
}
