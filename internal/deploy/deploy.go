package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/ragcookbook/server/internal/platform"
)

const (
	// tag distinguishing agent runs from data pipeline runs
	RunTypeTag   = "type"
	RunTypeChain = "chain"

	ModelNameTag          = "model_name"
	ModelVersionTag       = "model_version"
	ReviewInstructionsTag = "review_instructions"
	RegisteredModelTag    = "ragcookbook.registered_model"

	DefaultExperiment   = "/Shared/ragcookbook-agents"
	DefaultPollInterval = 30 * time.Second

	artifactPath = "chain"
)

var (
	ErrDeploymentNotFound = errors.New("no deployment found for model")
	ErrUpdateFailed       = errors.New("endpoint config update did not complete")
)

// platform operations used by the deployment workflow; implemented by
// platform.Client
type Platform interface {
	Host() string

	GetOrCreateExperiment(ctx context.Context, name string) (string, error)
	CreateRun(ctx context.Context, req platform.CreateRunRequest) (*platform.RunInfo, error)
	LogBatch(ctx context.Context, runID string, params []platform.Param, tags []platform.RunTag) error
	UploadArtifact(ctx context.Context, run *platform.RunInfo, path string, data []byte) error
	UpdateRun(ctx context.Context, runID, status string) error
	SetTag(ctx context.Context, runID, key, value string) error

	CreateRegisteredModel(ctx context.Context, name string) error
	CreateModelVersion(ctx context.Context, name, source, runID string) (*platform.ModelVersion, error)
	GetModelVersion(ctx context.Context, name, version string) (*platform.ModelVersion, error)

	GetServingEndpoint(ctx context.Context, name string) (*platform.ServingEndpoint, error)
	CreateServingEndpoint(ctx context.Context, req platform.CreateServingEndpointRequest) (*platform.ServingEndpoint, error)
	UpdateServingEndpointConfig(ctx context.Context, name string, cfg platform.EndpointCoreConfig) (*platform.ServingEndpoint, error)
	ListServingEndpoints(ctx context.Context) ([]platform.ServingEndpoint, error)
	PatchServingEndpointTags(ctx context.Context, name string, add []platform.EndpointTag, deleteKeys []string) error
	SetServingEndpointPermissions(ctx context.Context, endpointID string, acl []platform.AccessControl) error
}

// logs, registers and serves agents
type Deployer struct {
	platform Platform
	now      func() time.Time
}

func New(p Platform) *Deployer {
	return &Deployer{platform: p, now: time.Now}
}

// logged agent
type ModelInfo struct {
	RunID        string `json:"run_id"`
	ExperimentID string `json:"experiment_id"`
	ModelURI     string `json:"model_uri"`
}

// served model version and where to reach it
type Deployment struct {
	ModelName     string `json:"model_name"`
	ModelVersion  string `json:"model_version"`
	EndpointName  string `json:"endpoint_name"`
	EndpointURL   string `json:"endpoint_url"`
	QueryEndpoint string `json:"query_endpoint"`
	ReviewAppURL  string `json:"review_app_url"`
}

// serving endpoint name for a catalog model: main.docs.bot -> agents_main-docs-bot
func EndpointName(modelName string) string {
	return "agents_" + strings.ReplaceAll(modelName, ".", "-")
}

func validateModelName(name string) error {
	parts := strings.Split(name, ".")
	if len(parts) != 3 {
		return fmt.Errorf("model name must be catalog.schema.model, got %q", name)
	}

	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("model name must be catalog.schema.model, got %q", name)
		}
	}

	return nil
}

func (d *Deployer) deployment(modelName, version, endpoint string) *Deployment {
	host := strings.TrimRight(d.platform.Host(), "/")

	return &Deployment{
		ModelName:     modelName,
		ModelVersion:  version,
		EndpointName:  endpoint,
		EndpointURL:   fmt.Sprintf("%s/ml/endpoints/%s", host, endpoint),
		QueryEndpoint: fmt.Sprintf("%s/serving-endpoints/%s/invocations", host, endpoint),
		ReviewAppURL:  fmt.Sprintf("%s/ml/reviews/%s/%s/instructions", host, modelName, version),
	}
}
