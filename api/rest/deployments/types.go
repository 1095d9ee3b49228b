package deployments

import (
	"context"

	"codeberg.org/ragcookbook/server/internal/deploy"
	"codeberg.org/ragcookbook/server/internal/platform"
)

// platform.Client and deploy.Deployer in production
type EndpointReader interface {
	GetServingEndpoint(ctx context.Context, name string) (*platform.ServingEndpoint, error)
}

type DeploymentFinder interface {
	FindDeployment(ctx context.Context, modelName string) (*deploy.Deployment, error)
}

type ServedEntity struct {
	EntityName    string `json:"entity_name"`
	EntityVersion string `json:"entity_version,omitempty"`
	WorkloadSize  string `json:"workload_size,omitempty"`
}

type StatusResponse struct {
	Name               string                 `json:"name"`
	Ready              platform.EndpointReady `json:"ready"`
	ConfigUpdate       platform.ConfigUpdate  `json:"config_update,omitempty"`
	InProgress         bool                   `json:"in_progress"`
	ServedEntities     []ServedEntity         `json:"served_entities"`
	PendingEntities    []ServedEntity         `json:"pending_entities,omitempty"`
	ModelName          string                 `json:"model_name,omitempty"`
	ModelVersion       string                 `json:"model_version,omitempty"`
	ReviewInstructions string                 `json:"review_instructions,omitempty"`
}
