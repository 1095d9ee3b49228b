package deploy

import (
	"context"
	"fmt"
	"strings"

	"codeberg.org/ragcookbook/server/internal/logger"
	"codeberg.org/ragcookbook/server/internal/platform"
)

const defaultWorkloadSize = "Small"

// registers the logged agent as a new version of a catalog model
func (d *Deployer) Register(ctx context.Context, modelURI, modelName string) (*platform.ModelVersion, error) {
	if err := validateModelName(modelName); err != nil {
		return nil, err
	}

	runID, err := runIDFromURI(modelURI)
	if err != nil {
		return nil, err
	}

	if err := d.platform.CreateRegisteredModel(ctx, modelName); err != nil {
		return nil, err
	}

	version, err := d.platform.CreateModelVersion(ctx, modelName, modelURI, runID)
	if err != nil {
		return nil, err
	}

	if version.Status == platform.ModelVersionFailed {
		return nil, fmt.Errorf("registration of %s version %s failed", modelName, version.Version)
	}

	// the run keeps a pointer to the versions built from it
	if err := d.platform.SetTag(ctx, runID, RegisteredModelTag, modelName+"/"+version.Version); err != nil {
		logger.Warn("failed to tag run with registered model", "run_id", runID, "error", err)
	}

	logger.Info("model registered", "model", modelName, "version", version.Version)

	return version, nil
}

// runs:/<run_id>/<path>
func runIDFromURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "runs:/")
	if !ok {
		return "", fmt.Errorf("unsupported model uri %q", uri)
	}

	runID, _, _ := strings.Cut(rest, "/")
	if runID == "" {
		return "", fmt.Errorf("model uri %q has no run id", uri)
	}

	return runID, nil
}

// serves a registered version, creating the endpoint on first deploy and
// updating its config afterwards
func (d *Deployer) Deploy(ctx context.Context, modelName, version string) (*Deployment, error) {
	if err := validateModelName(modelName); err != nil {
		return nil, err
	}

	if _, err := d.platform.GetModelVersion(ctx, modelName, version); err != nil {
		return nil, err
	}

	name := EndpointName(modelName)
	model := strings.Split(modelName, ".")[2]

	cfg := platform.EndpointCoreConfig{
		ServedEntities: []platform.ServedEntity{{
			Name:               fmt.Sprintf("%s_%s", model, version),
			EntityName:         modelName,
			EntityVersion:      version,
			WorkloadSize:       defaultWorkloadSize,
			ScaleToZeroEnabled: true,
			EnvironmentVars:    map[string]string{"ENABLE_MLFLOW_TRACING": "true"},
		}},
	}

	tags := []platform.EndpointTag{
		{Key: ModelNameTag, Value: modelName},
		{Key: ModelVersionTag, Value: version},
	}

	_, err := d.platform.GetServingEndpoint(ctx, name)
	switch {
	case platform.IsNotFound(err):
		cfg.Name = name
		if _, err := d.platform.CreateServingEndpoint(ctx, platform.CreateServingEndpointRequest{
			Name:   name,
			Config: cfg,
			Tags:   tags,
		}); err != nil {
			return nil, err
		}

		logger.Info("serving endpoint created", "endpoint", name, "model", modelName, "version", version)
	case err != nil:
		return nil, err
	default:
		if _, err := d.platform.UpdateServingEndpointConfig(ctx, name, cfg); err != nil {
			return nil, err
		}

		if err := d.platform.PatchServingEndpointTags(ctx, name, tags, nil); err != nil {
			return nil, err
		}

		logger.Info("serving endpoint updated", "endpoint", name, "model", modelName, "version", version)
	}

	return d.deployment(modelName, version, name), nil
}

// stores the reviewer instructions with the model's endpoint
func (d *Deployer) SetReviewInstructions(ctx context.Context, modelName, instructions string) error {
	return d.platform.PatchServingEndpointTags(ctx, EndpointName(modelName), []platform.EndpointTag{
		{Key: ReviewInstructionsTag, Value: instructions},
	}, nil)
}

// grants users a permission level on the model's endpoint
func (d *Deployer) SetPermissions(ctx context.Context, modelName string, users []string, level string) error {
	if len(users) == 0 {
		return fmt.Errorf("at least one user is required")
	}

	if level == "" {
		level = platform.PermissionCanQuery
	}

	endpoint, err := d.platform.GetServingEndpoint(ctx, EndpointName(modelName))
	if err != nil {
		return err
	}

	acl := make([]platform.AccessControl, 0, len(users))
	for _, u := range users {
		acl = append(acl, platform.AccessControl{UserName: u, PermissionLevel: level})
	}

	return d.platform.SetServingEndpointPermissions(ctx, endpoint.ID, acl)
}

// first endpoint serving modelName
func (d *Deployer) FindDeployment(ctx context.Context, modelName string) (*Deployment, error) {
	endpoints, err := d.platform.ListServingEndpoints(ctx)
	if err != nil {
		return nil, err
	}

	for i := range endpoints {
		ep := &endpoints[i]

		if version, ok := servedVersion(ep, modelName); ok {
			return d.deployment(modelName, version, ep.Name), nil
		}
	}

	return nil, fmt.Errorf("%w %s", ErrDeploymentNotFound, modelName)
}

func servedVersion(ep *platform.ServingEndpoint, modelName string) (string, bool) {
	if ep.Tag(ModelNameTag) == modelName {
		return ep.Tag(ModelVersionTag), true
	}

	if ep.Config == nil {
		return "", false
	}

	for _, entity := range ep.Config.ServedEntities {
		if entity.EntityName == modelName {
			return entity.EntityVersion, true
		}
	}

	return "", false
}
