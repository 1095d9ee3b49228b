package platform

import (
	"context"
	"encoding/json"
	"fmt"
)

// endpoint readiness
type EndpointReady string

const (
	EndpointReadyReady    EndpointReady = "READY"
	EndpointReadyNotReady EndpointReady = "NOT_READY"
)

// endpoint config update status
type ConfigUpdate string

const (
	ConfigUpdateNotUpdating    ConfigUpdate = "NOT_UPDATING"
	ConfigUpdateInProgress     ConfigUpdate = "IN_PROGRESS"
	ConfigUpdateUpdateFailed   ConfigUpdate = "UPDATE_FAILED"
	ConfigUpdateUpdateCanceled ConfigUpdate = "UPDATE_CANCELED"
)

const (
	PermissionCanQuery  = "CAN_QUERY"
	PermissionCanView   = "CAN_VIEW"
	PermissionCanManage = "CAN_MANAGE"
)

type EndpointState struct {
	Ready        EndpointReady `json:"ready"`
	ConfigUpdate ConfigUpdate  `json:"config_update,omitempty"`
}

type ServedEntity struct {
	Name               string            `json:"name,omitempty"`
	EntityName         string            `json:"entity_name"`
	EntityVersion      string            `json:"entity_version,omitempty"`
	WorkloadSize       string            `json:"workload_size,omitempty"`
	ScaleToZeroEnabled bool              `json:"scale_to_zero_enabled"`
	EnvironmentVars    map[string]string `json:"environment_vars,omitempty"`
}

type EndpointCoreConfig struct {
	Name           string         `json:"name,omitempty"`
	ServedEntities []ServedEntity `json:"served_entities"`
}

type EndpointTag struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

type ServingEndpoint struct {
	ID            string              `json:"id,omitempty"`
	Name          string              `json:"name"`
	Creator       string              `json:"creator,omitempty"`
	State         EndpointState       `json:"state"`
	Config        *EndpointCoreConfig `json:"config,omitempty"`
	PendingConfig *EndpointCoreConfig `json:"pending_config,omitempty"`
	Tags          []EndpointTag       `json:"tags,omitempty"`
}

// reports whether the endpoint is still converging
func (e *ServingEndpoint) InProgress() bool {
	return e.State.Ready == EndpointReadyNotReady || e.State.ConfigUpdate == ConfigUpdateInProgress
}

// returns the value of tag key, or ""
func (e *ServingEndpoint) Tag(key string) string {
	for _, t := range e.Tags {
		if t.Key == key {
			return t.Value
		}
	}

	return ""
}

type CreateServingEndpointRequest struct {
	Name   string             `json:"name"`
	Config EndpointCoreConfig `json:"config"`
	Tags   []EndpointTag      `json:"tags,omitempty"`
}

type AccessControl struct {
	UserName        string `json:"user_name,omitempty"`
	GroupName       string `json:"group_name,omitempty"`
	PermissionLevel string `json:"permission_level"`
}

func (c *Client) GetServingEndpoint(ctx context.Context, name string) (*ServingEndpoint, error) {
	var ep ServingEndpoint
	if err := c.get(ctx, "/api/2.0/serving-endpoints/"+escape(name), nil, &ep); err != nil {
		return nil, fmt.Errorf("failed to get serving endpoint %s: %w", name, err)
	}

	return &ep, nil
}

func (c *Client) CreateServingEndpoint(ctx context.Context, req CreateServingEndpointRequest) (*ServingEndpoint, error) {
	var ep ServingEndpoint
	if err := c.post(ctx, "/api/2.0/serving-endpoints", req, &ep); err != nil {
		return nil, fmt.Errorf("failed to create serving endpoint %s: %w", req.Name, err)
	}

	return &ep, nil
}

// replaces the served entities of an existing endpoint
func (c *Client) UpdateServingEndpointConfig(ctx context.Context, name string, cfg EndpointCoreConfig) (*ServingEndpoint, error) {
	var ep ServingEndpoint
	if err := c.do(ctx, "PUT", "/api/2.0/serving-endpoints/"+escape(name)+"/config", nil, cfg, &ep); err != nil {
		return nil, fmt.Errorf("failed to update serving endpoint %s: %w", name, err)
	}

	return &ep, nil
}

func (c *Client) ListServingEndpoints(ctx context.Context) ([]ServingEndpoint, error) {
	var resp struct {
		Endpoints []ServingEndpoint `json:"endpoints"`
	}

	if err := c.get(ctx, "/api/2.0/serving-endpoints", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list serving endpoints: %w", err)
	}

	return resp.Endpoints, nil
}

// adds or replaces tags and removes deleteKeys
func (c *Client) PatchServingEndpointTags(ctx context.Context, name string, add []EndpointTag, deleteKeys []string) error {
	body := map[string]any{"add_tags": add}
	if len(deleteKeys) > 0 {
		body["delete_tags"] = deleteKeys
	}

	if err := c.do(ctx, "PATCH", "/api/2.0/serving-endpoints/"+escape(name)+"/tags", nil, body, nil); err != nil {
		return fmt.Errorf("failed to patch tags on %s: %w", name, err)
	}

	return nil
}

// grants permissions on an endpoint by its id
func (c *Client) SetServingEndpointPermissions(ctx context.Context, endpointID string, acl []AccessControl) error {
	body := map[string]any{"access_control_list": acl}

	if err := c.do(ctx, "PATCH", "/api/2.0/permissions/serving-endpoints/"+escape(endpointID), nil, body, nil); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", endpointID, err)
	}

	return nil
}

// calls a serving endpoint and decodes the raw response into out
func (c *Client) Invocations(ctx context.Context, endpoint string, body, out any) error {
	if err := c.post(ctx, "/serving-endpoints/"+escape(endpoint)+"/invocations", body, out); err != nil {
		return fmt.Errorf("invocation of %s failed: %w", endpoint, err)
	}

	return nil
}

// like Invocations but returns the undecoded JSON
func (c *Client) InvokeRaw(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.Invocations(ctx, endpoint, body, &raw); err != nil {
		return nil, err
	}

	return raw, nil
}
