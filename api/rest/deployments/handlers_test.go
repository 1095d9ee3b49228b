package deployments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/ragcookbook/server/internal/deploy"
	"codeberg.org/ragcookbook/server/internal/platform"
)

type mockPlatform struct {
	getEndpointFunc    func(ctx context.Context, name string) (*platform.ServingEndpoint, error)
	findDeploymentFunc func(ctx context.Context, modelName string) (*deploy.Deployment, error)
}

func (m *mockPlatform) GetServingEndpoint(ctx context.Context, name string) (*platform.ServingEndpoint, error) {
	return m.getEndpointFunc(ctx, name)
}

func (m *mockPlatform) FindDeployment(ctx context.Context, modelName string) (*deploy.Deployment, error) {
	return m.findDeploymentFunc(ctx, modelName)
}

func setupRouter(m *mockPlatform) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), m, m, nil)

	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	return w
}

func TestStatusHandler(t *testing.T) {
	m := &mockPlatform{
		getEndpointFunc: func(_ context.Context, name string) (*platform.ServingEndpoint, error) {
			return &platform.ServingEndpoint{
				Name: name,
				State: platform.EndpointState{
					Ready:        platform.EndpointReadyReady,
					ConfigUpdate: platform.ConfigUpdateInProgress,
				},
				Config: &platform.EndpointCoreConfig{ServedEntities: []platform.ServedEntity{
					{EntityName: "main.docs.bot", EntityVersion: "3", WorkloadSize: "Small"},
				}},
				PendingConfig: &platform.EndpointCoreConfig{ServedEntities: []platform.ServedEntity{
					{EntityName: "main.docs.bot", EntityVersion: "4"},
				}},
				Tags: []platform.EndpointTag{
					{Key: deploy.ModelNameTag, Value: "main.docs.bot"},
					{Key: deploy.ModelVersionTag, Value: "4"},
					{Key: deploy.ReviewInstructionsTag, Value: "be thorough"},
				},
			}, nil
		},
	}

	w := get(setupRouter(m), "/api/v1/deployments/agents_main-docs-bot/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "agents_main-docs-bot", resp.Name)
	assert.Equal(t, platform.EndpointReadyReady, resp.Ready)
	assert.True(t, resp.InProgress)
	assert.Equal(t, []ServedEntity{{EntityName: "main.docs.bot", EntityVersion: "3", WorkloadSize: "Small"}}, resp.ServedEntities)
	assert.Equal(t, []ServedEntity{{EntityName: "main.docs.bot", EntityVersion: "4"}}, resp.PendingEntities)
	assert.Equal(t, "main.docs.bot", resp.ModelName)
	assert.Equal(t, "4", resp.ModelVersion)
	assert.Equal(t, "be thorough", resp.ReviewInstructions)
}

func TestStatusHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "missing endpoint",
			err:        &platform.APIError{StatusCode: http.StatusNotFound, ErrorCode: "RESOURCE_DOES_NOT_EXIST", Message: "no endpoint"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "platform unavailable",
			err:        &platform.APIError{StatusCode: http.StatusServiceUnavailable, Message: "try later"},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "no permission",
			err:        &platform.APIError{StatusCode: http.StatusForbidden, Message: "denied"},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockPlatform{
				getEndpointFunc: func(context.Context, string) (*platform.ServingEndpoint, error) {
					return nil, fmt.Errorf("failed to get serving endpoint: %w", tt.err)
				},
			}

			w := get(setupRouter(m), "/api/v1/deployments/agents_x/status")
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestFindHandler(t *testing.T) {
	m := &mockPlatform{
		findDeploymentFunc: func(_ context.Context, modelName string) (*deploy.Deployment, error) {
			if modelName != "main.docs.bot" {
				return nil, fmt.Errorf("%w %s", deploy.ErrDeploymentNotFound, modelName)
			}

			return &deploy.Deployment{ModelName: modelName, ModelVersion: "2", EndpointName: "agents_main-docs-bot"}, nil
		},
	}
	router := setupRouter(m)

	t.Run("found", func(t *testing.T) {
		w := get(router, "/api/v1/deployments?model=main.docs.bot")
		require.Equal(t, http.StatusOK, w.Code)

		var d deploy.Deployment
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
		assert.Equal(t, "2", d.ModelVersion)
		assert.Equal(t, "agents_main-docs-bot", d.EndpointName)
	})

	t.Run("not deployed", func(t *testing.T) {
		w := get(router, "/api/v1/deployments?model=main.docs.other")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing model", func(t *testing.T) {
		w := get(router, "/api/v1/deployments")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
