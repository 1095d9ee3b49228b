package deployments

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/ragcookbook/server/internal/deploy"
	"codeberg.org/ragcookbook/server/internal/errors"
	"codeberg.org/ragcookbook/server/internal/platform"
)

// StatusHandler godoc
// @Summary Get serving endpoint status
// @Description Returns readiness, served model versions and reviewer instructions of an endpoint
// @Tags deployments
// @Produce json
// @Param endpoint path string true "Serving endpoint name"
// @Success 200 {object} StatusResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /api/v1/deployments/{endpoint}/status [get]
func StatusHandler(reader EndpointReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("endpoint")

		ep, err := reader.GetServingEndpoint(c.Request.Context(), name)
		if err != nil {
			errors.FromError(c, "failed to get endpoint status", err)
			return
		}

		c.JSON(http.StatusOK, statusResponse(ep))
	}
}

// FindHandler godoc
// @Summary Find a model's deployment
// @Description Returns the endpoint and version serving a registered model
// @Tags deployments
// @Produce json
// @Param model query string true "Model name (catalog.schema.model)"
// @Success 200 {object} deploy.Deployment
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/deployments [get]
func FindHandler(finder DeploymentFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		model := c.Query("model")
		if model == "" {
			errors.BadRequest(c, "model query parameter is required", nil)
			return
		}

		d, err := finder.FindDeployment(c.Request.Context(), model)
		if stderrors.Is(err, deploy.ErrDeploymentNotFound) {
			errors.NotFound(c, fmt.Sprintf("deployment of %s", model))
			return
		}

		if err != nil {
			errors.FromError(c, "failed to find deployment", err)
			return
		}

		c.JSON(http.StatusOK, d)
	}
}

func statusResponse(ep *platform.ServingEndpoint) StatusResponse {
	resp := StatusResponse{
		Name:               ep.Name,
		Ready:              ep.State.Ready,
		ConfigUpdate:       ep.State.ConfigUpdate,
		InProgress:         ep.InProgress(),
		ServedEntities:     []ServedEntity{},
		ModelName:          ep.Tag(deploy.ModelNameTag),
		ModelVersion:       ep.Tag(deploy.ModelVersionTag),
		ReviewInstructions: ep.Tag(deploy.ReviewInstructionsTag),
	}

	if ep.Config != nil {
		resp.ServedEntities = servedEntities(ep.Config.ServedEntities)
	}

	if ep.PendingConfig != nil {
		resp.PendingEntities = servedEntities(ep.PendingConfig.ServedEntities)
	}

	return resp
}

func servedEntities(entities []platform.ServedEntity) []ServedEntity {
	out := make([]ServedEntity, 0, len(entities))
	for _, e := range entities {
		out = append(out, ServedEntity{
			EntityName:    e.EntityName,
			EntityVersion: e.EntityVersion,
			WorkloadSize:  e.WorkloadSize,
		})
	}

	return out
}
