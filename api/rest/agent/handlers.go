package agent

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	agentcore "codeberg.org/ragcookbook/server/internal/agent"
	"codeberg.org/ragcookbook/server/internal/errors"
)

const invocationTimeout = 2 * time.Minute

// InvocationsHandler godoc
// @Summary Query the agent
// @Description Runs the configured agent (or supervisor) on a chat conversation
// @Tags agent
// @Accept json
// @Produce json
// @Param request body InvocationsRequest true "Conversation so far"
// @Success 200 {object} InvocationsResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /api/v1/agent/invocations [post]
func InvocationsHandler(predictor Predictor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InvocationsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), invocationTimeout)
		defer cancel()

		resp, err := predictor.Predict(ctx, agentcore.ChatRequest{Messages: req.Messages})
		if err != nil {
			errors.FromError(c, "agent invocation failed", err)
			return
		}

		c.JSON(http.StatusOK, InvocationsResponse{
			Content:   resp.Content,
			Messages:  resp.Messages,
			RequestID: c.GetString("request_id"),
		})
	}
}
