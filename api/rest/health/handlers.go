package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	serviceName = "ragcookbook"
	version     = "1.0.0"
)

// reports the kind of predictor being served ("agent", "supervisor", ...)
type AgentDescriber interface {
	Kind() string
}

// returns the server health status
func Handler(agent AgentDescriber) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := Response{
			Status:  "healthy",
			Service: serviceName,
			Version: version,
		}

		if agent != nil {
			resp.Agent = agent.Kind()
		}

		c.JSON(http.StatusOK, resp)
	}
}

// responds with pong for testing
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, PingResponse{Message: "pong"})
}
