package agent

import (
	"codeberg.org/ragcookbook/server/internal/auth"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, predictor Predictor, authn *auth.Authenticator) {
	agentGroup := router.Group("/agent")
	agentGroup.Use(auth.Optional(authn), auth.OptionalScope(authn, auth.ScopeAgentQuery))
	{
		agentGroup.POST("/invocations", InvocationsHandler(predictor))
	}
}
