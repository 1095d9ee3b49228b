package deployments

import (
	"codeberg.org/ragcookbook/server/internal/auth"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, reader EndpointReader, finder DeploymentFinder, authn *auth.Authenticator) {
	deploymentsGroup := router.Group("/deployments")
	deploymentsGroup.Use(auth.Optional(authn), auth.OptionalScope(authn, auth.ScopeDeploymentsRead))
	{
		deploymentsGroup.GET("", FindHandler(finder))
		deploymentsGroup.GET("/:endpoint/status", StatusHandler(reader))
	}
}
