package tools

import (
	"codeberg.org/ragcookbook/server/internal/auth"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, source ToolSource, authn *auth.Authenticator) {
	scoped := router.Group("")
	scoped.Use(auth.Optional(authn), auth.OptionalScope(authn, auth.ScopeToolsRead))
	{
		scoped.GET("/tools", ListToolsHandler(source))
		scoped.POST("/tools/:name/execute", ExecuteHandler(source))
		scoped.POST("/retrieve", RetrieveHandler(source))
	}
}
