package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	ScopeAgentQuery      = "agent:query"
	ScopeToolsRead       = "tools:read"
	ScopeDeploymentsRead = "deployments:read"
)

var AllScopes = []string{ScopeAgentQuery, ScopeToolsRead, ScopeDeploymentsRead}

// API client claims; the subject identifies the caller
type Claims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// gin context keys set by Middleware
const (
	SubjectKey = "auth_subject"
	scopesKey  = "auth_scopes"
)
