package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing"

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()

	a, err := New(testSecret, time.Hour)
	require.NoError(t, err)

	return a
}

func TestNew_MissingSecret(t *testing.T) {
	_, err := New("", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestIssueToken(t *testing.T) {
	a := newTestAuthenticator(t)

	token, err := a.IssueToken("reviewer-app", ScopeAgentQuery)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3, "JWT should have 3 parts")

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)

	assert.Equal(t, "reviewer-app", claims.Subject)
	assert.True(t, claims.HasScope(ScopeAgentQuery))
	assert.False(t, claims.HasScope(ScopeDeploymentsRead))
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)

	_, err = a.IssueToken("")
	assert.Error(t, err)
}

func TestValidateToken_Rejects(t *testing.T) {
	a := newTestAuthenticator(t)

	valid, err := a.IssueToken("client")
	require.NoError(t, err)

	other, err := New("different-secret-key", time.Hour)
	require.NoError(t, err)

	foreign, err := other.IssueToken("client")
	require.NoError(t, err)

	expired := &Authenticator{secret: []byte(testSecret), ttl: time.Hour, now: func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}}

	stale, err := expired.IssueToken("client")
	require.NoError(t, err)

	noneToken, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ //nolint:errcheck // test code
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "attacker",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "client",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"tampered", valid[:len(valid)-5] + "XXXXX"},
		{"wrong secret", foreign},
		{"expired", stale},
		{"none algorithm", noneToken},
		{"wrong issuer", wrongIssuer},
		{"no subject", noSubject},
		{"empty", ""},
		{"malformed", "not.a.jwt"},
		{"too many parts", "too.many.parts.in.this.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.ValidateToken(tt.token)
			assert.Error(t, err)
		})
	}
}

func newTestRouter(a *Authenticator, scope string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/protected", Optional(a), OptionalScope(a, scope), func(c *gin.Context) {
		subject, _ := GetSubject(c)
		c.JSON(http.StatusOK, gin.H{"subject": subject})
	})

	return router
}

func TestMiddleware(t *testing.T) {
	a := newTestAuthenticator(t)

	scoped, err := a.IssueToken("client", ScopeAgentQuery)
	require.NoError(t, err)

	unscoped, err := a.IssueToken("client")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"missing header", "", http.StatusUnauthorized, "authorization header required"},
		{"wrong scheme", "Basic " + scoped, http.StatusUnauthorized, "invalid authorization header format"},
		{"invalid token", "Bearer garbage", http.StatusUnauthorized, "invalid or expired token"},
		{"missing scope", "Bearer " + unscoped, http.StatusForbidden, "token lacks scope agent:query"},
		{"authorized", "Bearer " + scoped, http.StatusOK, `"subject":"client"`},
	}

	router := newTestRouter(a, ScopeAgentQuery)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestMiddleware_Disabled(t *testing.T) {
	router := newTestRouter(nil, ScopeAgentQuery)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":""}`, w.Body.String())
}
