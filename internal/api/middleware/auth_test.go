package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func protectedRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(cfg))
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextSubject))
	})
	return router
}

func doRequest(router *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuth_None(t *testing.T) {
	w := doRequest(protectedRouter(&config.Config{AuthMode: AuthModeNone}), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())
}

func TestAuth_Gateway(t *testing.T) {
	router := protectedRouter(&config.Config{AuthMode: AuthModeGateway})

	assert.Equal(t, http.StatusUnauthorized, doRequest(router, nil).Code)

	w := doRequest(router, map[string]string{"X-User-ID": "42"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())
}

func TestAuth_APIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	router := protectedRouter(&config.Config{AuthMode: AuthModeAPIKey, APIKeyHash: string(hash)})

	tests := []struct {
		name   string
		key    string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusForbidden},
		{"valid", "s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.key != "" {
				headers[APIKeyHeader] = tt.key
			}
			assert.Equal(t, tt.status, doRequest(router, headers).Code)
		})
	}
}

func TestAuth_APIKeyWithoutHashRejects(t *testing.T) {
	router := protectedRouter(&config.Config{AuthMode: AuthModeAPIKey})
	w := doRequest(router, map[string]string{APIKeyHeader: "anything"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuth_JWT(t *testing.T) {
	const secret = "test-secret"
	router := protectedRouter(&config.Config{AuthMode: AuthModeJWT, JWTSecret: secret})
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", jwt.RegisteredClaims{Subject: "u1", ExpiresAt: future}), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, secret, jwt.RegisteredClaims{Subject: "u1", ExpiresAt: past}), http.StatusUnauthorized},
		{"no subject", "Bearer " + signToken(t, secret, jwt.RegisteredClaims{ExpiresAt: future}), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, secret, jwt.RegisteredClaims{Subject: "u1", ExpiresAt: future}), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			w := doRequest(router, headers)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "u1", w.Body.String())
			}
		})
	}
}

func TestAuth_UnknownMode(t *testing.T) {
	w := doRequest(protectedRouter(&config.Config{AuthMode: "magic"}), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequestTracking_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestTracking(nil))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get(requestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	const supplied = "0b6e1c38-9d4c-4f44-8a4b-3f1f7c1d2e10"
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, supplied)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, supplied, w.Header().Get(requestIDHeader))
}

func TestRecoverWithSentry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoverWithSentry())
	router.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}
