package middleware

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	APIKeyHeader = "X-API-Key"
	bearerPrefix = "Bearer "

	// ContextSubject holds who made the request: a gateway user id, a JWT
	// subject, "api_key" or "anonymous".
	ContextSubject = "auth_subject"
)

// Auth modes
const (
	AuthModeNone    = "none"
	AuthModeGateway = "gateway"
	AuthModeAPIKey  = "api_key"
	AuthModeJWT     = "jwt"
)

// Auth picks the middleware for cfg.AuthMode. Unknown modes reject every request.
func Auth(cfg *config.Config) gin.HandlerFunc {
	switch cfg.AuthMode {
	case AuthModeNone, "":
		return NoAuth()
	case AuthModeGateway:
		return GatewayAuth()
	case AuthModeAPIKey:
		if cfg.APIKeyHash == "" {
			log.Println("⚠️  AUTH_MODE=api_key but API_KEY_HASH is empty; protected routes will reject all requests")
		}
		return APIKeyAuth(cfg.APIKeyHash)
	case AuthModeJWT:
		if cfg.JWTSecret == "" {
			log.Println("⚠️  AUTH_MODE=jwt but JWT_SECRET is empty; protected routes will reject all requests")
		}
		return JWTAuth(cfg.JWTSecret)
	default:
		log.Printf("⚠️  Unknown AUTH_MODE %q; protected routes will reject all requests", cfg.AuthMode)
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authentication misconfigured"})
		}
	}
}

// NoAuth lets every request through as anonymous
func NoAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextSubject, "anonymous")
		c.Next()
	}
}

// GatewayAuth trusts X-User-ID from an authenticating gateway in front of the
// API. Only use it when the API is not reachable except through that gateway.
func GatewayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": "Missing X-User-ID header from gateway",
			})
			return
		}
		c.Set(ContextSubject, userID)
		c.Next()
	}
}

// APIKeyAuth requires an X-API-Key header matching the bcrypt hash. A missing
// key is 401, a wrong key is 403.
func APIKeyAuth(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			return
		}
		if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid API key"})
			return
		}
		c.Set(ContextSubject, "api_key")
		c.Next()
	}
}

// JWTAuth requires a Bearer token signed with secret (HMAC)
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			return
		}

		subject, err := parseToken(strings.TrimPrefix(header, bearerPrefix), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(ContextSubject, subject)
		c.Next()
	}
}

func parseToken(tokenString, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret not configured")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
