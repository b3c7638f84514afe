package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthConfig holds the inbound shared secret. Exactly one of Password or
// PasswordHash is consulted; when a bcrypt hash is configured it wins.
type AuthConfig struct {
	Password     string
	PasswordHash string
}

// Auth gates every request behind the shared secret. Accepted carriers, in
// order: HTTP Basic (password field only, username ignored), a bearer
// token, a "key" query parameter, and the x-goog-api-key header. First
// match wins.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, candidate := range extractSecrets(c) {
			if cfg.matches(candidate) {
				c.Next()
				return
			}
		}
		log.WithFields(log.Fields{
			"path":   c.Request.URL.Path,
			"client": c.ClientIP(),
		}).Warn("request rejected: invalid or missing credentials")
		c.Header("WWW-Authenticate", `Basic realm="api"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"message": "Invalid authentication credentials",
				"type":    "authentication_error",
				"code":    "invalid_api_key",
			},
		})
	}
}

func (cfg AuthConfig) matches(candidate string) bool {
	if candidate == "" {
		return false
	}
	if cfg.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte(candidate)) == nil
	}
	if cfg.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cfg.Password), []byte(candidate)) == 1
}

// extractSecrets collects the credential candidates a request carries, in
// precedence order.
func extractSecrets(c *gin.Context) []string {
	var out []string
	if _, password, ok := c.Request.BasicAuth(); ok {
		out = append(out, password)
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		out = append(out, strings.TrimPrefix(auth, "Bearer "))
	}
	if key := c.Query("key"); key != "" {
		out = append(out, key)
	}
	if key := c.GetHeader("x-goog-api-key"); key != "" {
		out = append(out, key)
	}
	return out
}
