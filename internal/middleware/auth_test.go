package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthRouter(cfg AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", Auth(cfg), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestAuthAcceptedCarriers(t *testing.T) {
	router := newAuthRouter(AuthConfig{Password: "s3cret"})

	tests := []struct {
		name  string
		setup func(req *http.Request)
	}{
		{"basic password", func(req *http.Request) {
			req.SetBasicAuth("any-user", "s3cret")
		}},
		{"basic ignores username", func(req *http.Request) {
			req.SetBasicAuth("", "s3cret")
		}},
		{"bearer token", func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer s3cret")
		}},
		{"key query parameter", func(req *http.Request) {
			q := req.URL.Query()
			q.Set("key", "s3cret")
			req.URL.RawQuery = q.Encode()
		}},
		{"goog api key header", func(req *http.Request) {
			req.Header.Set("x-goog-api-key", "s3cret")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestAuthRejections(t *testing.T) {
	router := newAuthRouter(AuthConfig{Password: "s3cret"})

	tests := []struct {
		name  string
		setup func(req *http.Request)
	}{
		{"no credentials", func(_ *http.Request) {}},
		{"wrong basic password", func(req *http.Request) {
			req.SetBasicAuth("user", "wrong")
		}},
		{"wrong bearer", func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer wrong")
		}},
		{"username is not the password", func(req *http.Request) {
			req.SetBasicAuth("s3cret", "wrong")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
			assert.Contains(t, w.Body.String(), "authentication_error")
		})
	}
}

func TestAuthFirstMatchWins(t *testing.T) {
	router := newAuthRouter(AuthConfig{Password: "s3cret"})

	// A wrong basic password does not block a valid bearer token.
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.SetBasicAuth("user", "wrong")
	req.Header.Set("x-goog-api-key", "s3cret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	router := newAuthRouter(AuthConfig{PasswordHash: string(hash)})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthNoPasswordConfiguredRejectsAll(t *testing.T) {
	router := newAuthRouter(AuthConfig{})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
