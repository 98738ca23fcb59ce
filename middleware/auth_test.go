package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlog-app/devlog/config"
	"github.com/devlog-app/devlog/utils"
)

func setupAuthTest(t *testing.T) string {
	t.Helper()
	config.Reset()
	t.Cleanup(config.Reset)
	t.Setenv("JWT_SECRET", "middleware-test-secret")
	gin.SetMode(gin.TestMode)

	token, err := utils.GenerateToken(42, "ada", time.Hour)
	require.NoError(t, err)
	return token
}

func identityEcho() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := c.Get(ContextUserIDKey)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	}
}

func TestAuthRequired_AcceptsValidToken(t *testing.T) {
	token := setupAuthTest(t)

	r := gin.New()
	r.GET("/me", AuthRequired(), identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":42`)
}

func TestAuthRequired_RejectsMissingAndMalformedHeaders(t *testing.T) {
	setupAuthTest(t)

	r := gin.New()
	r.GET("/me", AuthRequired(), identityEcho())

	cases := map[string]string{
		"missing header": "",
		"no scheme":      "sometoken",
		"wrong scheme":   "Basic abc",
		"empty token":    "Bearer ",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthRequired_RejectsBlacklistedToken(t *testing.T) {
	token := setupAuthTest(t)
	utils.BlacklistToken(token, time.Now().Add(time.Hour))

	r := gin.New()
	r.GET("/me", AuthRequired(), identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthOptional_ResolvesIdentityWhenPresent(t *testing.T) {
	token := setupAuthTest(t)

	r := gin.New()
	r.GET("/post", AuthOptional(), identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/post", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":42`)
}

func TestAuthOptional_ContinuesAnonymouslyOnBadToken(t *testing.T) {
	setupAuthTest(t)

	r := gin.New()
	r.GET("/post", AuthOptional(), identityEcho())

	cases := map[string]string{
		"no header":     "",
		"invalid token": "Bearer not-a-jwt",
		"wrong scheme":  "Basic abc",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/post", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "anonymous")
		})
	}
}
