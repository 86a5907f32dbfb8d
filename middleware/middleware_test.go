package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monitoria-simple/lib/logger"
	"github.com/monitoria-simple/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticValidator map[string]models.Identity

func (v staticValidator) ValidateToken(token string) (models.Identity, error) {
	identity, ok := v[token]
	if !ok {
		return models.Identity{}, errors.New("unknown token")
	}
	return identity, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(CorrelationID())
	handlers = append(handlers, func(c *gin.Context) {
		identity, _ := IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"userId": identity.UserID})
	})
	router.GET("/api/v1/things/:id", handlers...)
	return router
}

func perform(router http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/things/1", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	validator := staticValidator{"good": {UserID: "prof-1", Role: models.RoleProfessor}}
	router := newRouter(AuthMiddleware(validator, logger.Discard()))

	w := perform(router, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(router, "Authorization", "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"correlationId"`)

	w = perform(router, "Authorization", "Basic good")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(router, "Authorization", "Bearer good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "prof-1")
}

func TestAuthMiddlewareAcceptsCookie(t *testing.T) {
	validator := staticValidator{"good": {UserID: "s-1", Role: models.RoleStudent}}
	router := newRouter(AuthMiddleware(validator, logger.Discard()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/things/1", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "good"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	validator := staticValidator{
		"admin":   {UserID: "admin-1", Role: models.RoleAdmin},
		"student": {UserID: "s-1", Role: models.RoleStudent},
	}
	router := newRouter(AuthMiddleware(validator, logger.Discard()), AdminMiddleware())

	assert.Equal(t, http.StatusForbidden, perform(router, "Authorization", "Bearer student").Code)
	assert.Equal(t, http.StatusOK, perform(router, "Authorization", "Bearer admin").Code)

	unauthenticated := newRouter(RequireRole(models.RoleProfessor))
	assert.Equal(t, http.StatusUnauthorized, perform(unauthenticated, "", "").Code)
}

func TestCorrelationID(t *testing.T) {
	router := newRouter()

	w := perform(router, CorrelationHeader, "req-42")
	assert.Equal(t, "req-42", w.Header().Get(CorrelationHeader))

	w = perform(router, "", "")
	assert.Len(t, w.Header().Get(CorrelationHeader), 36)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2, logger.Discard())
	router := newRouter(limiter.Handler())

	assert.Equal(t, http.StatusOK, perform(router, "", "").Code)
	assert.Equal(t, http.StatusOK, perform(router, "", "").Code)
	w := perform(router, "", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(10, 10, logger.Discard())
	limiter.now = func() time.Time { return now }

	limiter.limiter("a")
	now = now.Add(time.Hour)
	limiter.limiter("b")

	assert.Equal(t, 1, limiter.Cleanup(time.Minute))
	assert.Len(t, limiter.visitors, 1)
}

func TestMetricsAndRequestLogger(t *testing.T) {
	router := newRouter(Metrics(), RequestLogger(logger.Discard()))

	assert.Equal(t, http.StatusOK, perform(router, "", "").Code)
}
