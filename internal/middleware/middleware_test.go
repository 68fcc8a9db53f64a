package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-timetable-api/internal/models"
	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
	"github.com/noah-isme/faculty-timetable-api/pkg/logger"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(logger.ContextUserIDKey)})
	})
	router.GET("/faculty/:id", handlers...)
	return router
}

func serve(router *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	auth := stubValidator{claims: &models.JWTClaims{UserID: "user-1", Role: models.RoleFaculty, FacultyID: "fac-1"}}
	router := newRouter(JWT(auth))

	assert.Equal(t, http.StatusUnauthorized, serve(router, "/faculty/fac-1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "/faculty/fac-1", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "/faculty/fac-1", "Bearer bad").Code)

	w := serve(router, "/faculty/fac-1", "Bearer good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	auth := stubValidator{claims: &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}}
	router := newRouter(OptionalJWT(auth))

	assert.Equal(t, http.StatusOK, serve(router, "/faculty/x", "").Code)
	assert.Equal(t, http.StatusOK, serve(router, "/faculty/x", "Bearer bad").Code)
	assert.Contains(t, serve(router, "/faculty/x", "Bearer good").Body.String(), "user-1")
}

func TestRBAC(t *testing.T) {
	cases := []struct {
		name   string
		claims *models.JWTClaims
		path   string
		status int
	}{
		{"missing claims", nil, "/faculty/fac-1", http.StatusUnauthorized},
		{"admin", &models.JWTClaims{Role: models.RoleAdmin}, "/faculty/fac-1", http.StatusOK},
		{"self", &models.JWTClaims{Role: models.RoleFaculty, FacultyID: "fac-1"}, "/faculty/fac-1", http.StatusOK},
		{"other faculty", &models.JWTClaims{Role: models.RoleFaculty, FacultyID: "fac-2"}, "/faculty/fac-1", http.StatusForbidden},
		{"student", &models.JWTClaims{Role: models.RoleStudent}, "/faculty/fac-1", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			claims := tc.claims
			router := newRouter(func(c *gin.Context) {
				if claims != nil {
					c.Set(ContextUserKey, claims)
				}
				c.Next()
			}, RBAC(string(models.RoleAdmin), SelfRole))
			assert.Equal(t, tc.status, serve(router, tc.path, "").Code)
		})
	}
}

func TestRequireRoles(t *testing.T) {
	router := newRouter(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{Role: models.RoleFaculty, FacultyID: "fac-1"})
		c.Next()
	}, RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, serve(router, "/faculty/fac-1", "").Code)
}

type observed struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	requests []observed
}

func (r *recordingObserver) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	r.requests = append(r.requests, observed{method: method, route: route, status: status})
}

func TestMetricsLabelsRouteTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	router := gin.New()
	router.Use(Metrics(observer, "/health"))
	router.GET("/faculty/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, "/faculty/fac-1", "")
	serve(router, "/faculty/fac-2", "")
	serve(router, "/health", "")
	serve(router, "/nowhere/42", "")

	assert.Equal(t, []observed{
		{method: http.MethodGet, route: "/faculty/:id", status: http.StatusNoContent},
		{method: http.MethodGet, route: "/faculty/:id", status: http.StatusNoContent},
		{method: http.MethodGet, route: "unmatched", status: http.StatusNotFound},
	}, observer.requests)
}

func TestMetricsWithoutObserver(t *testing.T) {
	router := newRouter(Metrics(nil))
	assert.Equal(t, http.StatusOK, serve(router, "/faculty/fac-1", "").Code)
}
