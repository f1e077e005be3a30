package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-escalation-api/internal/models"
	"github.com/noah-isme/sma-escalation-api/internal/service"
)

func newAuth(t *testing.T) *service.AuthService {
	t.Helper()
	return service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "test-secret"})
}

func issue(t *testing.T, auth *service.AuthService, userID string, role models.UserRole) string {
	t.Helper()
	token, err := auth.IssueToken(userID, role, time.Hour)
	require.NoError(t, err)
	return token
}

func TestJWTRequiresBearer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newAuth(t)
	router := gin.New()
	router.GET("/me", JWT(auth), func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).UserID)
	})

	for header, want := range map[string]int{
		"":               http.StatusUnauthorized,
		"Basic abc":      http.StatusUnauthorized,
		"Bearer garbage": http.StatusUnauthorized,
		"Bearer " + issue(t, auth, "u-1", models.RoleTeacher): http.StatusOK,
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, header)
		if want == http.StatusOK {
			assert.Equal(t, "u-1", rec.Body.String())
		}
	}
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newAuth(t)
	router := gin.New()
	router.GET("/teacher", JWT(auth), RequireRoles(models.RoleTeacher), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/teacher", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, auth, "s-1", models.RoleStudent))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/teacher", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, auth, "t-1", models.RoleTeacher))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireSelfOrRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newAuth(t)
	router := gin.New()
	router.GET("/students/:id", JWT(auth), RequireSelfOrRoles("id", models.RoleMentor), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	do := func(path, token string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, do("/students/s-1", issue(t, auth, "s-1", models.RoleStudent)))
	assert.Equal(t, http.StatusForbidden, do("/students/s-2", issue(t, auth, "s-1", models.RoleStudent)))
	assert.Equal(t, http.StatusNoContent, do("/students/s-2", issue(t, auth, "m-1", models.RoleMentor)))
	assert.Equal(t, http.StatusForbidden, do("/students/s-2", issue(t, auth, "t-1", models.RoleTeacher)))
}

type observerStub struct {
	mu    sync.Mutex
	paths []string
	codes []int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paths = append(o.paths, path)
	o.codes = append(o.codes, status)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &observerStub{}
	router := gin.New()
	router.Use(Metrics(obs))
	router.GET("/assignments/:id/pdf", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/assignments/abc/pdf", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, []string{"/assignments/:id/pdf", "unmatched"}, obs.paths)
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, obs.codes)
}
