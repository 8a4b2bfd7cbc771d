package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-dsi/pointage-api/internal/tenant"
	"github.com/campus-dsi/pointage-api/pkg/config"
)

func tenantRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	dir := tenant.NewDirectory([]config.TenantConfig{{ID: "campus-a"}}, nil)
	r := gin.New()
	r.GET("/probe", Tenant(dir), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tenant": TenantID(c)})
	})
	return r
}

func TestTenantMiddlewareResolvesHeader(t *testing.T) {
	r := tenantRouter()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(TenantHeader, "campus-a")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "campus-a")
}

func TestTenantMiddlewareMissingHeader(t *testing.T) {
	r := tenantRouter()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/probe", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), TenantHeader)
}

func TestTenantMiddlewareUnknownTenant(t *testing.T) {
	r := tenantRouter()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(TenantHeader, "ghost")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
