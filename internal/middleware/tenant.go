package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campus-dsi/pointage-api/internal/tenant"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
	"github.com/campus-dsi/pointage-api/pkg/response"
)

// ContextTenantKey is the gin context key carrying the resolved tenant id.
const ContextTenantKey = "tenant_id"

// TenantHeader is the request header that selects the establishment.
const TenantHeader = "X-Tenant-ID"

// Tenant resolves the X-Tenant-ID header against the directory and aborts
// when the id is unknown, with the same sentinel the batch layer uses for a
// config miss. Every tenant-scoped route sits behind it.
func Tenant(dir *tenant.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(TenantHeader))
		if id == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing "+TenantHeader+" header"))
			c.Abort()
			return
		}
		if _, ok := dir.Resolve(id); !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrTenantUnavailable, "unknown tenant "+id))
			c.Abort()
			return
		}
		c.Set(ContextTenantKey, id)
		c.Next()
	}
}

// TenantID reads the tenant id set by the Tenant middleware.
func TenantID(c *gin.Context) string {
	return c.GetString(ContextTenantKey)
}
