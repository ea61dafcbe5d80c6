package middleware

import (
	"net/http"

	"github.com/erp/billing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gin context keys set by Tenant
const (
	TenantIDKey = "tenant_id"
	UserIDKey   = "user_id"
)

// Tenant requires a UUID X-Tenant-ID header and accepts an optional UUID
// X-User-ID. Authentication happens upstream; this service trusts the
// gateway to set both headers.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(TenantHeader)
		if raw == "" {
			abort(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "X-Tenant-ID header is required")
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			abort(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "X-Tenant-ID must be a UUID")
			return
		}
		c.Set(TenantIDKey, tenantID)

		if rawUser := c.GetHeader(UserHeader); rawUser != "" {
			userID, err := uuid.Parse(rawUser)
			if err != nil {
				abort(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "X-User-ID must be a UUID")
				return
			}
			c.Set(UserIDKey, userID)
		}
		c.Next()
	}
}

// GetTenantID returns the tenant set by Tenant, or uuid.Nil
func GetTenantID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(TenantIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// GetUserID returns the acting user, or nil when the header was absent
func GetUserID(c *gin.Context) *uuid.UUID {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return &id
		}
	}
	return nil
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(code, message, GetRequestID(c)))
}
