package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alaklabs/goacl/internal/application"
	"github.com/alaklabs/goacl/pkg/helpers"
	"github.com/alaklabs/goacl/pkg/response"
)

const (
	CtxIdentityIDKey = "identityID"
	CtxUsernameKey   = "username"
)

// tokenFromRequest accepts the access token from the HttpOnly cookie or
// an Authorization: Bearer header.
func tokenFromRequest(c *gin.Context) string {
	if t, err := c.Cookie("access_token"); err == nil && t != "" {
		return t
	}
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// Auth validates the access token and injects the subject into the Gin
// context. Expired tokens get a distinct message so clients know a
// refresh is worth trying.
func Auth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			resp := response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			msg := "invalid access token"
			if errors.Is(err, helpers.ErrExpiredToken) {
				msg = "access token expired"
			}
			resp := response.Error[any](c, http.StatusUnauthorized, msg, nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Set(CtxIdentityIDKey, claims.Subject)
		c.Set(CtxUsernameKey, claims.Username)
		c.Next()
	}
}

// RequirePermission runs after Auth and denies the request unless the
// authenticated identity holds the permission.
func RequirePermission(resolver *application.PermissionResolver, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identityID := c.GetString(CtxIdentityIDKey)
		if identityID == "" {
			resp := response.Error[any](c, http.StatusUnauthorized, "unauthorized", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		ok, err := resolver.HasPermission(c.Request.Context(), identityID, permission)
		if err != nil {
			resp := response.Error[any](c, http.StatusInternalServerError, "permission check failed", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		if !ok {
			resp := response.Error[any](c, http.StatusForbidden, "permission denied", gin.H{"permission": permission})
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Next()
	}
}
