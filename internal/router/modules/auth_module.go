package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/alaklabs/goacl/internal/application"
	handlers "github.com/alaklabs/goacl/internal/interface/http"
	"github.com/alaklabs/goacl/internal/interface/middleware"
	"github.com/alaklabs/goacl/pkg/helpers"
)

type AuthModule struct {
	Handler  *handlers.AuthHandler
	JWT      *helpers.JWTManager
	Resolver *application.PermissionResolver
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager, resolver *application.PermissionResolver) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt, Resolver: resolver}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/register", m.Handler.Register)
	rg.POST("/auth/login", m.Handler.Login)
	rg.POST("/auth/refresh", m.Handler.Refresh)
	rg.POST("/auth/logout", m.Handler.Logout)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.JWT))
	{
		auth.GET("/auth/me", m.Handler.Me)
		// Example of a permission-guarded route: reading one's profile
		// requires the profile:read permission (or a wildcard grant).
		auth.GET("/profile",
			middleware.RequirePermission(m.Resolver, "profile:read"),
			m.Handler.Me)
	}
}
