package router

import (
	"github.com/alaklabs/goacl/internal/application"
	"github.com/alaklabs/goacl/internal/container"
	handlers "github.com/alaklabs/goacl/internal/interface/http"
	"github.com/alaklabs/goacl/internal/router/modules"
	"github.com/alaklabs/goacl/pkg/helpers"
)

func buildAuthModule() *modules.AuthModule {
	cfg := container.GetConfig()

	resolver := application.NewPermissionResolver(
		container.GetIdentityRepo(),
		container.GetCache(),
		cfg.CacheTTL,
		container.GetLogger(),
	)
	service := application.NewService(
		container.GetIdentityRepo(),
		helpers.NewBcryptHasher(),
		container.GetJWT(),
		resolver,
		container.GetLogger(),
	)
	handler := handlers.NewAuthHandler(
		service,
		helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
		container.GetLogger(),
		container.GetRabbitPub(),
	)
	return modules.NewAuthModule(handler, container.GetJWT(), resolver)
}

// InitModules wires every feature module into the registry. Called once
// during startup.
func InitModules(r *Registry) {
	r.Add(buildAuthModule())
}
