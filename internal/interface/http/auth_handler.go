package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/alaklabs/goacl/internal/application"
	"github.com/alaklabs/goacl/internal/domain/entity"
	"github.com/alaklabs/goacl/internal/domain/repository"
	"github.com/alaklabs/goacl/internal/interface/middleware"
	"github.com/alaklabs/goacl/pkg/helpers"
	"github.com/alaklabs/goacl/pkg/response"
	"github.com/alaklabs/goacl/pkg/validation"
)

// AuthHandler exposes the orchestrators over HTTP. It owns nothing but
// shape validation and the taxonomy→status-code mapping.
type AuthHandler struct {
	Service *application.Service
	Cookies *helpers.CookieManager
	Logger  *logrus.Logger
	Pub     *helpers.RabbitPublisher // optional; nil disables events
}

func NewAuthHandler(svc *application.Service, cookies *helpers.CookieManager, logger *logrus.Logger, pub *helpers.RabbitPublisher) *AuthHandler {
	return &AuthHandler{Service: svc, Cookies: cookies, Logger: logger, Pub: pub}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,username"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type identityResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// toIdentityResponse strips the password hash; it must never leave the
// process.
func toIdentityResponse(u *entity.Identity) identityResponse {
	return identityResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Active:    u.Active,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	AccessExpiry time.Time `json:"access_expiry"`
	RefreshToken string    `json:"refresh_token,omitempty"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	u, err := h.Service.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			resp := response.Error[any](c, http.StatusConflict, "username or email already taken", nil)
			c.JSON(resp.Status, resp)
			return
		}
		h.fail(c, err, "register failed")
		return
	}
	h.publishEvent(c, "identity.registered", u)
	resp := response.Success(c, http.StatusCreated, toIdentityResponse(u), "registered")
	c.JSON(resp.Status, resp)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	u, pair, err := h.Service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidCredentials):
			resp := response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
			c.JSON(resp.Status, resp)
		case errors.Is(err, application.ErrUserNotActive):
			resp := response.Error[any](c, http.StatusForbidden, "account deactivated", nil)
			c.JSON(resp.Status, resp)
		default:
			h.fail(c, err, "login failed")
		}
		return
	}
	if h.Cookies != nil {
		h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	}
	body := gin.H{
		"identity": toIdentityResponse(u),
		"tokens": tokenResponse{
			AccessToken:  pair.AccessToken,
			AccessExpiry: pair.AccessTokenExpiry,
			RefreshToken: pair.RefreshToken,
		},
	}
	resp := response.Success(c, http.StatusOK, body, "logged in")
	c.JSON(resp.Status, resp)
}

// Refresh POST /api/auth/refresh
// The refresh token is read from the body or the HttpOnly cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie("refresh_token")
	}
	if token == "" {
		resp := response.Error[any](c, http.StatusBadRequest, "missing refresh token", nil)
		c.JSON(resp.Status, resp)
		return
	}
	access, exp, err := h.Service.Refresh(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, helpers.ErrExpiredToken):
			resp := response.Error[any](c, http.StatusUnauthorized, "refresh token expired", nil)
			c.JSON(resp.Status, resp)
		case errors.Is(err, helpers.ErrInvalidToken):
			resp := response.Error[any](c, http.StatusUnauthorized, "invalid refresh token", nil)
			c.JSON(resp.Status, resp)
		default:
			h.fail(c, err, "refresh failed")
		}
		return
	}
	resp := response.Success(c, http.StatusOK, tokenResponse{AccessToken: access, AccessExpiry: exp}, "token refreshed")
	c.JSON(resp.Status, resp)
}

// Me GET /api/auth/me (requires Auth middleware)
func (h *AuthHandler) Me(c *gin.Context) {
	id := c.GetString(middleware.CtxIdentityIDKey)
	u, err := h.Service.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "identity lookup failed")
		return
	}
	if u == nil {
		resp := response.Error[any](c, http.StatusNotFound, "identity not found", nil)
		c.JSON(resp.Status, resp)
		return
	}
	resp := response.Success(c, http.StatusOK, toIdentityResponse(u), "")
	c.JSON(resp.Status, resp)
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if h.Cookies != nil {
		h.Cookies.Clear(c)
	}
	resp := response.Success[any](c, http.StatusOK, nil, "logged out")
	c.JSON(resp.Status, resp)
}

func (h *AuthHandler) fail(c *gin.Context, err error, msg string) {
	if h.Logger != nil {
		h.Logger.WithError(err).Error(msg)
	}
	resp := response.Error[any](c, http.StatusInternalServerError, msg, nil)
	c.JSON(resp.Status, resp)
}

// publishEvent emits a lifecycle event; failures are logged, never
// surfaced — the registration already succeeded.
func (h *AuthHandler) publishEvent(c *gin.Context, kind string, u *entity.Identity) {
	if h.Pub == nil {
		return
	}
	evt := gin.H{
		"event":       kind,
		"identity_id": u.ID,
		"username":    u.Username,
		"email":       u.Email,
		"at":          time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := h.Pub.PublishJSON(c.Request.Context(), evt); err != nil && h.Logger != nil {
		h.Logger.WithError(err).WithField("event", kind).Warn("event publish failed")
	}
}
