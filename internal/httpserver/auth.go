package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory_api/internal/logging"
	"github.com/Skotchmaster/inventory_api/internal/service"
	"github.com/Skotchmaster/inventory_api/internal/transport"
)

const (
	msgUserCreated      = "User created"
	msgCreateUserFailed = "Create user failed"

	detailInvalidUser    = "Could not validate user."
	detailInsertRefresh  = "Could not insert refresh token."
	detailInvalidToken   = "Could not validate token"
	detailInvalidPayload = "invalid body"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_create_user")

	var req transport.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_user_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, transport.MessageResponse{Message: msgCreateUserFailed})
	}

	username, err := h.Svc.CreateUser(ctx, req.Username, req.Password)
	if err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrAlreadyExists):
			code = http.StatusConflict
		case errors.Is(err, service.ErrValidation):
			code = http.StatusBadRequest
		}
		return c.JSON(code, transport.MessageResponse{Message: msgCreateUserFailed})
	}

	return c.JSON(http.StatusCreated, transport.MessageResponse{
		Message:  msgUserCreated,
		Username: username,
	})
}

// Login serves both /login and /token; the body is form-encoded like an
// OAuth2 password grant, JSON is accepted as well.
func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, detailInvalidPayload)
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return echo.NewHTTPError(http.StatusUnauthorized, detailInvalidUser)
		case errors.Is(err, service.ErrPersistence):
			return echo.NewHTTPError(http.StatusInternalServerError, detailInsertRefresh)
		default:
			return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
		}
	}

	return c.JSON(http.StatusOK, transport.TokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    res.TokenType,
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, detailInvalidPayload)
	}

	access, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			return echo.NewHTTPError(http.StatusUnauthorized, detailInvalidToken)
		}
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	return c.JSON(http.StatusOK, transport.AccessTokenResponse{AccessToken: access})
}
