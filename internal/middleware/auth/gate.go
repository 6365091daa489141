package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory_api/internal/logging"
	"github.com/Skotchmaster/inventory_api/internal/tokens"
)

const (
	ContextKeyUser = "user"

	detailNotAuthenticated = "Not authenticated"
	detailInvalidToken     = "Could not validate token"
)

var DefaultAllowList = []string{
	"/token",
	"/docs",
	"/openapi.json",
	"/create_user",
	"/login",
	"/login/",
	"/refresh",
	"/refresh/",
	"/health/live",
	"/health/ready",
}

type identityKey struct{}

// IdentityFrom returns the caller attached by the Gate.
func IdentityFrom(ctx context.Context) (tokens.Subject, bool) {
	sub, ok := ctx.Value(identityKey{}).(tokens.Subject)
	return sub, ok
}

func WithIdentity(ctx context.Context, sub tokens.Subject) context.Context {
	return context.WithValue(ctx, identityKey{}, sub)
}

// Gate requires a valid bearer access token on every path outside the allow-list.
type Gate struct {
	Codec     *tokens.Codec
	Secret    []byte
	AllowList map[string]struct{}
}

func NewGate(codec *tokens.Codec, secret []byte, paths ...string) *Gate {
	if len(paths) == 0 {
		paths = DefaultAllowList
	}
	allow := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		allow[p] = struct{}{}
	}
	return &Gate{Codec: codec, Secret: secret, AllowList: allow}
}

func (g *Gate) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if req.Method == http.MethodOptions {
			return next(c)
		}
		if _, ok := g.AllowList[req.URL.Path]; ok {
			return next(c)
		}

		l := logging.FromContext(req.Context()).With("mw", "auth.gate")

		raw, ok := bearerToken(req.Header.Get(echo.HeaderAuthorization))
		if !ok {
			l.Debug("auth_rejected", "status", 401, "reason", "missing bearer token")
			return unauthorized(c, detailNotAuthenticated)
		}

		sub, err := g.Codec.Verify(raw, g.Secret)
		if err != nil {
			l.Info("auth_rejected", "status", 401, "reason", "verify failed", "error", err)
			return unauthorized(c, detailInvalidToken)
		}

		c.SetRequest(req.WithContext(WithIdentity(req.Context(), sub)))
		c.Set(ContextKeyUser, sub)
		return next(c)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c echo.Context, detail string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, detail)
}
