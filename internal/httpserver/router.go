package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	authmw "github.com/Skotchmaster/inventory_api/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/inventory_api/internal/middleware/logging"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	AuthHandler  *AuthHTTP
	ItemsHandler *ItemsHTTP
	Gate         *authmw.Gate
	// Ready maps a check name to the dependency /health/ready pings.
	Ready map[string]Pinger
}

type Options struct {
	Logger      *slog.Logger
	CORSOrigins []string
}

// New builds the echo instance with the full middleware stack and routes.
func New(opts Options, d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.Secure())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
	}))

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	if d.Gate != nil {
		e.Use(d.Gate.Middleware)
	}

	e.GET("/health/live", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/health/ready", d.ready)

	e.POST("/create_user", d.AuthHandler.CreateUser)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/token", d.AuthHandler.Login)
	e.POST("/refresh", d.AuthHandler.Refresh)

	e.GET("/get_items", d.ItemsHandler.GetItems)
	e.GET("/get_items2", d.ItemsHandler.GetItemsLegacy)
	e.GET("/get_char_names", d.ItemsHandler.GetCharNames)
}

func (d *Deps) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, p := range d.Ready {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "checks": failed})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
