// Package routers wires the message handlers onto echo
package routers

import (
	"errors"
	"io"
	"net/http"

	"llm-dispatch/internal/ctx"
	"llm-dispatch/internal/handlers/messages"
	"llm-dispatch/internal/middleware"
	"llm-dispatch/internal/shared"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type ServerConfig struct {
	Handler       *messages.MessageHandler
	Log           *zap.SugaredLogger
	CORSOrigins   []string
	MetricsAPIKey string
}

// NewServer builds the echo instance with the base middleware stack and every
// route registered
func NewServer(cfg ServerConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// Preflights for registered paths never reach group middleware
	e.Use(middleware.NewCORSMiddleware(cfg.CORSOrigins))

	e.GET("/ping", func(c echo.Context) error {
		return c.String(200, "")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.MetricsAPIKey == "" {
				return next(c)
			}
			apiKey, err := shared.ExtractAPIKey(c)
			if err != nil {
				return c.String(401, "Missing or invalid API key")
			}
			if apiKey != cfg.MetricsAPIKey {
				return c.String(401, "Unauthorized API key")
			}
			return next(c)
		}
	})

	base := e.Group("")
	base.Use(middleware.NewRecoverMiddleware(cfg.Log))
	base.Use(middleware.NewTrackMiddleware(cfg.Log))

	RegisterMessageRoutes(base, cfg.Handler)
	return e
}

func readRequestBody(c *ctx.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		c.Log.Errorw("Failed to read request body", "error", err.Error())
		return nil, err
	}
	return body, nil
}

// errorResponse sends the innermost RequestError's status and message. Errors
// without one become a generic 500.
func errorResponse(c *ctx.Context, err error) error {
	c.LogValues.AddError(err)
	var rerr *shared.RequestError
	if errors.As(err, &rerr) {
		return c.JSON(rerr.StatusCode, shared.ErrorBody{Detail: rerr.Message()})
	}
	return c.JSON(http.StatusInternalServerError, shared.ErrorBody{Detail: shared.ErrInternalServerError.Message()})
}
