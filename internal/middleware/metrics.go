// Package middleware holds the echo middleware shared by every route
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"llm-dispatch/internal/ctx"
	"llm-dispatch/internal/metrics"
	"llm-dispatch/internal/shared"

	"github.com/aidarkhanov/nanoid"
	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const requestIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func NewTrackMiddleware(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID, _ := nanoid.Generate(requestIDAlphabet, 28)
			reqID = "req_" + reqID
			logger := log.With("request_id", reqID)

			start := time.Now()
			cc := &ctx.Context{
				Context: c,
				Log:     logger,
				Reqid:   reqID,
				LogValues: &ctx.ContextLogValues{
					RequestID: reqID,
					StartTime: start,
					Path:      c.Path(),
				},
			}
			c.Response().Header().Set(echo.HeaderXRequestID, reqID)

			err := next(cc)
			if err != nil {
				// Lets echo pick the status before we log it
				c.Error(err)
			}

			cc.LogValues.RequestDuration = time.Since(start)
			cc.LogValues.StatusCode = cc.Response().Status
			switch {
			case cc.LogValues.StatusCode >= 500:
				logger.Errorw("end_of_request", zap.Object("request", cc.LogValues))
			case cc.LogValues.Error != nil:
				logger.Warnw("end_of_request", zap.Object("request", cc.LogValues))
			default:
				logger.Infow("end_of_request", zap.Object("request", cc.LogValues))
			}
			metrics.ResponseCodes.WithLabelValues(cc.Path(), fmt.Sprintf("%d", cc.Response().Status)).Inc()
			return nil
		}
	}
}

func NewRecoverMiddleware(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return emw.RecoverWithConfig(emw.RecoverConfig{
		StackSize: 1 << 10, // 1 KB
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			defer func() {
				_ = log.Sync()
			}()
			log.Errorw("Api Panic", "error", err.Error(), "stack", string(stack))
			return c.JSON(500, shared.ErrorBody{Detail: shared.ErrInternalServerError.Message()})
		},
	})
}

// NewCORSMiddleware allows every method and header, but only from origins.
// Leaving AllowHeaders empty makes echo echo back the requested headers.
func NewCORSMiddleware(origins []string) echo.MiddlewareFunc {
	return emw.CORSWithConfig(emw.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch,
			http.MethodPost, http.MethodDelete, http.MethodOptions,
		},
		AllowCredentials: true,
	})
}
