package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	sessionapi "go.pilab.hu/sessiongate/api/echo"
	"go.pilab.hu/sessiongate/config"
	gate "go.pilab.hu/sessiongate/middleware"
)

// NewHTTPServer creates and configures the echo HTTP server: recovery,
// request logging, the authentication gate, the session API routes, and the
// operational endpoints.
func NewHTTPServer(cfg *config.ServerConfig, api *sessionapi.SessionAPI, authGate *gate.Gate) *http.Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(requestLogger())
	e.Use(authGate.Middleware())

	api.RegisterRoutes(e)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      e,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// requestLogger emits one structured log line per request.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Attach the global logger so component code can use log.Ctx.
			req := c.Request()
			c.SetRequest(req.WithContext(log.Logger.WithContext(req.Context())))

			err := next(c)

			event := log.Ctx(c.Request().Context()).Info()
			if err != nil {
				event = log.Ctx(c.Request().Context()).Error().Err(err)
			}
			event.
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Str("latency", time.Since(start).String()).
				Str("ip", c.RealIP()).
				Str("user_agent", c.Request().UserAgent()).
				Msg("HTTP request")
			return err
		}
	}
}
