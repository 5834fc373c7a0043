package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/voicewire/voicewire/usecase"
)

// InitRoutes exposes the local status surface: liveness, prometheus
// metrics, and a JSON snapshot of the live conversation state.
func InitRoutes(e *echo.Echo, session *usecase.Session, logger *zap.Logger) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "voicewire",
			"session": session.ID,
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/graph", func(c echo.Context) error {
		nodes, edges := session.GraphSnapshot()
		return c.JSON(http.StatusOK, map[string]interface{}{
			"nodes": nodes,
			"edges": edges,
		})
	})

	e.GET("/messages", func(c echo.Context) error {
		return c.JSON(http.StatusOK, session.Messages())
	})
}
