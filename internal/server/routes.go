package server

import (
	"net/http"

	"github.com/OFFIS-RIT/relex/internal/server/middleware"
	"github.com/OFFIS-RIT/relex/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	api := e.Group("/api", middleware.AuthMiddleware)

	api.POST("/predictions", routes.PostPredictionHandler, middleware.RequirePermission(middleware.PermRunCreate))

	runs := api.Group("/runs", middleware.RequirePermission(middleware.PermRunView))
	runs.GET("/:id", routes.GetRunHandler)
	runs.GET("/:id/predictions", routes.GetRunPredictionsHandler)
}
