package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/stagepass/internal/handler"
    "github.com/iliyamo/stagepass/internal/middleware"
    "github.com/iliyamo/stagepass/internal/model"
)

// RegisterAdmin registers ADMIN-scoped catalog management under /api/admin.
// All routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
    g := e.Group(
        "/api/admin",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleAdmin),
    )
    g.POST("/movies", h.CreateMovie)
    g.POST("/showtimes", h.CreateShowtime)
}
