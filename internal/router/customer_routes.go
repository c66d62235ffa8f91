package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/stagepass/internal/handler"
    "github.com/iliyamo/stagepass/internal/middleware"
    "github.com/iliyamo/stagepass/internal/model"
)

// RegisterCustomer registers the booking endpoints under /api/bookings.
// Both require a valid JWT; admins may book like any customer.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
    g := e.Group(
        "/api/bookings",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
    )
    g.POST("", h.Create)
    g.GET("", h.List)
}
