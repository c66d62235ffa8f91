package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// Health answers liveness probes with a plain "ok".  It never touches
// storage.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}
