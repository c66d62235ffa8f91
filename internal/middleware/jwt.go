package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/stagepass/internal/utils"
)

// Context keys set by JWTAuth.
const (
    ContextUserID = "user_id"
    ContextRole   = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the user id (uint64) and role (string) in the request context under
// ContextUserID and ContextRole.  The provided secret must match the one
// used when issuing tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            // ParseAccessToken already validated the subject
            uid, _ := claims.UserID()

            c.Set(ContextUserID, uid)
            c.Set(ContextRole, claims.Role)
            return next(c)
        }
    }
}
