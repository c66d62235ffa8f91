package router // package router defines how HTTP routes are registered for the API

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/stagepass/internal/handler"
    "github.com/iliyamo/stagepass/internal/middleware"
)

// Options carries everything New needs to assemble the API.  Nil
// middlewares are skipped; a nil Metrics handler leaves /metrics
// unregistered.  Empty CORSOrigins allows any origin.
type Options struct {
    JWTSecret    string
    Logger       logrus.FieldLogger
    Metrics      http.Handler
    CORSOrigins  []string
    APILimiter   echo.MiddlewareFunc
    AuthLimiter  echo.MiddlewareFunc
    CatalogCache echo.MiddlewareFunc

    Auth    *handler.AuthHandler
    Catalog *handler.CatalogHandler
    Booking *handler.BookingHandler
    Admin   *handler.AdminHandler
}

// New builds an Echo instance with the request pipeline and every route
// registered.  APILimiter covers everything under /api; the operational
// endpoints stay unlimited.
func New(o Options) *echo.Echo {
    e := echo.New()
    e.HideBanner = true
    e.HidePort = true
    e.Validator = handler.NewRequestValidator()

    origins := o.CORSOrigins
    if len(origins) == 0 {
        origins = []string{"*"}
    }
    e.Use(echomw.RequestID())
    e.Use(echomw.Recover())
    e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
        AllowOrigins: origins,
        AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
    }))
    if o.Logger != nil {
        e.Use(middleware.RequestLogger(o.Logger))
    }
    if o.APILimiter != nil {
        e.Use(apiOnly(o.APILimiter))
    }

    RegisterRoutes(e, o.Metrics)
    RegisterAuth(e, o.Auth, o.JWTSecret, o.AuthLimiter)
    RegisterPublic(e, o.Catalog, o.CatalogCache)
    RegisterCustomer(e, o.Booking, o.JWTSecret)
    RegisterAdmin(e, o.Admin, o.JWTSecret)
    return e
}

// apiOnly applies m to requests under /api and passes everything else
// straight through.
func apiOnly(m echo.MiddlewareFunc) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        limited := m(next)
        return func(c echo.Context) error {
            if strings.HasPrefix(c.Request().URL.Path, "/api/") {
                return limited(c)
            }
            return next(c)
        }
    }
}

// RegisterRoutes registers the operational endpoints: /healthz for
// liveness and /metrics for Prometheus.
func RegisterRoutes(e *echo.Echo, metrics http.Handler) {
    e.GET("/healthz", handler.Health)
    if metrics != nil {
        e.GET("/metrics", echo.WrapHandler(metrics))
    }
}

// RegisterAuth registers the /api/auth routes.  Signup, login and refresh
// share the auth rate limiter; logout works with either a bearer token or
// a refresh token, and /me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
    g := e.Group("/api/auth")

    limited := []echo.MiddlewareFunc{}
    if limiter != nil {
        limited = append(limited, limiter)
    }
    g.POST("/signup", a.Signup, limited...)
    g.POST("/login", a.Login, limited...)
    g.POST("/refresh", a.Refresh, limited...)
    g.POST("/logout", a.Logout)

    g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers unauthenticated browse endpoints.  Only the
// movie routes are cached: showtime availability and seat maps change
// with every booking.
func RegisterPublic(e *echo.Echo, p *handler.CatalogHandler, cache echo.MiddlewareFunc) {
    cached := []echo.MiddlewareFunc{}
    if cache != nil {
        cached = append(cached, cache)
    }
    e.GET("/api/movies", p.ListMovies, cached...)
    e.GET("/api/movies/meta/genres", p.ListGenres, cached...)
    e.GET("/api/movies/:id", p.GetMovie, cached...)

    e.GET("/api/showtimes/movie/:movieId", p.ListShowtimesByMovie)
    e.GET("/api/showtimes/:id", p.GetShowtime)
    e.GET("/api/seats/showtime/:showtimeId", p.ListSeats)
}
