package handler // handler defines http handlers

import (
    "context"
    "errors"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/stagepass/internal/middleware"
    "github.com/iliyamo/stagepass/internal/model"
)

// requestTimeout bounds the storage calls a single handler makes.
const requestTimeout = 5 * time.Second

// CatalogStore is the catalog surface the HTTP layer needs.  Both
// repository.Catalog and memory.Store satisfy it.
type CatalogStore interface {
    ListMovies(ctx context.Context, genre, search string) ([]model.Movie, error)
    GetMovie(ctx context.Context, id uint64) (*model.Movie, error)
    ListGenres(ctx context.Context) ([]string, error)
    CreateMovie(ctx context.Context, m *model.Movie) error
    ListShowtimesByMovie(ctx context.Context, movieID uint64) ([]model.Showtime, error)
    GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error)
    GetShowtimeAvailability(ctx context.Context, id uint64) (*model.ShowtimeAvailability, error)
    CreateShowtime(ctx context.Context, st *model.Showtime, rows, perRow int) error
}

// UserStore creates and looks up accounts.  Lookups of unknown users
// return repository.ErrUserNotFound.
type UserStore interface {
    Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error)
    GetByEmail(ctx context.Context, email string) (model.User, error)
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID uint64) error
}

var errNoUser = errors.New("invalid user_id in context")

// getUserID extracts the id JWTAuth stored in the context.
func getUserID(c echo.Context) (uint64, error) {
    if id, ok := c.Get(middleware.ContextUserID).(uint64); ok && id > 0 {
        return id, nil
    }
    return 0, errNoUser
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}
