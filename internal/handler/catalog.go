package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/stagepass/internal/model"
    "github.com/iliyamo/stagepass/internal/repository"
    "github.com/iliyamo/stagepass/internal/reservation"
)

// CatalogHandler serves the public, unauthenticated browse endpoints.
type CatalogHandler struct {
    Catalog CatalogStore
    Engine  *reservation.Engine
    Log     logrus.FieldLogger
}

func NewCatalogHandler(catalog CatalogStore, engine *reservation.Engine, log logrus.FieldLogger) *CatalogHandler {
    return &CatalogHandler{Catalog: catalog, Engine: engine, Log: log}
}

// ListMovies handles GET /api/movies?genre=&search=.  An empty or "all"
// genre disables the genre filter.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
    genre := strings.TrimSpace(c.QueryParam("genre"))
    if strings.EqualFold(genre, "all") {
        genre = ""
    }
    search := strings.TrimSpace(c.QueryParam("search"))

    ctx, cancel := withTimeout(c)
    defer cancel()

    movies, err := h.Catalog.ListMovies(ctx, genre, search)
    if err != nil {
        h.Log.WithError(err).Error("list movies failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if movies == nil {
        movies = []model.Movie{}
    }
    return c.JSON(http.StatusOK, movies)
}

// GetMovie handles GET /api/movies/:id.
func (h *CatalogHandler) GetMovie(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()

    m, err := h.Catalog.GetMovie(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrMovieNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
        }
        h.Log.WithError(err).WithField("movie_id", id).Error("get movie failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, m)
}

// ListGenres handles GET /api/movies/meta/genres.
func (h *CatalogHandler) ListGenres(c echo.Context) error {
    ctx, cancel := withTimeout(c)
    defer cancel()

    genres, err := h.Catalog.ListGenres(ctx)
    if err != nil {
        h.Log.WithError(err).Error("list genres failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if genres == nil {
        genres = []string{}
    }
    return c.JSON(http.StatusOK, genres)
}

// ListShowtimesByMovie handles GET /api/showtimes/movie/:movieId.  A movie
// without showtimes, or an unknown movie, yields an empty list.
func (h *CatalogHandler) ListShowtimesByMovie(c echo.Context) error {
    movieID, ok := parseID(c, "movieId")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()

    showtimes, err := h.Catalog.ListShowtimesByMovie(ctx, movieID)
    if err != nil {
        h.Log.WithError(err).WithField("movie_id", movieID).Error("list showtimes failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if showtimes == nil {
        showtimes = []model.Showtime{}
    }
    return c.JSON(http.StatusOK, showtimes)
}

// GetShowtime handles GET /api/showtimes/:id and includes available_seats.
func (h *CatalogHandler) GetShowtime(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()

    st, err := h.Catalog.GetShowtimeAvailability(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrShowtimeNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
        }
        h.Log.WithError(err).WithField("showtime_id", id).Error("get showtime failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, st)
}

// ListSeats handles GET /api/seats/showtime/:showtimeId.  Seats come back
// ordered by row, then number; an unknown showtime has no seats.
func (h *CatalogHandler) ListSeats(c echo.Context) error {
    id, ok := parseID(c, "showtimeId")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()

    seats, err := h.Engine.ListSeats(ctx, id)
    if err != nil {
        h.Log.WithError(err).WithField("showtime_id", id).Error("list seats failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if seats == nil {
        seats = []model.Seat{}
    }
    return c.JSON(http.StatusOK, seats)
}
