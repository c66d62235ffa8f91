package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/stagepass/internal/model"
    "github.com/iliyamo/stagepass/internal/repository"
)

// Seat grid used when a showtime is created without explicit dimensions.
const (
    defaultRows        = 8
    defaultSeatsPerRow = 10
)

// AdminHandler lets ADMIN users extend the catalog.  Role checks happen in
// middleware.
type AdminHandler struct {
    Catalog CatalogStore
    Log     logrus.FieldLogger
}

func NewAdminHandler(catalog CatalogStore, log logrus.FieldLogger) *AdminHandler {
    return &AdminHandler{Catalog: catalog, Log: log}
}

type createMovieReq struct {
    Title       string   `json:"title" validate:"required,max=200"`
    Genre       string   `json:"genre" validate:"required,max=50"`
    Duration    int      `json:"duration" validate:"required,gt=0"`
    Rating      *float64 `json:"rating" validate:"omitempty,min=0,max=10"`
    PosterURL   *string  `json:"poster_url" validate:"omitempty,url"`
    Synopsis    *string  `json:"synopsis"`
    Director    *string  `json:"director"`
    Cast        *string  `json:"cast"`
    ReleaseDate *string  `json:"release_date" validate:"omitempty,datetime=2006-01-02"`
    Language    string   `json:"language" validate:"max=50"`
}

// CreateMovie handles POST /api/admin/movies.
func (h *AdminHandler) CreateMovie(c echo.Context) error {
    var req createMovieReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    req.Title = strings.TrimSpace(req.Title)
    req.Genre = strings.TrimSpace(req.Genre)
    if err := c.Validate(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
    }
    lang := strings.TrimSpace(req.Language)
    if lang == "" {
        lang = model.DefaultLanguage
    }
    m := model.Movie{
        Title:       req.Title,
        Genre:       req.Genre,
        Duration:    req.Duration,
        Rating:      req.Rating,
        PosterURL:   req.PosterURL,
        Synopsis:    req.Synopsis,
        Director:    req.Director,
        Cast:        req.Cast,
        ReleaseDate: req.ReleaseDate,
        Language:    lang,
    }

    ctx, cancel := withTimeout(c)
    defer cancel()
    if err := h.Catalog.CreateMovie(ctx, &m); err != nil {
        h.Log.WithError(err).Error("create movie failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusCreated, m)
}

type createShowtimeReq struct {
    MovieID     uint64          `json:"movie_id" validate:"required,gt=0"`
    Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
    Time        string          `json:"time" validate:"required,datetime=15:04"`
    Venue       string          `json:"venue" validate:"required,max=100"`
    Price       decimal.Decimal `json:"price"`
    Rows        int             `json:"rows" validate:"omitempty,min=1,max=26"`
    SeatsPerRow int             `json:"seats_per_row" validate:"omitempty,min=1,max=50"`
}

// CreateShowtime handles POST /api/admin/showtimes.  The showtime and its
// rows x seats_per_row seat grid (8 x 10 unless given) are created together.
func (h *AdminHandler) CreateShowtime(c echo.Context) error {
    var req createShowtimeReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    req.Venue = strings.TrimSpace(req.Venue)
    if err := c.Validate(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
    }
    if !req.Price.IsPositive() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be greater than 0"})
    }
    if req.Rows == 0 {
        req.Rows = defaultRows
    }
    if req.SeatsPerRow == 0 {
        req.SeatsPerRow = defaultSeatsPerRow
    }

    st := model.Showtime{
        MovieID: req.MovieID,
        Date:    req.Date,
        Time:    req.Time,
        Venue:   req.Venue,
        Price:   req.Price.Round(2),
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    if err := h.Catalog.CreateShowtime(ctx, &st, req.Rows, req.SeatsPerRow); err != nil {
        if errors.Is(err, repository.ErrMovieNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
        }
        h.Log.WithError(err).WithField("movie_id", req.MovieID).Error("create showtime failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusCreated, st)
}
