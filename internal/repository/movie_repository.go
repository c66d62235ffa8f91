package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/iliyamo/stagepass/internal/model"
)

// MovieRepo reads and writes the movies table.
type MovieRepo struct {
    db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the given DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo {
    return &MovieRepo{db: db}
}

const movieColumns = `id, title, genre, duration, rating, poster_url, synopsis, director, cast_members, release_date, language`

// ListMovies returns movies ordered by title.  genre matches exactly and
// search matches anywhere in the title; empty values disable the filter.
func (r *MovieRepo) ListMovies(ctx context.Context, genre, search string) ([]model.Movie, error) {
    var (
        where []string
        args  []interface{}
    )
    if genre = strings.TrimSpace(genre); genre != "" {
        where = append(where, "genre = ?")
        args = append(args, genre)
    }
    if search = strings.TrimSpace(search); search != "" {
        where = append(where, "title LIKE ?")
        args = append(args, "%"+search+"%")
    }
    q := `SELECT ` + movieColumns + ` FROM movies`
    if len(where) > 0 {
        q += " WHERE " + strings.Join(where, " AND ")
    }
    q += " ORDER BY title, id"

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    movies := make([]model.Movie, 0)
    for rows.Next() {
        m, err := scanMovie(rows)
        if err != nil {
            return nil, err
        }
        movies = append(movies, *m)
    }
    return movies, rows.Err()
}

// GetMovie returns ErrMovieNotFound when the id is unknown.
func (r *MovieRepo) GetMovie(ctx context.Context, id uint64) (*model.Movie, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
    m, err := scanMovie(row)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrMovieNotFound
        }
        return nil, err
    }
    return m, nil
}

// ListGenres returns the distinct genres in alphabetical order.
func (r *MovieRepo) ListGenres(ctx context.Context) ([]string, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT genre FROM movies ORDER BY genre`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    genres := make([]string, 0)
    for rows.Next() {
        var g string
        if err := rows.Scan(&g); err != nil {
            return nil, err
        }
        genres = append(genres, g)
    }
    return genres, rows.Err()
}

// CreateMovie inserts m and assigns its ID.  An empty Language defaults to
// English.
func (r *MovieRepo) CreateMovie(ctx context.Context, m *model.Movie) error {
    if m.Language == "" {
        m.Language = model.DefaultLanguage
    }
    const q = `INSERT INTO movies (title, genre, duration, rating, poster_url, synopsis, director, cast_members, release_date, language)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        m.Title, m.Genre, m.Duration, m.Rating, m.PosterURL, m.Synopsis, m.Director, m.Cast, m.ReleaseDate, m.Language)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    m.ID = uint64(id)
    return nil
}

type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanMovie(s rowScanner) (*model.Movie, error) {
    var (
        m                                           model.Movie
        rating                                      sql.NullFloat64
        poster, synopsis, director, cast, released sql.NullString
    )
    if err := s.Scan(&m.ID, &m.Title, &m.Genre, &m.Duration, &rating, &poster, &synopsis, &director, &cast, &released, &m.Language); err != nil {
        return nil, err
    }
    m.Rating = nullFloat(rating)
    m.PosterURL = nullString(poster)
    m.Synopsis = nullString(synopsis)
    m.Director = nullString(director)
    m.Cast = nullString(cast)
    m.ReleaseDate = nullString(released)
    return &m, nil
}
