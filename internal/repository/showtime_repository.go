// Package repository contains data access logic backed by MySQL.  This
// file covers showtimes.  A showtime is created together with its seat
// grid and never changes afterwards.
package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/stagepass/internal/model"
)

// ShowtimeRepo manages persistence for showtimes.
type ShowtimeRepo struct {
    db    *sql.DB
    seats *SeatRepo
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
    return &ShowtimeRepo{db: db, seats: NewSeatRepo(db)}
}

const showtimeColumns = `id, movie_id, show_date, show_time, venue, price, total_seats`

// GetShowtime retrieves a showtime by id.  It returns ErrShowtimeNotFound
// if there is no matching row.
func (r *ShowtimeRepo) GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
    const q = `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = ?`
    var st model.Showtime
    err := r.db.QueryRowContext(ctx, q, id).
        Scan(&st.ID, &st.MovieID, &st.Date, &st.Time, &st.Venue, &st.Price, &st.TotalSeats)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrShowtimeNotFound
        }
        return nil, err
    }
    return &st, nil
}

// GetShowtimeAvailability returns the showtime along with how many of its
// seats are still free.
func (r *ShowtimeRepo) GetShowtimeAvailability(ctx context.Context, id uint64) (*model.ShowtimeAvailability, error) {
    const q = `SELECT st.id, st.movie_id, st.show_date, st.show_time, st.venue, st.price, st.total_seats,
                      COALESCE(SUM(CASE WHEN s.is_booked = 0 THEN 1 ELSE 0 END), 0)
               FROM showtimes st
               LEFT JOIN seats s ON s.showtime_id = st.id
               WHERE st.id = ?
               GROUP BY st.id`
    var a model.ShowtimeAvailability
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &a.ID, &a.MovieID, &a.Date, &a.Time, &a.Venue, &a.Price, &a.TotalSeats, &a.AvailableSeats)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrShowtimeNotFound
        }
        return nil, err
    }
    return &a, nil
}

// ListShowtimesByMovie returns a movie's showtimes ordered by date then
// time.  Unknown movies yield an empty slice.
func (r *ShowtimeRepo) ListShowtimesByMovie(ctx context.Context, movieID uint64) ([]model.Showtime, error) {
    const q = `SELECT ` + showtimeColumns + ` FROM showtimes WHERE movie_id = ? ORDER BY show_date, show_time, id`
    rows, err := r.db.QueryContext(ctx, q, movieID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    out := make([]model.Showtime, 0)
    for rows.Next() {
        var st model.Showtime
        if err := rows.Scan(&st.ID, &st.MovieID, &st.Date, &st.Time, &st.Venue, &st.Price, &st.TotalSeats); err != nil {
            return nil, err
        }
        out = append(out, st)
    }
    return out, rows.Err()
}

// CreateShowtime inserts st and its rows x perRow seat grid in one
// transaction.  TotalSeats is set from the grid.  The movie must exist;
// otherwise ErrMovieNotFound is returned and nothing is written.
func (r *ShowtimeRepo) CreateShowtime(ctx context.Context, st *model.Showtime, rows, perRow int) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    var exists int
    if err := tx.QueryRowContext(ctx, `SELECT 1 FROM movies WHERE id = ?`, st.MovieID).Scan(&exists); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return ErrMovieNotFound
        }
        return err
    }

    st.TotalSeats = rows * perRow
    const q = `INSERT INTO showtimes (movie_id, show_date, show_time, venue, price, total_seats) VALUES (?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, st.MovieID, st.Date, st.Time, st.Venue, st.Price, st.TotalSeats)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    st.ID = uint64(id)

    if err := r.seats.CreateBulkTx(ctx, tx, model.SeatGrid(st.ID, rows, perRow)); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
