package repository

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/iliyamo/stagepass/internal/model"
    "github.com/iliyamo/stagepass/internal/reservation"
)

// SeatRepo is the MySQL seat inventory.  Seats are created once per
// showtime and afterwards only ever flip from available to booked.
type SeatRepo struct {
    db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
    return &SeatRepo{db: db}
}

// ListByShowtime returns all seats of a showtime ordered by row then
// number.  Unknown showtimes yield an empty slice.
func (r *SeatRepo) ListByShowtime(ctx context.Context, showtimeID uint64) ([]model.Seat, error) {
    const q = `SELECT id, showtime_id, row_label, seat_number, is_booked
               FROM seats
               WHERE showtime_id = ?
               ORDER BY CHAR_LENGTH(row_label), row_label, seat_number`
    rows, err := r.db.QueryContext(ctx, q, showtimeID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    seats := make([]model.Seat, 0)
    for rows.Next() {
        var s model.Seat
        if err := rows.Scan(&s.ID, &s.ShowtimeID, &s.Row, &s.Number, &s.IsBooked); err != nil {
            return nil, err
        }
        seats = append(seats, s)
    }
    return seats, rows.Err()
}

// CreateBulkTx inserts seats in a single statement inside tx.  Passing an
// empty slice has no effect.
func (r *SeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, seats []model.Seat) error {
    if len(seats) == 0 {
        return nil
    }
    query := `INSERT INTO seats (showtime_id, row_label, seat_number) VALUES `
    args := make([]interface{}, 0, len(seats)*3)
    for i, s := range seats {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?)"
        args = append(args, s.ShowtimeID, s.Row, s.Number)
    }
    _, err := tx.ExecContext(ctx, query, args...)
    return err
}

// TryReserveTx marks every seat in seatIDs as booked or none of them.  The
// rows are locked with FOR UPDATE first so concurrent transactions on the
// same seats queue behind this one; the conditional UPDATE then only
// succeeds if it flips exactly len(seatIDs) rows.  Errors from the
// reservation package report missing or already booked seats; the caller
// must roll tx back on any error.
func (r *SeatRepo) TryReserveTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatIDs []uint64) ([]model.Seat, error) {
    ph, idArgs := inClause(seatIDs)
    args := append([]interface{}{showtimeID}, idArgs...)

    sel := `SELECT id, showtime_id, row_label, seat_number, is_booked
            FROM seats
            WHERE showtime_id = ? AND id IN (` + ph + `)
            FOR UPDATE`
    rows, err := tx.QueryContext(ctx, sel, args...)
    if err != nil {
        return nil, fmt.Errorf("lock seats: %w", err)
    }
    found := make(map[uint64]model.Seat, len(seatIDs))
    for rows.Next() {
        var s model.Seat
        if err := rows.Scan(&s.ID, &s.ShowtimeID, &s.Row, &s.Number, &s.IsBooked); err != nil {
            rows.Close()
            return nil, err
        }
        found[s.ID] = s
    }
    if err := rows.Close(); err != nil {
        return nil, err
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }

    var missing, taken []uint64
    for _, id := range seatIDs {
        s, ok := found[id]
        switch {
        case !ok:
            missing = append(missing, id)
        case s.IsBooked:
            taken = append(taken, id)
        }
    }
    if len(missing) > 0 {
        return nil, reservation.SeatNotFound(missing)
    }
    if len(taken) > 0 {
        return nil, reservation.SeatAlreadyBooked(taken)
    }

    upd := `UPDATE seats SET is_booked = 1 WHERE showtime_id = ? AND id IN (` + ph + `) AND is_booked = 0`
    res, err := tx.ExecContext(ctx, upd, args...)
    if err != nil {
        return nil, fmt.Errorf("mark seats booked: %w", err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return nil, err
    }
    if n != int64(len(seatIDs)) {
        // another writer got in between; the caller's rollback undoes our rows
        return nil, reservation.SeatAlreadyBooked(seatIDs)
    }

    out := make([]model.Seat, len(seatIDs))
    for i, id := range seatIDs {
        s := found[id]
        s.IsBooked = true
        out[i] = s
    }
    return out, nil
}
