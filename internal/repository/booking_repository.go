package repository

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/google/uuid"

    "github.com/iliyamo/stagepass/internal/model"
)

// BookingRepo is the MySQL booking ledger.  Bookings are append-only; the
// seats of a booking live in booking_seats with their request position.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// AppendTx inserts b and its seats within tx and populates b.ID.  A
// Reference is generated when b has none.  The unique key on
// booking_seats.seat_id rejects a seat already present in another booking.
func (r *BookingRepo) AppendTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    if b.Reference == "" {
        b.Reference = uuid.NewString()
    }
    const q = `INSERT INTO bookings (reference, user_id, showtime_id, total_amount, created_at) VALUES (?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, b.Reference, b.UserID, b.ShowtimeID, b.TotalAmount, b.CreatedAt)
    if err != nil {
        return fmt.Errorf("insert booking: %w", err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)

    query := `INSERT INTO booking_seats (booking_id, seat_id, position) VALUES `
    args := make([]interface{}, 0, len(b.SeatIDs)*3)
    for i, seatID := range b.SeatIDs {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?)"
        args = append(args, b.ID, seatID, i)
    }
    if _, err := tx.ExecContext(ctx, query, args...); err != nil {
        if isDuplicateKey(err) {
            return ErrConflict
        }
        return fmt.Errorf("insert booking seats: %w", err)
    }
    return nil
}

// ListByUser returns the user's bookings newest first, each joined with
// movie title, venue, date, time and its seats in request order.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
    const q = `SELECT b.id, b.reference, b.user_id, b.showtime_id, b.total_amount, b.created_at,
                      m.title, st.venue, st.show_date, st.show_time
               FROM bookings b
               JOIN showtimes st ON st.id = b.showtime_id
               JOIN movies m ON m.id = st.movie_id
               WHERE b.user_id = ?
               ORDER BY b.created_at DESC, b.id DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    details := make([]model.BookingDetail, 0)
    index := make(map[uint64]int)
    for rows.Next() {
        var d model.BookingDetail
        if err := rows.Scan(
            &d.ID, &d.Reference, &d.UserID, &d.ShowtimeID, &d.TotalAmount, &d.CreatedAt,
            &d.MovieTitle, &d.Venue, &d.ShowDate, &d.ShowTime,
        ); err != nil {
            return nil, err
        }
        d.SeatIDs = []uint64{}
        d.Seats = []model.BookingSeat{}
        index[d.ID] = len(details)
        details = append(details, d)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if len(details) == 0 {
        return details, nil
    }

    const sq = `SELECT bs.booking_id, s.id, s.row_label, s.seat_number
                FROM booking_seats bs
                JOIN bookings b ON b.id = bs.booking_id
                JOIN seats s ON s.id = bs.seat_id
                WHERE b.user_id = ?
                ORDER BY bs.booking_id, bs.position`
    seatRows, err := r.db.QueryContext(ctx, sq, userID)
    if err != nil {
        return nil, err
    }
    defer seatRows.Close()
    for seatRows.Next() {
        var (
            bookingID uint64
            s         model.BookingSeat
        )
        if err := seatRows.Scan(&bookingID, &s.SeatID, &s.Row, &s.Number); err != nil {
            return nil, err
        }
        i, ok := index[bookingID]
        if !ok {
            continue
        }
        details[i].SeatIDs = append(details[i].SeatIDs, s.SeatID)
        details[i].Seats = append(details[i].Seats, s)
    }
    return details, seatRows.Err()
}
