package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"

    "github.com/iliyamo/stagepass/internal/model"
    "github.com/iliyamo/stagepass/internal/reservation"
)

// Store is the MySQL implementation of reservation.Store.  Seat updates and
// the booking insert of one reservation share a single transaction, so a
// failed reservation leaves no trace and a committed one is complete.
type Store struct {
    db       *sql.DB
    seats    *SeatRepo
    bookings *BookingRepo
}

// NewStore builds a Store over db.
func NewStore(db *sql.DB) *Store {
    return &Store{db: db, seats: NewSeatRepo(db), bookings: NewBookingRepo(db)}
}

// RunInTx begins a transaction, runs fn and commits if fn succeeds.  The
// transaction is bound to ctx, so a cancelled request rolls back.
func (s *Store) RunInTx(ctx context.Context, showtimeID uint64, fn func(tx reservation.Tx) error) error {
    tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
    if err != nil {
        return fmt.Errorf("begin tx: %w", err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if err := fn(&storeTx{tx: tx, showtimeID: showtimeID, seats: s.seats, bookings: s.bookings}); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return fmt.Errorf("commit: %w", err)
    }
    committed = true
    return nil
}

// ListSeats returns the seat map of a showtime.
func (s *Store) ListSeats(ctx context.Context, showtimeID uint64) ([]model.Seat, error) {
    return s.seats.ListByShowtime(ctx, showtimeID)
}

// ListBookingsForUser returns the user's bookings, newest first.
func (s *Store) ListBookingsForUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
    return s.bookings.ListByUser(ctx, userID)
}

type storeTx struct {
    tx         *sql.Tx
    showtimeID uint64
    seats      *SeatRepo
    bookings   *BookingRepo
}

var errWrongShowtime = errors.New("transaction is scoped to another showtime")

func (t *storeTx) TryReserve(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]model.Seat, error) {
    if showtimeID != t.showtimeID {
        return nil, errWrongShowtime
    }
    return t.seats.TryReserveTx(ctx, t.tx, showtimeID, seatIDs)
}

func (t *storeTx) AppendBooking(ctx context.Context, b *model.Booking) error {
    if b.ShowtimeID != t.showtimeID {
        return errWrongShowtime
    }
    err := t.bookings.AppendTx(ctx, t.tx, b)
    if errors.Is(err, ErrConflict) {
        return reservation.SeatAlreadyBooked(b.SeatIDs)
    }
    return err
}
