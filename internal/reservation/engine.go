// Package reservation turns a seat selection into a confirmed booking.  It
// validates the selection, serializes writers per showtime and delegates the
// atomic check-and-mark plus ledger append to a transactional Store.
package reservation

import (
    "context"
    "errors"
    "sort"
    "time"

    "github.com/shopspring/decimal"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/stagepass/internal/model"
    "github.com/iliyamo/stagepass/internal/queue"
)

// Catalog resolves showtimes.  GetShowtime must return an error matching
// ErrShowtimeNotFound when the id is unknown.
type Catalog interface {
    GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error)
}

// Tx is the unit of work handed to Store.RunInTx.  Everything done through
// a Tx commits together or not at all.
type Tx interface {
    // TryReserve flips every seat in seatIDs from available to booked, or
    // none of them.  It returns SeatNotFound when an id does not belong to
    // the showtime and SeatAlreadyBooked listing the taken seats.
    TryReserve(ctx context.Context, showtimeID uint64, seatIDs []uint64) ([]model.Seat, error)
    // AppendBooking persists b and assigns its ID and Reference.
    AppendBooking(ctx context.Context, b *model.Booking) error
}

// Store owns seat inventory and the booking ledger.
type Store interface {
    // RunInTx runs fn in a transaction scoped to one showtime.  A non-nil
    // error from fn rolls back every change fn made.
    RunInTx(ctx context.Context, showtimeID uint64, fn func(tx Tx) error) error
    ListSeats(ctx context.Context, showtimeID uint64) ([]model.Seat, error)
    ListBookingsForUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
}

// EventPublisher receives confirmations after commit.  Failures are logged
// and never affect the booking.
type EventPublisher interface {
    PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error
}

// Recorder receives reservation outcomes for metrics.
type Recorder interface {
    BookingConfirmed(seats int)
    ReservationFailed(reason string)
}

// Engine is safe for concurrent use.
type Engine struct {
    catalog   Catalog
    store     Store
    publisher EventPublisher
    recorder  Recorder
    log       logrus.FieldLogger
    now       func() time.Time
    locks     *showtimeLocks
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher sets the publisher notified after each confirmed booking.
func WithPublisher(p EventPublisher) Option { return func(e *Engine) { e.publisher = p } }

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option { return func(e *Engine) { e.recorder = r } }

// WithLogger replaces the standard logrus logger.
func WithLogger(l logrus.FieldLogger) Option { return func(e *Engine) { e.log = l } }

// WithClock overrides time.Now, used for booking timestamps.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// NewEngine returns an Engine reading showtimes from catalog and writing
// seats and bookings through store.
func NewEngine(catalog Catalog, store Store, opts ...Option) *Engine {
    e := &Engine{
        catalog: catalog,
        store:   store,
        log:     logrus.StandardLogger(),
        now:     time.Now,
        locks:   newShowtimeLocks(),
    }
    for _, opt := range opts {
        opt(e)
    }
    return e
}

// Reserve books seatIDs for userID in one atomic step.  The amount is
// computed from the showtime price; nothing the caller sends can change it.
// Errors are always *Error.
func (e *Engine) Reserve(ctx context.Context, userID, showtimeID uint64, seatIDs []uint64) (*model.Booking, error) {
    if len(seatIDs) == 0 {
        return nil, e.fail(&Error{Kind: KindValidation, Code: CodeEmptySelection, Err: ErrEmptySelection})
    }
    if dups := duplicates(seatIDs); len(dups) > 0 {
        return nil, e.fail(&Error{Kind: KindValidation, Code: CodeDuplicateSeat, SeatIDs: dups, Err: ErrDuplicateSeat})
    }

    st, err := e.catalog.GetShowtime(ctx, showtimeID)
    if err != nil {
        if errors.Is(err, ErrShowtimeNotFound) {
            return nil, e.fail(&Error{Kind: KindNotFound, Code: CodeShowtimeNotFound, Err: ErrShowtimeNotFound})
        }
        return nil, e.fail(infrastructure("get showtime", err))
    }

    booking, seats, err := e.commit(ctx, userID, st, seatIDs)
    if err != nil {
        var re *Error
        if errors.As(err, &re) {
            if re.Kind == KindConflict {
                e.log.WithFields(logrus.Fields{
                    "user_id":     userID,
                    "showtime_id": showtimeID,
                    "seat_ids":    re.SeatIDs,
                }).Info("reservation conflict")
            }
            return nil, e.fail(re)
        }
        return nil, e.fail(infrastructure("reserve seats", err))
    }

    e.log.WithFields(logrus.Fields{
        "user_id":      userID,
        "showtime_id":  showtimeID,
        "booking_id":   booking.ID,
        "seats":        len(seatIDs),
        "total_amount": booking.TotalAmount.StringFixed(2),
    }).Info("booking confirmed")
    if e.recorder != nil {
        e.recorder.BookingConfirmed(len(seatIDs))
    }
    e.publish(ctx, booking, st, seats)
    return booking, nil
}

// commit holds the showtime slot only for the check-and-mark plus ledger
// append.  The slot is free again by the time it returns.
func (e *Engine) commit(ctx context.Context, userID uint64, st *model.Showtime, seatIDs []uint64) (*model.Booking, []model.Seat, error) {
    release, err := e.locks.acquire(ctx, st.ID)
    if err != nil {
        return nil, nil, infrastructure("acquire showtime lock", err)
    }
    defer release()

    var (
        booking *model.Booking
        seats   []model.Seat
    )
    err = e.store.RunInTx(ctx, st.ID, func(tx Tx) error {
        reserved, err := tx.TryReserve(ctx, st.ID, seatIDs)
        if err != nil {
            return err
        }
        b := &model.Booking{
            UserID:      userID,
            ShowtimeID:  st.ID,
            SeatIDs:     append([]uint64(nil), seatIDs...),
            TotalAmount: st.Price.Mul(decimal.NewFromInt(int64(len(seatIDs)))),
            CreatedAt:   e.now().UTC(),
        }
        if err := tx.AppendBooking(ctx, b); err != nil {
            return err
        }
        booking, seats = b, reserved
        return nil
    })
    if err != nil {
        return nil, nil, err
    }
    return booking, seats, nil
}

// ListSeats returns the seat map of a showtime.  Unknown showtimes yield an
// empty list.
func (e *Engine) ListSeats(ctx context.Context, showtimeID uint64) ([]model.Seat, error) {
    return e.store.ListSeats(ctx, showtimeID)
}

// ListForUser returns the user's bookings, newest first.
func (e *Engine) ListForUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
    return e.store.ListBookingsForUser(ctx, userID)
}

func (e *Engine) fail(err *Error) *Error {
    if err.Kind == KindInfrastructure {
        e.log.WithError(err.Err).Error("reservation failed")
    }
    if e.recorder != nil {
        e.recorder.ReservationFailed(err.Kind.String())
    }
    return err
}

func (e *Engine) publish(ctx context.Context, b *model.Booking, st *model.Showtime, seats []model.Seat) {
    if e.publisher == nil {
        return
    }
    labels := make([]string, len(seats))
    for i, s := range seats {
        labels[i] = s.Label()
    }
    ev := queue.BookingConfirmedEvent{
        BookingID:   b.ID,
        Reference:   b.Reference,
        UserID:      b.UserID,
        ShowtimeID:  b.ShowtimeID,
        MovieID:     st.MovieID,
        Venue:       st.Venue,
        ShowDate:    st.Date,
        ShowTime:    st.Time,
        SeatLabels:  labels,
        TotalAmount: b.TotalAmount.StringFixed(2),
        ConfirmedAt: b.CreatedAt.Format(time.RFC3339),
    }
    // the request may already be gone; the booking is committed either way
    pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
    defer cancel()
    if err := e.publisher.PublishBookingConfirmed(pctx, ev); err != nil {
        e.log.WithError(err).WithField("booking_id", b.ID).Warn("publish booking.confirmed failed")
    }
}

// duplicates returns every id that appears more than once, ascending.
func duplicates(ids []uint64) []uint64 {
    seen := make(map[uint64]int, len(ids))
    for _, id := range ids {
        seen[id]++
    }
    var out []uint64
    for id, n := range seen {
        if n > 1 {
            out = append(out, id)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
    return out
}
