package reservation_test

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/shopspring/decimal"
    "github.com/sirupsen/logrus"
    logtest "github.com/sirupsen/logrus/hooks/test"
    "github.com/stretchr/testify/mock"
    "github.com/stretchr/testify/require"
    "github.com/stretchr/testify/suite"

    "github.com/iliyamo/stagepass/internal/model"
    "github.com/iliyamo/stagepass/internal/queue"
    "github.com/iliyamo/stagepass/internal/repository/memory"
    "github.com/iliyamo/stagepass/internal/reservation"
)

type mockPublisher struct {
    mock.Mock
}

func (m *mockPublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
    return m.Called(ctx, ev).Error(0)
}

type mockRecorder struct {
    mock.Mock
}

func (m *mockRecorder) BookingConfirmed(seats int)      { m.Called(seats) }
func (m *mockRecorder) ReservationFailed(reason string) { m.Called(reason) }

type mockCatalog struct {
    mock.Mock
}

func (m *mockCatalog) GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
    args := m.Called(ctx, id)
    st, _ := args.Get(0).(*model.Showtime)
    return st, args.Error(1)
}

// failingLedger wraps a store so every AppendBooking fails after the seats
// were already reserved inside the same transaction.
type failingLedger struct {
    *memory.Store
    err error
}

func (f failingLedger) RunInTx(ctx context.Context, showtimeID uint64, fn func(tx reservation.Tx) error) error {
    return f.Store.RunInTx(ctx, showtimeID, func(tx reservation.Tx) error {
        return fn(failingTx{Tx: tx, err: f.err})
    })
}

type failingTx struct {
    reservation.Tx
    err error
}

func (f failingTx) AppendBooking(context.Context, *model.Booking) error { return f.err }

// stalledPublisher blocks publishes for the seat label in stall until
// release is closed, standing in for a broker that hangs.
type stalledPublisher struct {
    stall   string
    entered chan struct{}
    release chan struct{}
}

func (p *stalledPublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
    if len(ev.SeatLabels) == 0 || ev.SeatLabels[0] != p.stall {
        return nil
    }
    close(p.entered)
    select {
    case <-p.release:
        return nil
    case <-ctx.Done():
        return ctx.Err()
    }
}

type EngineSuite struct {
    suite.Suite
    ctx      context.Context
    store    *memory.Store
    showtime model.Showtime
    engine   *reservation.Engine
    logs     *logtest.Hook
    now      time.Time
}

func TestEngineSuite(t *testing.T) {
    suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
    s.ctx = context.Background()
    s.store = memory.New()
    movie := model.Movie{Title: "Arrival", Genre: "Sci-Fi", Duration: 116}
    s.Require().NoError(s.store.CreateMovie(s.ctx, &movie))
    s.showtime = model.Showtime{
        MovieID: movie.ID,
        Date:    "2026-12-24",
        Time:    "20:15",
        Venue:   "Screen 3",
        Price:   decimal.RequireFromString("12.50"),
    }
    s.Require().NoError(s.store.CreateShowtime(s.ctx, &s.showtime, 8, 10))

    logger, hook := logtest.NewNullLogger()
    s.logs = hook
    s.now = time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC)
    s.engine = s.newEngine(s.store, logger)
}

func (s *EngineSuite) newEngine(store reservation.Store, logger logrus.FieldLogger, opts ...reservation.Option) *reservation.Engine {
    opts = append([]reservation.Option{
        reservation.WithLogger(logger),
        reservation.WithClock(func() time.Time { return s.now }),
    }, opts...)
    return reservation.NewEngine(s.store, store, opts...)
}

func (s *EngineSuite) seat(label string) model.Seat {
    seats, err := s.engine.ListSeats(s.ctx, s.showtime.ID)
    s.Require().NoError(err)
    for _, seat := range seats {
        if seat.Label() == label {
            return seat
        }
    }
    s.FailNow("no seat " + label)
    return model.Seat{}
}

func (s *EngineSuite) ids(labels ...string) []uint64 {
    out := make([]uint64, len(labels))
    for i, l := range labels {
        out[i] = s.seat(l).ID
    }
    return out
}

func (s *EngineSuite) bookedCount() int {
    seats, err := s.engine.ListSeats(s.ctx, s.showtime.ID)
    s.Require().NoError(err)
    n := 0
    for _, seat := range seats {
        if seat.IsBooked {
            n++
        }
    }
    return n
}

func (s *EngineSuite) TestReserveAvailableSeats() {
    ids := s.ids("C4", "C5")

    b, err := s.engine.Reserve(s.ctx, 42, s.showtime.ID, ids)
    s.Require().NoError(err)
    s.NotZero(b.ID)
    s.NotEmpty(b.Reference)
    s.Equal(uint64(42), b.UserID)
    s.Equal(s.showtime.ID, b.ShowtimeID)
    s.Equal(ids, b.SeatIDs)
    s.Equal("25.00", b.TotalAmount.StringFixed(2))
    s.Equal(s.now, b.CreatedAt)

    s.True(s.seat("C4").IsBooked)
    s.True(s.seat("C5").IsBooked)
    s.Equal(2, s.bookedCount())

    history, err := s.engine.ListForUser(s.ctx, 42)
    s.Require().NoError(err)
    s.Require().Len(history, 1)
    s.Equal(b.ID, history[0].ID)
    s.Equal("Arrival", history[0].MovieTitle)
}

func (s *EngineSuite) TestReserveConflictLeavesInventoryUnchanged() {
    _, err := s.engine.Reserve(s.ctx, 1, s.showtime.ID, s.ids("D2"))
    s.Require().NoError(err)

    _, err = s.engine.Reserve(s.ctx, 2, s.showtime.ID, s.ids("D1", "D2", "D3"))
    s.Require().Error(err)
    s.Equal(reservation.KindConflict, reservation.KindOf(err))
    s.ErrorIs(err, reservation.ErrSeatAlreadyBooked)
    s.Equal(s.ids("D2"), reservation.SeatIDsOf(err))

    var re *reservation.Error
    s.Require().ErrorAs(err, &re)
    s.Equal(reservation.CodeSeatAlreadyBooked, re.Code)

    s.False(s.seat("D1").IsBooked)
    s.False(s.seat("D3").IsBooked)
    s.Equal(1, s.bookedCount())

    history, err := s.engine.ListForUser(s.ctx, 2)
    s.Require().NoError(err)
    s.Empty(history)

    s.Require().NotNil(s.logs.LastEntry())
    s.Equal("reservation conflict", s.logs.LastEntry().Message)
    s.Equal(logrus.InfoLevel, s.logs.LastEntry().Level)
}

func (s *EngineSuite) TestReserveValidation() {
    _, err := s.engine.Reserve(s.ctx, 1, s.showtime.ID, nil)
    s.ErrorIs(err, reservation.ErrEmptySelection)
    s.Equal(reservation.KindValidation, reservation.KindOf(err))

    _, err = s.engine.Reserve(s.ctx, 1, s.showtime.ID, []uint64{})
    s.ErrorIs(err, reservation.ErrEmptySelection)

    a, b := s.seat("A1").ID, s.seat("A2").ID
    _, err = s.engine.Reserve(s.ctx, 1, s.showtime.ID, []uint64{b, a, b, a, b})
    s.ErrorIs(err, reservation.ErrDuplicateSeat)
    s.Equal(reservation.KindValidation, reservation.KindOf(err))
    want := []uint64{a, b}
    if b < a {
        want = []uint64{b, a}
    }
    s.Equal(want, reservation.SeatIDsOf(err))

    s.Zero(s.bookedCount())
}

func (s *EngineSuite) TestReserveUnknownShowtime() {
    _, err := s.engine.Reserve(s.ctx, 1, 9999, []uint64{1})
    s.ErrorIs(err, reservation.ErrShowtimeNotFound)
    s.Equal(reservation.KindNotFound, reservation.KindOf(err))
}

func (s *EngineSuite) TestReserveUnknownSeat() {
    _, err := s.engine.Reserve(s.ctx, 1, s.showtime.ID, []uint64{s.seat("A1").ID, 100000})
    s.ErrorIs(err, reservation.ErrSeatNotFound)
    s.Equal(reservation.KindNotFound, reservation.KindOf(err))
    s.Equal([]uint64{100000}, reservation.SeatIDsOf(err))
    s.Zero(s.bookedCount())
}

func (s *EngineSuite) TestAmountIsSeatCountTimesPrice() {
    for i, labels := range [][]string{{"E1"}, {"E2", "E3", "E4"}, {"F1", "F2", "F3", "F4", "F5", "F6", "F7"}} {
        b, err := s.engine.Reserve(s.ctx, uint64(i+1), s.showtime.ID, s.ids(labels...))
        s.Require().NoError(err)
        want := s.showtime.Price.Mul(decimal.NewFromInt(int64(len(labels))))
        s.True(want.Equal(b.TotalAmount), "got %s want %s", b.TotalAmount, want)
    }
}

func (s *EngineSuite) TestLedgerFailureRollsBackSeats() {
    boom := errors.New("disk full")
    engine := s.newEngine(failingLedger{Store: s.store, err: boom}, logrus.New())

    _, err := engine.Reserve(s.ctx, 1, s.showtime.ID, s.ids("G1", "G2"))
    s.Require().Error(err)
    s.Equal(reservation.KindInfrastructure, reservation.KindOf(err))
    s.ErrorIs(err, boom)
    s.Zero(s.bookedCount())
}

func (s *EngineSuite) TestCatalogFailureIsInfrastructure() {
    catalog := new(mockCatalog)
    catalog.On("GetShowtime", mock.Anything, uint64(5)).Return(nil, errors.New("connection reset"))
    engine := reservation.NewEngine(catalog, s.store, reservation.WithLogger(logrus.New()))

    _, err := engine.Reserve(s.ctx, 1, 5, []uint64{1})
    var re *reservation.Error
    s.Require().ErrorAs(err, &re)
    s.Equal(reservation.KindInfrastructure, re.Kind)
    s.Equal(reservation.CodeStorage, re.Code)
    s.ErrorContains(err, "connection reset")
    catalog.AssertExpectations(s.T())
}

func (s *EngineSuite) TestConcurrentOverlappingRequests() {
    ids := s.ids("H4", "H5")
    const workers = 20

    var (
        wg        sync.WaitGroup
        mu        sync.Mutex
        successes int
        conflicts int
    )
    start := make(chan struct{})
    for i := 0; i < workers; i++ {
        wg.Add(1)
        go func(user uint64) {
            defer wg.Done()
            <-start
            _, err := s.engine.Reserve(s.ctx, user, s.showtime.ID, ids)
            mu.Lock()
            defer mu.Unlock()
            if err == nil {
                successes++
            } else if reservation.KindOf(err) == reservation.KindConflict {
                conflicts++
            }
        }(uint64(i + 1))
    }
    close(start)
    wg.Wait()

    s.Equal(1, successes)
    s.Equal(workers-1, conflicts)
    s.Equal(2, s.bookedCount())
}

func (s *EngineSuite) TestConcurrentDisjointRequestsAllSucceed() {
    seats, err := s.engine.ListSeats(s.ctx, s.showtime.ID)
    s.Require().NoError(err)

    var wg sync.WaitGroup
    errs := make(chan error, len(seats))
    for i, seat := range seats {
        wg.Add(1)
        go func(user, seatID uint64) {
            defer wg.Done()
            _, err := s.engine.Reserve(s.ctx, user, s.showtime.ID, []uint64{seatID})
            errs <- err
        }(uint64(i+1), seat.ID)
    }
    wg.Wait()
    close(errs)
    for err := range errs {
        s.NoError(err)
    }
    s.Equal(len(seats), s.bookedCount())
}

func (s *EngineSuite) TestListSeatsIdempotent() {
    first, err := s.engine.ListSeats(s.ctx, s.showtime.ID)
    s.Require().NoError(err)
    second, err := s.engine.ListSeats(s.ctx, s.showtime.ID)
    s.Require().NoError(err)
    s.Equal(first, second)
    s.Len(first, 80)
}

func (s *EngineSuite) TestPublishesConfirmation() {
    pub := new(mockPublisher)
    rec := new(mockRecorder)
    engine := s.newEngine(s.store, logrus.New(), reservation.WithPublisher(pub), reservation.WithRecorder(rec))

    ids := s.ids("B7", "B8")
    pub.On("PublishBookingConfirmed", mock.Anything, mock.MatchedBy(func(ev queue.BookingConfirmedEvent) bool {
        return ev.UserID == 3 &&
            ev.ShowtimeID == s.showtime.ID &&
            ev.Venue == "Screen 3" &&
            ev.ShowDate == "2026-12-24" &&
            ev.ShowTime == "20:15" &&
            ev.TotalAmount == "25.00" &&
            len(ev.SeatLabels) == 2 && ev.SeatLabels[0] == "B7" && ev.SeatLabels[1] == "B8"
    })).Return(nil).Once()
    rec.On("BookingConfirmed", 2).Once()

    b, err := engine.Reserve(s.ctx, 3, s.showtime.ID, ids)
    s.Require().NoError(err)
    s.NotZero(b.ID)
    pub.AssertExpectations(s.T())
    rec.AssertExpectations(s.T())
}

func (s *EngineSuite) TestPublishFailureKeepsBooking() {
    pub := new(mockPublisher)
    rec := new(mockRecorder)
    logger, hook := logtest.NewNullLogger()
    engine := s.newEngine(s.store, logger, reservation.WithPublisher(pub), reservation.WithRecorder(rec))

    pub.On("PublishBookingConfirmed", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
    rec.On("BookingConfirmed", 1).Once()

    b, err := engine.Reserve(s.ctx, 3, s.showtime.ID, s.ids("A9"))
    s.Require().NoError(err)
    s.NotNil(b)
    s.True(s.seat("A9").IsBooked)
    s.Equal(logrus.WarnLevel, hook.LastEntry().Level)
}

func (s *EngineSuite) TestSlowPublisherDoesNotHoldShowtime() {
    pub := &stalledPublisher{stall: "A1", entered: make(chan struct{}), release: make(chan struct{})}
    engine := s.newEngine(s.store, logrus.New(), reservation.WithPublisher(pub))

    stalled, other := s.ids("A1"), s.ids("H10")
    first := make(chan error, 1)
    go func() {
        _, err := engine.Reserve(s.ctx, 1, s.showtime.ID, stalled)
        first <- err
    }()
    <-pub.entered

    ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
    defer cancel()
    b, err := engine.Reserve(ctx, 2, s.showtime.ID, other)
    s.Require().NoError(err)
    s.NotZero(b.ID)

    close(pub.release)
    s.Require().NoError(<-first)
    s.Equal(2, s.bookedCount())
}

func (s *EngineSuite) TestRecorderSeesFailures() {
    rec := new(mockRecorder)
    engine := s.newEngine(s.store, logrus.New(), reservation.WithRecorder(rec))

    rec.On("ReservationFailed", "validation").Once()
    rec.On("ReservationFailed", "not_found").Once()
    _, err := engine.Reserve(s.ctx, 1, s.showtime.ID, nil)
    s.Require().Error(err)
    _, err = engine.Reserve(s.ctx, 1, 424242, []uint64{1})
    s.Require().Error(err)
    rec.AssertExpectations(s.T())
}

func (s *EngineSuite) TestCancelledContext() {
    ctx, cancel := context.WithCancel(s.ctx)
    cancel()

    _, err := s.engine.Reserve(ctx, 1, s.showtime.ID, s.ids("A1"))
    s.Require().Error(err)
    s.Equal(reservation.KindInfrastructure, reservation.KindOf(err))
    s.ErrorIs(err, context.Canceled)
    s.Zero(s.bookedCount())
}

func TestErrorMessages(t *testing.T) {
    err := reservation.SeatAlreadyBooked([]uint64{3, 9})
    require.EqualError(t, err, "seat already booked: [3,9]")
    require.Equal(t, reservation.KindInfrastructure, reservation.KindOf(errors.New("plain")))
    require.Nil(t, reservation.SeatIDsOf(errors.New("plain")))
    require.Equal(t, "conflict", reservation.KindConflict.String())
}
