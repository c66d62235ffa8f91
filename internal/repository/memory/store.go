// Package memory is an in-process implementation of the catalog, seat
// inventory, booking ledger and identity stores.  It backs the
// STORAGE_DRIVER=memory mode and the tests.  Every showtime has its own
// inventory lock, so reservations on different showtimes never contend.
package memory

import (
    "context"
    "errors"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/stagepass/internal/model"
    "github.com/iliyamo/stagepass/internal/repository"
    "github.com/iliyamo/stagepass/internal/reservation"
)

// Store holds all state in maps guarded by mu.  Seat state lives in
// per-showtime inventories guarded by their own mutex; when both are
// needed the inventory lock is taken first.
type Store struct {
    mu          sync.RWMutex
    movies      map[uint64]model.Movie
    showtimes   map[uint64]model.Showtime
    inventories map[uint64]*inventory
    bookings    []model.Booking
    users       map[uint64]model.User
    tokens      map[string]*model.RefreshToken

    nextMovieID    uint64
    nextShowtimeID uint64
    nextSeatID     uint64
    nextBookingID  uint64
    nextUserID     uint64
    nextTokenID    uint64

    now func() time.Time
}

type inventory struct {
    mu    sync.Mutex
    seats []model.Seat // ordered by row, then number
    index map[uint64]int
}

// New returns an empty Store.
func New() *Store {
    return &Store{
        movies:      make(map[uint64]model.Movie),
        showtimes:   make(map[uint64]model.Showtime),
        inventories: make(map[uint64]*inventory),
        users:       make(map[uint64]model.User),
        tokens:      make(map[string]*model.RefreshToken),
        now:         time.Now,
    }
}

func (s *Store) inventory(showtimeID uint64) *inventory {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return s.inventories[showtimeID]
}

// ListMovies returns movies ordered by title.  genre matches exactly and
// search matches the title case-insensitively.
func (s *Store) ListMovies(_ context.Context, genre, search string) ([]model.Movie, error) {
    genre = strings.TrimSpace(genre)
    search = strings.ToLower(strings.TrimSpace(search))

    s.mu.RLock()
    out := make([]model.Movie, 0, len(s.movies))
    for _, m := range s.movies {
        if genre != "" && m.Genre != genre {
            continue
        }
        if search != "" && !strings.Contains(strings.ToLower(m.Title), search) {
            continue
        }
        out = append(out, m)
    }
    s.mu.RUnlock()

    sort.Slice(out, func(i, j int) bool {
        if out[i].Title != out[j].Title {
            return out[i].Title < out[j].Title
        }
        return out[i].ID < out[j].ID
    })
    return out, nil
}

// GetMovie returns repository.ErrMovieNotFound for unknown ids.
func (s *Store) GetMovie(_ context.Context, id uint64) (*model.Movie, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    m, ok := s.movies[id]
    if !ok {
        return nil, repository.ErrMovieNotFound
    }
    return &m, nil
}

// ListGenres returns the distinct genres in alphabetical order.
func (s *Store) ListGenres(_ context.Context) ([]string, error) {
    s.mu.RLock()
    seen := make(map[string]struct{})
    for _, m := range s.movies {
        seen[m.Genre] = struct{}{}
    }
    s.mu.RUnlock()

    out := make([]string, 0, len(seen))
    for g := range seen {
        out = append(out, g)
    }
    sort.Strings(out)
    return out, nil
}

// CreateMovie stores m and assigns its ID.
func (s *Store) CreateMovie(_ context.Context, m *model.Movie) error {
    if m.Language == "" {
        m.Language = model.DefaultLanguage
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    s.nextMovieID++
    m.ID = s.nextMovieID
    s.movies[m.ID] = *m
    return nil
}

// ListShowtimesByMovie returns showtimes ordered by date, then time.
func (s *Store) ListShowtimesByMovie(_ context.Context, movieID uint64) ([]model.Showtime, error) {
    s.mu.RLock()
    out := make([]model.Showtime, 0)
    for _, st := range s.showtimes {
        if st.MovieID == movieID {
            out = append(out, st)
        }
    }
    s.mu.RUnlock()

    sort.Slice(out, func(i, j int) bool {
        a, b := out[i], out[j]
        if a.Date != b.Date {
            return a.Date < b.Date
        }
        if a.Time != b.Time {
            return a.Time < b.Time
        }
        return a.ID < b.ID
    })
    return out, nil
}

// GetShowtime returns repository.ErrShowtimeNotFound for unknown ids.
func (s *Store) GetShowtime(_ context.Context, id uint64) (*model.Showtime, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    st, ok := s.showtimes[id]
    if !ok {
        return nil, repository.ErrShowtimeNotFound
    }
    return &st, nil
}

// GetShowtimeAvailability returns the showtime with its free seat count.
func (s *Store) GetShowtimeAvailability(ctx context.Context, id uint64) (*model.ShowtimeAvailability, error) {
    st, err := s.GetShowtime(ctx, id)
    if err != nil {
        return nil, err
    }
    a := &model.ShowtimeAvailability{Showtime: *st}
    if inv := s.inventory(id); inv != nil {
        inv.mu.Lock()
        for _, seat := range inv.seats {
            if !seat.IsBooked {
                a.AvailableSeats++
            }
        }
        inv.mu.Unlock()
    }
    return a, nil
}

// CreateShowtime stores st together with a rows x perRow seat grid.
func (s *Store) CreateShowtime(_ context.Context, st *model.Showtime, rows, perRow int) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.movies[st.MovieID]; !ok {
        return repository.ErrMovieNotFound
    }
    s.nextShowtimeID++
    st.ID = s.nextShowtimeID
    st.TotalSeats = rows * perRow
    s.showtimes[st.ID] = *st

    inv := &inventory{seats: model.SeatGrid(st.ID, rows, perRow)}
    inv.index = make(map[uint64]int, len(inv.seats))
    for i := range inv.seats {
        s.nextSeatID++
        inv.seats[i].ID = s.nextSeatID
        inv.index[s.nextSeatID] = i
    }
    s.inventories[st.ID] = inv
    return nil
}

// ListSeats returns a copy of the showtime's seat map.  Unknown showtimes
// yield an empty slice.
func (s *Store) ListSeats(_ context.Context, showtimeID uint64) ([]model.Seat, error) {
    inv := s.inventory(showtimeID)
    if inv == nil {
        return []model.Seat{}, nil
    }
    inv.mu.Lock()
    defer inv.mu.Unlock()
    return append([]model.Seat(nil), inv.seats...), nil
}

// RunInTx holds the showtime's inventory lock while fn runs.  Changes are
// staged on the tx and applied only if fn succeeds and ctx is still live.
func (s *Store) RunInTx(ctx context.Context, showtimeID uint64, fn func(tx reservation.Tx) error) error {
    inv := s.inventory(showtimeID)
    if inv == nil {
        inv = &inventory{}
    }
    inv.mu.Lock()
    defer inv.mu.Unlock()

    tx := &memTx{store: s, inv: inv, showtimeID: showtimeID, staged: make(map[uint64]bool)}
    if err := fn(tx); err != nil {
        return err
    }
    if err := ctx.Err(); err != nil {
        return err
    }

    for id := range tx.staged {
        inv.seats[inv.index[id]].IsBooked = true
    }
    s.mu.Lock()
    s.bookings = append(s.bookings, tx.bookings...)
    s.mu.Unlock()
    return nil
}

// ListBookingsForUser returns the user's bookings newest first.
func (s *Store) ListBookingsForUser(_ context.Context, userID uint64) ([]model.BookingDetail, error) {
    s.mu.RLock()
    out := make([]model.BookingDetail, 0)
    for _, b := range s.bookings {
        if b.UserID != userID {
            continue
        }
        st := s.showtimes[b.ShowtimeID]
        d := model.BookingDetail{
            Booking:    b,
            MovieTitle: s.movies[st.MovieID].Title,
            Venue:      st.Venue,
            ShowDate:   st.Date,
            ShowTime:   st.Time,
            Seats:      make([]model.BookingSeat, 0, len(b.SeatIDs)),
        }
        d.SeatIDs = append([]uint64(nil), b.SeatIDs...)
        out = append(out, d)
    }
    s.mu.RUnlock()

    // seat labels need the inventory locks, which rank above s.mu
    for i := range out {
        inv := s.inventory(out[i].ShowtimeID)
        if inv == nil {
            continue
        }
        inv.mu.Lock()
        for _, id := range out[i].SeatIDs {
            if idx, ok := inv.index[id]; ok {
                seat := inv.seats[idx]
                out[i].Seats = append(out[i].Seats, model.BookingSeat{SeatID: id, Row: seat.Row, Number: seat.Number})
            }
        }
        inv.mu.Unlock()
    }

    sort.SliceStable(out, func(i, j int) bool {
        if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].CreatedAt.After(out[j].CreatedAt)
        }
        return out[i].ID > out[j].ID
    })
    return out, nil
}

type memTx struct {
    store      *Store
    inv        *inventory
    showtimeID uint64
    staged     map[uint64]bool
    bookings   []model.Booking
}

var errWrongShowtime = errors.New("transaction is scoped to another showtime")

// TryReserve validates every seat before staging any of them.
func (t *memTx) TryReserve(_ context.Context, showtimeID uint64, seatIDs []uint64) ([]model.Seat, error) {
    if showtimeID != t.showtimeID {
        return nil, errWrongShowtime
    }
    var missing, taken []uint64
    for _, id := range seatIDs {
        idx, ok := t.inv.index[id]
        switch {
        case !ok:
            missing = append(missing, id)
        case t.inv.seats[idx].IsBooked || t.staged[id]:
            taken = append(taken, id)
        }
    }
    if len(missing) > 0 {
        return nil, reservation.SeatNotFound(missing)
    }
    if len(taken) > 0 {
        return nil, reservation.SeatAlreadyBooked(taken)
    }

    out := make([]model.Seat, len(seatIDs))
    for i, id := range seatIDs {
        t.staged[id] = true
        seat := t.inv.seats[t.inv.index[id]]
        seat.IsBooked = true
        out[i] = seat
    }
    return out, nil
}

func (t *memTx) AppendBooking(_ context.Context, b *model.Booking) error {
    if b.ShowtimeID != t.showtimeID {
        return errWrongShowtime
    }
    for _, id := range b.SeatIDs {
        if !t.staged[id] {
            return reservation.SeatNotFound([]uint64{id})
        }
    }
    if b.Reference == "" {
        b.Reference = uuid.NewString()
    }
    if b.CreatedAt.IsZero() {
        b.CreatedAt = t.store.now().UTC()
    }
    t.store.mu.Lock()
    t.store.nextBookingID++
    b.ID = t.store.nextBookingID
    t.store.mu.Unlock()

    rec := *b
    rec.SeatIDs = append([]uint64(nil), b.SeatIDs...)
    t.bookings = append(t.bookings, rec)
    return nil
}
