package reservation

import (
    "context"
    "sync"
)

// showtimeLocks hands out one single-writer slot per showtime.  Entries are
// reference counted and dropped once nobody holds or waits for them, so the
// map only ever holds showtimes with in-flight reservations.
type showtimeLocks struct {
    mu      sync.Mutex
    entries map[uint64]*lockEntry
}

type lockEntry struct {
    slot chan struct{}
    refs int
}

func newShowtimeLocks() *showtimeLocks {
    return &showtimeLocks{entries: make(map[uint64]*lockEntry)}
}

// acquire blocks until the showtime slot is free or ctx is done.  The
// returned release func must be called exactly once.
func (l *showtimeLocks) acquire(ctx context.Context, showtimeID uint64) (func(), error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    l.mu.Lock()
    e, ok := l.entries[showtimeID]
    if !ok {
        e = &lockEntry{slot: make(chan struct{}, 1)}
        l.entries[showtimeID] = e
    }
    e.refs++
    l.mu.Unlock()

    select {
    case e.slot <- struct{}{}:
        return func() {
            <-e.slot
            l.drop(showtimeID, e)
        }, nil
    case <-ctx.Done():
        l.drop(showtimeID, e)
        return nil, ctx.Err()
    }
}

func (l *showtimeLocks) drop(showtimeID uint64, e *lockEntry) {
    l.mu.Lock()
    e.refs--
    if e.refs == 0 {
        delete(l.entries, showtimeID)
    }
    l.mu.Unlock()
}

// size reports how many showtimes currently have an entry.
func (l *showtimeLocks) size() int {
    l.mu.Lock()
    defer l.mu.Unlock()
    return len(l.entries)
}
