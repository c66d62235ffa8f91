package reservation

import (
    "errors"
    "fmt"
    "strconv"
    "strings"
)

// Kind classifies a reservation failure so callers can decide whether the
// request can be fixed, retried with another selection, or not at all.
type Kind int

const (
    // KindValidation covers malformed selections.  The caller must fix the
    // request; retrying unchanged will fail again.
    KindValidation Kind = iota + 1
    // KindNotFound covers unknown showtimes and seats.
    KindNotFound
    // KindConflict means at least one seat was already booked.  The caller
    // should reload availability and choose different seats.
    KindConflict
    // KindInfrastructure means storage failed.  The outcome is surfaced
    // as-is and never retried by the engine.
    KindInfrastructure
)

func (k Kind) String() string {
    switch k {
    case KindValidation:
        return "validation"
    case KindNotFound:
        return "not_found"
    case KindConflict:
        return "conflict"
    case KindInfrastructure:
        return "infrastructure"
    }
    return "unknown"
}

var (
    ErrEmptySelection    = errors.New("seat selection is empty")
    ErrDuplicateSeat     = errors.New("seat selection contains duplicate seats")
    ErrShowtimeNotFound  = errors.New("showtime not found")
    ErrSeatNotFound      = errors.New("seat not found for showtime")
    ErrSeatAlreadyBooked = errors.New("seat already booked")
)

// Stable machine-readable codes, one per sentinel.
const (
    CodeEmptySelection    = "EMPTY_SELECTION"
    CodeDuplicateSeat     = "DUPLICATE_SEAT"
    CodeShowtimeNotFound  = "SHOWTIME_NOT_FOUND"
    CodeSeatNotFound      = "SEAT_NOT_FOUND"
    CodeSeatAlreadyBooked = "SEAT_ALREADY_BOOKED"
    CodeStorage           = "STORAGE_ERROR"
)

// Error is the error type returned by Engine.Reserve.  SeatIDs lists the
// offending seats for DuplicateSeat, SeatNotFound and SeatAlreadyBooked.
type Error struct {
    Kind    Kind
    Code    string
    SeatIDs []uint64
    Err     error
}

func (e *Error) Error() string {
    if len(e.SeatIDs) == 0 {
        return e.Err.Error()
    }
    ids := make([]string, len(e.SeatIDs))
    for i, id := range e.SeatIDs {
        ids[i] = strconv.FormatUint(id, 10)
    }
    return fmt.Sprintf("%s: [%s]", e.Err.Error(), strings.Join(ids, ","))
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindInfrastructure for errors that did
// not originate from this package.
func KindOf(err error) Kind {
    var re *Error
    if errors.As(err, &re) {
        return re.Kind
    }
    return KindInfrastructure
}

// SeatIDsOf returns the seat ids carried by err, if any.
func SeatIDsOf(err error) []uint64 {
    var re *Error
    if errors.As(err, &re) {
        return re.SeatIDs
    }
    return nil
}

// SeatNotFound builds the error stores return when ids do not belong to
// the showtime.
func SeatNotFound(ids []uint64) error {
    return &Error{Kind: KindNotFound, Code: CodeSeatNotFound, SeatIDs: ids, Err: ErrSeatNotFound}
}

// SeatAlreadyBooked builds the error stores return when some of the
// requested seats are taken.  ids are the conflicting seats only.
func SeatAlreadyBooked(ids []uint64) error {
    return &Error{Kind: KindConflict, Code: CodeSeatAlreadyBooked, SeatIDs: ids, Err: ErrSeatAlreadyBooked}
}

func infrastructure(op string, err error) *Error {
    return &Error{Kind: KindInfrastructure, Code: CodeStorage, Err: fmt.Errorf("%s: %w", op, err)}
}
