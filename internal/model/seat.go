package model

import "strconv"

// Seat is one bookable position of a showtime.  Seats are unique per
// (showtime, row, number), are created once when the showtime is set up
// and are never deleted.  IsBooked only ever moves from false to true.
//
// Fields:
//  ID         – primary key identifier.
//  ShowtimeID – showtime the seat belongs to.
//  Row        – row label (A, B, ... AA).
//  Number     – 1-based position within the row.
//  IsBooked   – whether a booking holds this seat.
type Seat struct {
    ID         uint64 `json:"id"`          // seats.id
    ShowtimeID uint64 `json:"showtime_id"` // seats.showtime_id
    Row        string `json:"row"`         // seats.row_label
    Number     int    `json:"number"`      // seats.seat_number
    IsBooked   bool   `json:"is_booked"`   // seats.is_booked
}

// Label renders the seat as row followed by number, e.g. "C7".
func (s Seat) Label() string {
    return s.Row + strconv.Itoa(s.Number)
}
