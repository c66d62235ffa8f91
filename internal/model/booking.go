package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Booking is a confirmed, immutable record binding a user to a set of
// seats of one showtime.  TotalAmount is the seat count multiplied by the
// showtime price at the moment of booking and is never recomputed.
//
// Fields:
//  ID          – primary key identifier.
//  Reference   – public booking reference (UUID).
//  UserID      – user who made the booking.
//  ShowtimeID  – showtime being booked.
//  SeatIDs     – booked seats in request order.
//  TotalAmount – amount charged for all seats.
//  CreatedAt   – creation timestamp (UTC).
type Booking struct {
    ID          uint64          `json:"id"`           // bookings.id
    Reference   string          `json:"reference"`    // bookings.reference
    UserID      uint64          `json:"user_id"`      // bookings.user_id
    ShowtimeID  uint64          `json:"showtime_id"`  // bookings.showtime_id
    SeatIDs     []uint64        `json:"seat_ids"`     // booking_seats.seat_id ordered by position
    TotalAmount decimal.Decimal `json:"total_amount"` // bookings.total_amount
    CreatedAt   time.Time       `json:"created_at"`   // bookings.created_at
}

// BookingSeat is a seat as shown in booking history.
type BookingSeat struct {
    SeatID uint64 `json:"seat_id"`
    Row    string `json:"row"`
    Number int    `json:"number"`
}

// BookingDetail is a booking joined with the showtime and movie fields a
// customer needs to recognise it.  It is a read model only.
type BookingDetail struct {
    Booking
    MovieTitle string        `json:"movie_title"`
    Venue      string        `json:"venue"`
    ShowDate   string        `json:"show_date"`
    ShowTime   string        `json:"show_time"`
    Seats      []BookingSeat `json:"seats"`
}
