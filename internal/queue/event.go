// Package queue defines message payloads exchanged over the message broker
// and the consumer that drains them.
package queue

// BookingConfirmedQueue is the durable queue booking confirmations are
// published to, through the default exchange.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published after a booking commits.  It carries
// enough of the showtime to let consumers log or notify without reading the
// primary database.
type BookingConfirmedEvent struct {
    BookingID   uint64   `json:"booking_id"`
    Reference   string   `json:"reference"`
    UserID      uint64   `json:"user_id"`
    ShowtimeID  uint64   `json:"showtime_id"`
    MovieID     uint64   `json:"movie_id"`
    Venue       string   `json:"venue"`
    ShowDate    string   `json:"show_date"`
    ShowTime    string   `json:"show_time"`
    SeatLabels  []string `json:"seats"`
    TotalAmount string   `json:"total_amount"`
    ConfirmedAt string   `json:"confirmed_at"`
}
