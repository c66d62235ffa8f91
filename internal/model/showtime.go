package model

import "github.com/shopspring/decimal"

// Showtime represents a scheduled screening of a movie at a venue.  A
// showtime owns a fixed grid of seats created together with it and is
// immutable afterwards.  Price is charged per seat.
//
// Fields:
//  ID         – primary key identifier.
//  MovieID    – movie being screened.
//  Date       – screening date as YYYY-MM-DD.
//  Time       – screening time as HH:MM.
//  Venue      – venue or hall name.
//  Price      – price per seat.
//  TotalSeats – number of seats created for the showtime.
type Showtime struct {
    ID         uint64          `json:"id"`          // showtimes.id
    MovieID    uint64          `json:"movie_id"`    // showtimes.movie_id
    Date       string          `json:"date"`        // showtimes.show_date
    Time       string          `json:"time"`        // showtimes.show_time
    Venue      string          `json:"venue"`       // showtimes.venue
    Price      decimal.Decimal `json:"price"`       // showtimes.price
    TotalSeats int             `json:"total_seats"` // showtimes.total_seats
}

// ShowtimeAvailability decorates a showtime with the number of seats that
// are still free.  It is computed on read and never stored.
type ShowtimeAvailability struct {
    Showtime
    AvailableSeats int `json:"available_seats"`
}

// DefaultTotalSeats is the size of the standard 8x10 seat grid.
const DefaultTotalSeats = 80
