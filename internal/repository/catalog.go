package repository

import "database/sql"

// Catalog groups the read and admin operations over movies and showtimes.
type Catalog struct {
    *MovieRepo
    *ShowtimeRepo
}

// NewCatalog builds a Catalog over db.
func NewCatalog(db *sql.DB) *Catalog {
    return &Catalog{MovieRepo: NewMovieRepo(db), ShowtimeRepo: NewShowtimeRepo(db)}
}
