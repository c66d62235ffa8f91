package model

// Movie is a catalog entry that showtimes refer to.  Movies are
// read-only from the point of view of the booking flow.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – display title.
//  Genre       – single genre label used for filtering.
//  Duration    – running time in minutes.
//  Rating      – average rating (nullable).
//  PosterURL   – poster image URL (nullable).
//  Synopsis    – short plot summary (nullable).
//  Director    – director credit (nullable).
//  Cast        – comma separated cast list (nullable).
//  ReleaseDate – release date as YYYY-MM-DD (nullable).
//  Language    – spoken language, defaults to English.
type Movie struct {
    ID          uint64   `json:"id"`           // movies.id
    Title       string   `json:"title"`        // movies.title
    Genre       string   `json:"genre"`        // movies.genre
    Duration    int      `json:"duration"`     // movies.duration
    Rating      *float64 `json:"rating"`       // movies.rating (nullable)
    PosterURL   *string  `json:"poster_url"`   // movies.poster_url (nullable)
    Synopsis    *string  `json:"synopsis"`     // movies.synopsis (nullable)
    Director    *string  `json:"director"`     // movies.director (nullable)
    Cast        *string  `json:"cast"`         // movies.cast_members (nullable)
    ReleaseDate *string  `json:"release_date"` // movies.release_date (nullable)
    Language    string   `json:"language"`     // movies.language
}

// DefaultLanguage is stored when a movie is created without a language.
const DefaultLanguage = "English"
