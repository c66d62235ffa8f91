// Package seed loads demo users, movies and showtimes for local
// development.  It refuses to run against production.
package seed

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/shopspring/decimal"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/stagepass/internal/model"
    "github.com/iliyamo/stagepass/internal/repository"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

// Seat grid of every seeded showtime: rows A-H, ten seats each.
const (
    gridRows    = 8
    gridPerRow  = 10
    showingDays = 3
)

// ErrProduction is returned when the seeder is pointed at production.
var ErrProduction = errors.New("seed: refusing to run in production")

// Catalog is the write side of the catalog the seeder fills.
type Catalog interface {
    ListMovies(ctx context.Context, genre, search string) ([]model.Movie, error)
    CreateMovie(ctx context.Context, m *model.Movie) error
    CreateShowtime(ctx context.Context, st *model.Showtime, rows, perRow int) error
}

// Users creates accounts.
type Users interface {
    Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error)
}

// Seeder writes the demo data set.  Running it twice is harmless: users
// that exist are skipped and movies are only loaded into an empty catalog.
type Seeder struct {
    Catalog    Catalog
    Users      Users
    BcryptCost int
    Log        logrus.FieldLogger
    Now        func() time.Time
}

// Summary counts what a run created.
type Summary struct {
    Users     int
    Movies    int
    Showtimes int
    Seats     int
}

// Run seeds the stores.  production must reflect the deployment; when it
// is true nothing is written and ErrProduction is returned.
func (s *Seeder) Run(ctx context.Context, production bool) (Summary, error) {
    var sum Summary
    if production {
        return sum, ErrProduction
    }
    now := time.Now
    if s.Now != nil {
        now = s.Now
    }

    for _, u := range demoUsers {
        _, err := s.Users.Create(ctx, u.name, u.email, DemoPassword, u.role, s.BcryptCost)
        switch {
        case errors.Is(err, repository.ErrEmailExists):
            continue
        case err != nil:
            return sum, fmt.Errorf("seed user %s: %w", u.email, err)
        }
        sum.Users++
    }

    existing, err := s.Catalog.ListMovies(ctx, "", "")
    if err != nil {
        return sum, fmt.Errorf("seed: list movies: %w", err)
    }
    if len(existing) > 0 {
        s.Log.WithField("movies", len(existing)).Info("seed: catalog not empty, skipping movies")
        return sum, nil
    }

    first := now().UTC().AddDate(0, 0, 1)
    for i, dm := range demoMovies {
        m := dm.movie()
        if err := s.Catalog.CreateMovie(ctx, &m); err != nil {
            return sum, fmt.Errorf("seed movie %q: %w", m.Title, err)
        }
        sum.Movies++

        for day := 0; day < showingDays; day++ {
            date := first.AddDate(0, 0, day).Format("2006-01-02")
            for slot := 0; slot < 2; slot++ {
                k := i*showingDays*2 + day*2 + slot
                st := model.Showtime{
                    MovieID: m.ID,
                    Date:    date,
                    Time:    showTimes[(i+day+slot*3)%len(showTimes)],
                    Venue:   venues[k%len(venues)],
                    Price:   prices[k%len(prices)],
                }
                if err := s.Catalog.CreateShowtime(ctx, &st, gridRows, gridPerRow); err != nil {
                    return sum, fmt.Errorf("seed showtime for %q: %w", m.Title, err)
                }
                sum.Showtimes++
                sum.Seats += st.TotalSeats
            }
        }
    }

    s.Log.WithFields(logrus.Fields{
        "users":     sum.Users,
        "movies":    sum.Movies,
        "showtimes": sum.Showtimes,
        "seats":     sum.Seats,
    }).Info("seed: demo data loaded")
    return sum, nil
}

type demoUser struct {
    name, email, role string
}

var demoUsers = []demoUser{
    {"John Doe", "john@example.com", model.RoleCustomer},
    {"Jane Smith", "jane@example.com", model.RoleCustomer},
    {"Raj Patel", "raj@example.com", model.RoleCustomer},
    {"Box Office", "admin@example.com", model.RoleAdmin},
}

type demoMovie struct {
    title, genre, director, cast, released, language string
    duration                                           int
    rating                                             float64
}

func (d demoMovie) movie() model.Movie {
    rating := d.rating
    director, cast, released := d.director, d.cast, d.released
    return model.Movie{
        Title:       d.title,
        Genre:       d.genre,
        Duration:    d.duration,
        Rating:      &rating,
        Director:    &director,
        Cast:        &cast,
        ReleaseDate: &released,
        Language:    d.language,
    }
}

var demoMovies = []demoMovie{
    {"Inception", "Sci-Fi", "Christopher Nolan", "Leonardo DiCaprio, Joseph Gordon-Levitt, Elliot Page, Tom Hardy", "2010-07-16", "English", 148, 8.8},
    {"The Dark Knight", "Action", "Christopher Nolan", "Christian Bale, Heath Ledger, Aaron Eckhart, Michael Caine", "2008-07-18", "English", 152, 9.0},
    {"Interstellar", "Sci-Fi", "Christopher Nolan", "Matthew McConaughey, Anne Hathaway, Jessica Chastain, Michael Caine", "2014-11-07", "English", 169, 8.7},
    {"Oppenheimer", "Drama", "Christopher Nolan", "Cillian Murphy, Emily Blunt, Matt Damon, Robert Downey Jr.", "2023-07-21", "English", 180, 8.5},
    {"Parasite", "Thriller", "Bong Joon-ho", "Song Kang-ho, Lee Sun-kyun, Cho Yeo-jeong, Choi Woo-shik", "2019-05-30", "Korean", 132, 8.5},
    {"Spider-Man: Across the Spider-Verse", "Animation", "Joaquim Dos Santos", "Shameik Moore, Hailee Steinfeld, Oscar Isaac, Jake Johnson", "2023-06-02", "English", 140, 8.7},
    {"Barbie", "Comedy", "Greta Gerwig", "Margot Robbie, Ryan Gosling, America Ferrera, Will Ferrell", "2023-07-21", "English", 114, 7.0},
    {"Past Lives", "Romance", "Celine Song", "Greta Lee, Teo Yoo, John Magaro", "2023-06-02", "English", 105, 8.0},
}

var venues = []string{
    "INOX Megaplex - Screen 1",
    "INOX Megaplex - Screen 2",
    "PVR Luxe - Orion Mall",
    "PVR Luxe - Phoenix Mall",
    "Cinepolis - Lulu Mall",
    "Regal Cinemas - MG Road",
}

var showTimes = []string{"09:00", "10:30", "12:00", "13:30", "15:00", "16:30", "18:00", "19:30", "21:00", "22:30"}

var prices = []decimal.Decimal{
    decimal.NewFromInt(150),
    decimal.NewFromInt(200),
    decimal.NewFromInt(250),
    decimal.NewFromInt(300),
    decimal.NewFromInt(350),
    decimal.NewFromInt(450),
}
