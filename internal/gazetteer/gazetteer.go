// Package gazetteer is an offline place index backed by SQLite. It is filled
// from the US Census gazetteer files and can answer location searches without
// the weather service.
package gazetteer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/swelljoe/wthr.lol/internal/weather"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Country is reported for every place; the Census files only cover the US.
const Country = "US"

// DefaultLimit caps search results when no limit is given.
const DefaultLimit = 5

// ErrNotInitialized is returned by methods called on a nil Store.
var ErrNotInitialized = errors.New("gazetteer not initialized")

// Place is a row of the places table. ZIP code areas carry the code in both
// Name and Zip and have no state.
type Place struct {
	ID        int64
	Name      string
	State     string
	Zip       string
	Latitude  float64
	Longitude float64
}

// Location converts p to the shape used by the dashboard.
func (p Place) Location() weather.Location {
	return weather.Location{
		Name:    p.Name,
		State:   p.State,
		Country: Country,
		Lat:     p.Latitude,
		Lon:     p.Longitude,
	}
}

// Store wraps the gazetteer database.
type Store struct {
	db     *sql.DB
	limit  int
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLimit sets the number of results SearchLocations returns.
func WithLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Open opens or creates the database at path and makes sure the schema exists.
func Open(path string, opts ...Option) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create gazetteer dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gazetteer: %w", err)
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize gazetteer schema: %w", err)
	}

	s := &Store{db: db, limit: DefaultLimit, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("module", "gazetteer")
	return s, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS places (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT NOT NULL,
	state     TEXT NOT NULL DEFAULT '',
	zip       TEXT NOT NULL DEFAULT '',
	latitude  REAL NOT NULL,
	longitude REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_places_name ON places(name COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_places_zip ON places(zip);
`
	_, err := db.Exec(schema)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrNotInitialized
	}
	return s.db.PingContext(ctx)
}

// Count returns the number of places stored.
func (s *Store) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrNotInitialized
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM places").Scan(&n)
	return n, err
}

// sanitizeTerm removes characters with special meaning in LIKE patterns or
// that never occur in place names.
func sanitizeTerm(term string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '"', '(', ')', '^', '*', '%', '_', '\\':
			return -1
		}
		return r
	}, term)
}

// SearchPlaces returns up to limit places whose name has a word starting with
// every term of query, or whose ZIP code starts with query. Exact matches
// and shorter names come first.
func (s *Store) SearchPlaces(ctx context.Context, query string, limit int) ([]Place, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = s.limit
	}

	var terms []string
	for _, t := range strings.Fields(query) {
		if t = sanitizeTerm(t); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil, nil
	}
	cleaned := strings.Join(terms, " ")

	var (
		where []string
		args  []any
	)
	for _, t := range terms {
		where = append(where, "(name LIKE ? OR name LIKE ?)")
		args = append(args, t+"%", "% "+t+"%")
	}
	q := "SELECT id, name, state, zip, latitude, longitude FROM places WHERE (" +
		strings.Join(where, " AND ") + ") OR (zip <> '' AND zip LIKE ?) " +
		"ORDER BY (name = ? COLLATE NOCASE) DESC, length(name), name, state LIMIT ?"
	args = append(args, cleaned+"%", cleaned, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("searching places for %q: %w", query, err)
	}
	defer rows.Close()

	var places []Place
	for rows.Next() {
		var p Place
		if err := rows.Scan(&p.ID, &p.Name, &p.State, &p.Zip, &p.Latitude, &p.Longitude); err != nil {
			return nil, fmt.Errorf("scanning place: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("searching places for %q: %w", query, err)
	}
	return places, nil
}

// SearchLocations answers a dashboard search from the local index.
func (s *Store) SearchLocations(ctx context.Context, query string) ([]weather.Location, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	places, err := s.SearchPlaces(ctx, query, s.limit)
	if err != nil {
		return nil, err
	}
	locs := make([]weather.Location, 0, len(places))
	for _, p := range places {
		locs = append(locs, p.Location())
	}
	s.logger.Debug("gazetteer search", "query", query, "results", len(locs))
	return locs, nil
}
