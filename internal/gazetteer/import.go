package gazetteer

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Census 2023 gazetteer archives.
const (
	PlacesURL = "https://www2.census.gov/geo/docs/maps-data/data/gazetteer/2023_Gazetteer/2023_Gaz_place_national.zip"
	ZCTAsURL  = "https://www2.census.gov/geo/docs/maps-data/data/gazetteer/2023_Gazetteer/2023_Gaz_zcta_national.zip"
)

// Importer loads one gazetteer text file and returns the number of rows stored.
type Importer func(ctx context.Context, r io.Reader) (int, error)

// Dataset names a Census archive and how to import it.
type Dataset struct {
	Name string
	URL  string
}

// Datasets lists the archives loaded by a full import.
var Datasets = []Dataset{
	{Name: "places", URL: PlacesURL},
	{Name: "zctas", URL: ZCTAsURL},
}

// Importer returns the import function for d on s.
func (s *Store) Importer(d Dataset) (Importer, error) {
	switch d.Name {
	case "places":
		return s.ImportPlaces, nil
	case "zctas":
		return s.ImportZCTAs, nil
	}
	return nil, fmt.Errorf("unknown dataset %q", d.Name)
}

// Download fetches url into path.
func Download(ctx context.Context, client *http.Client, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: bad status: %s", url, resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return out.Close()
}

// ImportArchive feeds the first .txt file in the zip archive at path to imp.
func ImportArchive(ctx context.Context, path string, imp Importer) (int, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, ".txt") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return 0, err
		}
		defer rc.Close()
		return imp(ctx, rc)
	}
	return 0, fmt.Errorf("no txt file found in %s", path)
}

// rowFunc turns one TSV record into insert arguments. ok is false for
// records that should be skipped.
type rowFunc func(record []string) (args []any, ok bool)

func (s *Store) importRows(ctx context.Context, r io.Reader, insert string, row rowFunc) (int, error) {
	if s == nil || s.db == nil {
		return 0, ErrNotInitialized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		return 0, fmt.Errorf("reading header: %w", err)
	}

	count := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue // Skip malformed lines
		}
		args, ok := row(record)
		if !ok {
			continue
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			if ctx.Err() != nil {
				return count, ctx.Err()
			}
			s.logger.Warn("insert failed", "record", args[0], "error", err)
			continue
		}
		count++
		if count%10000 == 0 {
			s.logger.Info("import progress", "rows", count)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// ImportPlaces loads a Census place file:
//
//	USPS NAME ... INTPTLAT INTPTLONG
//
// with the name in column 3 and the coordinates in columns 10 and 11.
func (s *Store) ImportPlaces(ctx context.Context, r io.Reader) (int, error) {
	const insert = "INSERT INTO places (name, state, latitude, longitude) VALUES (?, ?, ?, ?)"
	return s.importRows(ctx, r, insert, func(record []string) ([]any, bool) {
		if len(record) < 12 {
			return nil, false
		}
		state := strings.TrimSpace(record[0])
		name := cleanPlaceName(strings.TrimSpace(record[3]))
		lat, lon, err := parseCoordinates(record[10], record[11])
		if err != nil {
			s.logger.Warn("skipping place", "name", name, "error", err)
			return nil, false
		}
		return []any{name, state, lat, lon}, true
	})
}

// ImportZCTAs loads a Census ZIP code tabulation area file, with the code in
// column 0 and the coordinates in columns 5 and 6.
func (s *Store) ImportZCTAs(ctx context.Context, r io.Reader) (int, error) {
	const insert = "INSERT INTO places (name, zip, state, latitude, longitude) VALUES (?, ?, '', ?, ?)"
	return s.importRows(ctx, r, insert, func(record []string) ([]any, bool) {
		if len(record) < 7 {
			return nil, false
		}
		code := strings.TrimSpace(record[0])
		lat, lon, err := parseCoordinates(record[5], record[6])
		if err != nil {
			s.logger.Warn("skipping zip", "zip", code, "error", err)
			return nil, false
		}
		return []any{code, code, lat, lon}, true
	})
}

// Clear removes every place.
func (s *Store) Clear(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrNotInitialized
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM places")
	return err
}

var placeSuffixes = []string{" city", " town", " village", " CDP", " borough"}

// cleanPlaceName drops the legal/statistical area suffix from a Census name.
func cleanPlaceName(name string) string {
	for _, s := range placeSuffixes {
		if strings.HasSuffix(name, s) {
			return name[:len(name)-len(s)]
		}
	}
	return name
}

func parseCoordinates(latStr, lonStr string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}
	if lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("latitude out of range: %f", lat)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}
	if lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("longitude out of range: %f", lon)
	}
	return lat, lon, nil
}

