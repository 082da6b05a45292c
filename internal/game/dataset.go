package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Dataset file names under the configured data directory.
const (
	locationsFile = "locations.json"
	resultsFile   = "election-results.json"
)

// ErrEmptyDataset is returned when the location pool is empty.
var ErrEmptyDataset = errors.New("dataset contains no locations")

// Dataset is the read-only game data provider: the curated location
// pool and the county results table. It is loaded once at process
// start and injected into whatever needs it, so the selector and the
// fact table are unit-testable with fixture data.
type Dataset struct {
	locations []Location
	results   map[string]CountyResult
}

// NewDataset builds a Dataset from already-parsed data. Intended for
// tests and tooling; servers use LoadDataset.
func NewDataset(locations []Location, results map[string]CountyResult) *Dataset {
	return &Dataset{
		locations: locations,
		results:   results,
	}
}

// LoadDataset reads the location pool and results table from dir.
// Call once at startup; the returned Dataset is immutable.
func LoadDataset(dir string) (*Dataset, error) {
	var locations []Location
	if err := readJSONFile(filepath.Join(dir, locationsFile), &locations); err != nil {
		return nil, fmt.Errorf("failed to load locations: %w", err)
	}
	if len(locations) == 0 {
		return nil, ErrEmptyDataset
	}

	results := make(map[string]CountyResult)
	if err := readJSONFile(filepath.Join(dir, resultsFile), &results); err != nil {
		return nil, fmt.Errorf("failed to load election results: %w", err)
	}

	return NewDataset(locations, results), nil
}

// readJSONFile reads and unmarshals a single JSON file into v.
func readJSONFile(path string, v any) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return json.NewDecoder(f).Decode(v)
}

// Size returns the number of locations in the pool.
func (d *Dataset) Size() int {
	return len(d.locations)
}

// Result resolves ground truth for a FIPS code. The second return is
// false when the code is missing from the results table.
func (d *Dataset) Result(fips string) (CountyResult, bool) {
	r, ok := d.results[fips]
	return r, ok
}
