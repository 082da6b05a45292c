package game

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTestData(t *testing.T, dir, locations, results string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, locationsFile), []byte(locations), 0o644); err != nil {
		t.Fatalf("failed to write locations: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, resultsFile), []byte(results), 0o644); err != nil {
		t.Fatalf("failed to write results: %v", err)
	}
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	writeTestData(t, dir,
		`[
			{"lat": 41.88, "lng": -87.63, "fips": "17031", "heading": 90},
			{"lat": 29.76, "lng": -95.37, "fips": "48201", "heading": 180, "town": "Houston"}
		]`,
		`{
			"17031": {"fips": "17031", "county": "Cook County", "state": "Illinois", "margin": -47.0},
			"48201": {"fips": "48201", "county": "Harris County", "state": "Texas", "margin": -18.5}
		}`,
	)

	d, err := LoadDataset(dir)
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if d.Size() != 2 {
		t.Errorf("expected 2 locations, got %d", d.Size())
	}

	result, ok := d.Result("17031")
	if !ok {
		t.Fatal("expected result for 17031")
	}
	if result.County != "Cook County" || result.Margin != -47.0 {
		t.Errorf("unexpected result: %+v", result)
	}

	if _, ok := d.Result("00000"); ok {
		t.Error("expected no result for unknown FIPS")
	}
}

func TestLoadDataset_EmptyPool(t *testing.T) {
	dir := t.TempDir()
	writeTestData(t, dir, `[]`, `{}`)

	if _, err := LoadDataset(dir); !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestLoadDataset_MissingFiles(t *testing.T) {
	if _, err := LoadDataset(t.TempDir()); err == nil {
		t.Error("expected error for missing data files")
	}
}

func TestLoadDataset_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeTestData(t, dir, `[{"lat": not-json`, `{}`)

	if _, err := LoadDataset(dir); err == nil {
		t.Error("expected error for malformed locations file")
	}
}
