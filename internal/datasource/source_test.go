package datasource

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/gramline/pkg/model"
)

// writeJSONL drops a small valid entry log at path.
func writeJSONL(t *testing.T, path string, lines ...string) {
	t.Helper()
	if len(lines) == 0 {
		lines = []string{
			`{"date":"2025-03-01","weight_kg":82.4}`,
			`{"date":"2025-03-02","weight_kg":82.1}`,
		}
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

// seedDB creates a gramline.db with one entry and returns its path.
func seedDB(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "gramline.db")
	store, err := OpenStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertEntry(model.Entry{Date: day(2025, 3, 1), WeightKg: 82.0}); err != nil {
		t.Fatal(err)
	}
	store.Close()
	return path
}

func TestDiscoverSources_SortsFreshestFirst(t *testing.T) {
	dir := t.TempDir()
	dbPath := seedDB(t, dir)
	jsonlPath := filepath.Join(dir, "entries.jsonl")
	writeJSONL(t, jsonlPath)

	// The JSONL log was touched well after the database
	old := time.Now().Add(-10 * time.Minute)
	if err := os.Chtimes(dbPath, old, old); err != nil {
		t.Fatal(err)
	}

	sources, err := DiscoverSources(DiscoveryOptions{
		DataDir:                dir,
		ValidateAfterDiscovery: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d: %v", len(sources), sources)
	}

	if sources[0].Path != jsonlPath {
		t.Errorf("expected freshest source first, got %s", sources[0].Path)
	}
	if sources[0].EntryCount != 2 {
		t.Errorf("expected JSONL entry count 2, got %d", sources[0].EntryCount)
	}
	if sources[1].Type != SourceTypeSQLite || sources[1].EntryCount != 1 {
		t.Errorf("expected SQLite source with 1 entry, got %+v", sources[1])
	}
}

func TestDiscoverSources_SkipsArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeJSONL(t, filepath.Join(dir, "entries.jsonl"))
	writeJSONL(t, filepath.Join(dir, "entries.backup.jsonl"))
	writeJSONL(t, filepath.Join(dir, "entries.merge.jsonl"))
	writeJSONL(t, filepath.Join(dir, "entries.orig.jsonl"))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	sources, err := DiscoverSources(DiscoveryOptions{DataDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected 1 source, got %d: %v", len(sources), sources)
	}
	if filepath.Base(sources[0].Path) != "entries.jsonl" {
		t.Errorf("expected entries.jsonl, got %s", sources[0].Path)
	}
}

func TestDiscoverSources_MissingDirIsEmpty(t *testing.T) {
	sources, err := DiscoverSources(DiscoveryOptions{
		DataDir: filepath.Join(t.TempDir(), "does_not_exist"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 0 {
		t.Errorf("expected no sources, got %v", sources)
	}
}

func TestValidateSource_MalformedJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entries.jsonl")
	writeJSONL(t, path, `{"date":"2025-03-01","weight_kg":82.4}`, `{broken`)

	source := DataSource{Type: SourceTypeJSONL, Path: path}
	if err := ValidateSource(&source); err == nil {
		t.Fatal("expected validation error")
	}
	if source.Valid {
		t.Error("expected source to be marked invalid")
	}
	if source.ValidationError == "" {
		t.Error("expected a validation error message")
	}
}

func TestValidateSource_EmptyJSONLIsValid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entries.jsonl")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	source := DataSource{Type: SourceTypeJSONL, Path: path}
	if err := ValidateSource(&source); err != nil {
		t.Fatal(err)
	}
	if !source.Valid || source.EntryCount != 0 {
		t.Errorf("expected valid empty source, got %+v", source)
	}
}

func TestSelectBestSource_PriorityWithinFreshnessWindow(t *testing.T) {
	now := time.Now()
	sources := []DataSource{
		{Type: SourceTypeJSONL, Path: "a.jsonl", Priority: PriorityJSONL, ModTime: now, Valid: true},
		{Type: SourceTypeSQLite, Path: "gramline.db", Priority: PrioritySQLite, ModTime: now.Add(-time.Second), Valid: true},
	}

	best, err := SelectBestSource(sources)
	if err != nil {
		t.Fatal(err)
	}
	if best.Type != SourceTypeSQLite {
		t.Errorf("expected SQLite to win within the freshness window, got %s", best.Type)
	}
}

func TestSelectBestSource_FresherBeyondWindowWins(t *testing.T) {
	now := time.Now()
	sources := []DataSource{
		{Type: SourceTypeJSONL, Path: "a.jsonl", Priority: PriorityJSONL, ModTime: now, Valid: true},
		{Type: SourceTypeSQLite, Path: "gramline.db", Priority: PrioritySQLite, ModTime: now.Add(-10 * time.Minute), Valid: true},
	}

	best, err := SelectBestSource(sources)
	if err != nil {
		t.Fatal(err)
	}
	if best.Type != SourceTypeJSONL {
		t.Errorf("expected the much fresher JSONL to win, got %s", best.Type)
	}
}

func TestSelectBestSource_NoValidSources(t *testing.T) {
	sources := []DataSource{
		{Type: SourceTypeJSONL, Path: "a.jsonl", Valid: false},
	}
	if _, err := SelectBestSource(sources); err == nil {
		t.Error("expected error when no source is valid")
	}
}

func TestResolveDataDir(t *testing.T) {
	if got := ResolveDataDir("/explicit"); got != "/explicit" {
		t.Errorf("expected explicit dir to win, got %s", got)
	}

	t.Setenv("GL_DATA_DIR", "/from-env")
	if got := ResolveDataDir(""); got != "/from-env" {
		t.Errorf("expected GL_DATA_DIR to apply, got %s", got)
	}
}

func TestDetectInconsistencies(t *testing.T) {
	a := []model.Entry{
		{Date: day(2025, 3, 1), WeightKg: 82.4},
		{Date: day(2025, 3, 2), WeightKg: 82.1},
		{Date: day(2025, 3, 3), WeightKg: 81.9},
	}
	b := []model.Entry{
		{Date: day(2025, 3, 1), WeightKg: 82.4},
		{Date: day(2025, 3, 2), WeightKg: 82.6}, // mismatch
	}

	diff := DetectInconsistencies(a, b, "A", "B", DefaultDiffOptions())
	if !diff.HasInconsistencies() {
		t.Fatal("expected inconsistencies")
	}
	if len(diff.MissingInB) != 1 || diff.MissingInB[0] != "2025-03-03" {
		t.Errorf("expected 2025-03-03 missing in B, got %v", diff.MissingInB)
	}
	if len(diff.MissingInA) != 0 {
		t.Errorf("expected nothing missing in A, got %v", diff.MissingInA)
	}
	if len(diff.WeightMismatch) != 1 || diff.WeightMismatch[0].Day != "2025-03-02" {
		t.Errorf("expected one weight mismatch on 2025-03-02, got %v", diff.WeightMismatch)
	}

	summary := diff.Summary()
	if !strings.Contains(summary, "2025-03-03") || !strings.Contains(summary, "different weights") {
		t.Errorf("summary missing details:\n%s", summary)
	}
}

func TestDetectInconsistencies_ToleratesScaleNoise(t *testing.T) {
	a := []model.Entry{{Date: day(2025, 3, 1), WeightKg: 82.400}}
	b := []model.Entry{{Date: day(2025, 3, 1), WeightKg: 82.405}}

	diff := DetectInconsistencies(a, b, "A", "B", DefaultDiffOptions())
	if diff.HasInconsistencies() {
		t.Errorf("expected sub-tolerance delta to be ignored, got %v", diff.WeightMismatch)
	}
}

func TestCompareSources(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.jsonl")
	pathB := filepath.Join(dir, "b.jsonl")
	writeJSONL(t, pathA,
		`{"date":"2025-03-01","weight_kg":82.4}`,
		`{"date":"2025-03-02","weight_kg":82.1}`,
	)
	writeJSONL(t, pathB,
		`{"date":"2025-03-01","weight_kg":82.4}`,
	)

	diff, err := CompareSources(
		DataSource{Type: SourceTypeJSONL, Path: pathA},
		DataSource{Type: SourceTypeJSONL, Path: pathB},
		DefaultDiffOptions(),
	)
	if err != nil {
		t.Fatal(err)
	}
	if !diff.HasInconsistencies() {
		t.Fatal("expected inconsistencies")
	}
	if len(diff.MissingInB) != 1 || diff.MissingInB[0] != "2025-03-02" {
		t.Errorf("expected 2025-03-02 missing in B, got %v", diff.MissingInB)
	}
}

func TestLoad_ExplicitJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mylog.jsonl")
	writeJSONL(t, path)

	ds, source, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(ds.Entries))
	}
	if source.Type != SourceTypeJSONL || !source.Valid {
		t.Errorf("unexpected source %+v", source)
	}
	if source.EntryCount != 2 {
		t.Errorf("expected entry count 2, got %d", source.EntryCount)
	}
}

func TestLoad_ExplicitSQLite(t *testing.T) {
	dir := t.TempDir()
	path := seedDB(t, dir)

	ds, source, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Entries) != 1 || ds.Entries[0].WeightKg != 82.0 {
		t.Fatalf("unexpected entries %v", ds.Entries)
	}
	if source.Type != SourceTypeSQLite {
		t.Errorf("expected sqlite source, got %s", source.Type)
	}
}

func TestLoad_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.jsonl")

	ds, source, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !ds.Empty() {
		t.Errorf("expected empty dataset, got %d entries", len(ds.Entries))
	}
	if !source.Valid || source.Type != SourceTypeJSONL {
		t.Errorf("unexpected source %+v", source)
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.csv")
	if err := os.WriteFile(path, []byte("date,weight\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, _, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if !strings.Contains(err.Error(), "unsupported data file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_DirectoryDiscovery(t *testing.T) {
	dir := t.TempDir()
	jsonlPath := filepath.Join(dir, "entries.jsonl")
	writeJSONL(t, jsonlPath)

	ds, source, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(ds.Entries))
	}
	if source.Path != jsonlPath {
		t.Errorf("expected source %s, got %s", jsonlPath, source.Path)
	}
}

func TestLoad_DirectoryPrefersComparableSQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := seedDB(t, dir)
	jsonlPath := filepath.Join(dir, "entries.jsonl")
	writeJSONL(t, jsonlPath)

	// Same instant: priority decides
	now := time.Now()
	for _, p := range []string{dbPath, jsonlPath} {
		if err := os.Chtimes(p, now, now); err != nil {
			t.Fatal(err)
		}
	}

	ds, source, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if source.Type != SourceTypeSQLite {
		t.Fatalf("expected SQLite to be selected, got %s", source.Type)
	}
	if len(ds.Entries) != 1 || ds.Entries[0].WeightKg != 82.0 {
		t.Errorf("expected the database entries, got %v", ds.Entries)
	}
}

func TestLoad_EmptyDirStartsEmpty(t *testing.T) {
	dir := t.TempDir()

	ds, source, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !ds.Empty() {
		t.Errorf("expected empty dataset, got %d entries", len(ds.Entries))
	}
	want := filepath.Join(dir, DefaultJSONLName)
	if source.Path != want {
		t.Errorf("expected default source path %s, got %s", want, source.Path)
	}
}
