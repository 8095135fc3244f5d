// Package datasource provides multi-source data detection and selection for
// gramline. It discovers, validates, and selects the freshest valid source
// from the SQLite database and JSONL entry logs in the data directory.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/gramline/pkg/config"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite database (gramline.db)
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSONL is a JSONL entry log (entries.jsonl)
	SourceTypeJSONL SourceType = "jsonl"
)

// Priority values for source types (higher = more authoritative)
const (
	PrioritySQLite = 100
	PriorityJSONL  = 50
)

// freshnessWindow is the modification-time slack within which two sources
// count as equally fresh, letting priority decide between them. Editors and
// sync tools routinely skew mtimes by a second or two.
const freshnessWindow = 2 * time.Second

// DataSource represents a potential source of weight-log data
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the absolute path to the source file
	Path string `json:"path"`
	// Priority determines preference when timestamps are close (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// EntryCount is the number of entries in the source (set during validation)
	EntryCount int `json:"entry_count"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, entries=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.EntryCount, status)
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// DataDir is the gramline data directory (optional, auto-detected if empty)
	DataDir string
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

// ResolveDataDir returns the directory to discover sources in: the explicit
// dir when given, else the GL_DATA_DIR environment variable, else the XDG
// data directory.
func ResolveDataDir(dir string) string {
	if dir != "" {
		return dir
	}
	if envDir := os.Getenv("GL_DATA_DIR"); envDir != "" {
		return envDir
	}
	return config.DataDir()
}

// DiscoverSources finds all potential data sources in the data directory
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	dataDir := ResolveDataDir(opts.DataDir)

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering sources in: %s", dataDir))
	}

	var sources []DataSource

	// Discover the SQLite database
	sqliteSources, err := discoverSQLiteSources(dataDir, opts)
	if err != nil && opts.Verbose {
		opts.Logger(fmt.Sprintf("SQLite discovery warning: %v", err))
	}
	sources = append(sources, sqliteSources...)

	// Discover JSONL entry logs
	jsonlSources, err := discoverJSONLSources(dataDir, opts)
	if err != nil && opts.Verbose {
		opts.Logger(fmt.Sprintf("JSONL discovery warning: %v", err))
	}
	sources = append(sources, jsonlSources...)

	// Validate sources if requested
	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
	}

	// Filter out invalid sources if not including them
	if opts.ValidateAfterDiscovery && !opts.IncludeInvalid {
		var validSources []DataSource
		for _, s := range sources {
			if s.Valid {
				validSources = append(validSources, s)
			}
		}
		sources = validSources
	}

	// Sort by mod time and priority
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources", len(sources)))
	}

	return sources, nil
}

// discoverSQLiteSources finds the SQLite database in the data directory
func discoverSQLiteSources(dataDir string, opts DiscoveryOptions) ([]DataSource, error) {
	var sources []DataSource

	dbPath := filepath.Join(dataDir, "gramline.db")
	info, err := os.Stat(dbPath)
	if err == nil {
		sources = append(sources, DataSource{
			Type:     SourceTypeSQLite,
			Path:     dbPath,
			Priority: PrioritySQLite,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found SQLite: %s (mod=%s)", dbPath, info.ModTime().Format(time.RFC3339)))
		}
	}

	return sources, nil
}

// discoverJSONLSources finds JSONL entry logs in the data directory
func discoverJSONLSources(dataDir string, opts DiscoveryOptions) ([]DataSource, error) {
	var sources []DataSource

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		// Must be a .jsonl file
		if !strings.HasSuffix(name, ".jsonl") {
			continue
		}

		// Skip backups, merge artifacts, and export scratch files
		if strings.Contains(name, ".backup") ||
			strings.Contains(name, ".orig") ||
			strings.Contains(name, ".merge") ||
			strings.Contains(name, ".tmp") {
			continue
		}

		path := filepath.Join(dataDir, name)
		info, err := e.Info()
		if err != nil {
			continue
		}

		sources = append(sources, DataSource{
			Type:     SourceTypeJSONL,
			Path:     path,
			Priority: PriorityJSONL,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})

		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found JSONL: %s (mod=%s)", path, info.ModTime().Format(time.RFC3339)))
		}
	}

	return sources, nil
}

// ValidateSource checks that the source can be opened and counts its entries.
// The result is recorded on the source; the returned error mirrors the
// recorded ValidationError for callers that want to log it.
func ValidateSource(s *DataSource) error {
	var (
		count int
		err   error
	)

	switch s.Type {
	case SourceTypeSQLite:
		count, err = countSQLiteEntries(s.Path)
	case SourceTypeJSONL:
		count, err = countJSONLEntries(s.Path)
	default:
		err = fmt.Errorf("unknown source type: %s", s.Type)
	}

	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		s.EntryCount = 0
		return err
	}

	s.Valid = true
	s.ValidationError = ""
	s.EntryCount = count
	return nil
}

// SelectBestSource picks the source to load from. Sources must already be
// sorted freshest-first (DiscoverSources order). Among sources whose mod
// times fall within freshnessWindow of the freshest valid one, the highest
// priority wins; SQLite reflects edits made through gramline itself, so it
// beats a JSONL log written at essentially the same moment.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	best := -1
	for i, s := range sources {
		if !s.Valid {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		withinWindow := sources[best].ModTime.Sub(s.ModTime) <= freshnessWindow
		if withinWindow && s.Priority > sources[best].Priority {
			best = i
		}
	}
	if best == -1 {
		return DataSource{}, fmt.Errorf("no valid sources")
	}
	return sources[best], nil
}
