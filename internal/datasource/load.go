package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/gramline/pkg/debug"
	"github.com/vanderheijden86/gramline/pkg/metrics"
	"github.com/vanderheijden86/gramline/pkg/model"
)

// DefaultJSONLName is the canonical entry-log filename.
const DefaultJSONLName = "entries.jsonl"

// Load resolves path to a data source and loads the dataset from it.
//
// path may be empty (discover in the data directory, GL_DATA_DIR or the
// XDG default), a directory (discover within it), or a file (loaded
// directly, type inferred from the extension). Discovery prefers the
// freshest valid source; SQLite wins over a JSONL log written at
// essentially the same moment, since it reflects edits made through
// gramline itself.
//
// The chosen source is returned alongside the dataset so callers can
// watch its path and show it in the footer. When nothing is found, Load
// returns an empty dataset and a source pointing at the default JSONL
// log, letting first use create it.
func Load(path string) (*model.Dataset, DataSource, error) {
	defer metrics.Timer(metrics.DatasetLoad)()

	if path == "" {
		return loadDiscovered("")
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return loadDiscovered(path)

	case err == nil:
		source, err := sourceForFile(path)
		if err != nil {
			return nil, DataSource{}, err
		}
		source.ModTime = info.ModTime()
		source.Size = info.Size()
		if err := ValidateSource(&source); err != nil {
			return nil, source, fmt.Errorf("invalid data source %s: %w", path, err)
		}
		ds, err := LoadFromSource(source)
		return ds, source, err

	case os.IsNotExist(err):
		// A fresh start: hand back an empty dataset against the named
		// file so the first --add creates it.
		source, serr := sourceForFile(path)
		if serr != nil {
			return nil, DataSource{}, serr
		}
		source.Valid = true
		debug.Log("data file %s does not exist yet, starting empty", path)
		return &model.Dataset{}, source, nil

	default:
		return nil, DataSource{}, fmt.Errorf("cannot stat %s: %w", path, err)
	}
}

// loadDiscovered discovers sources in dir, selects the best, and loads it.
func loadDiscovered(dir string) (*model.Dataset, DataSource, error) {
	sources, err := DiscoverSources(DiscoveryOptions{
		DataDir:                dir,
		ValidateAfterDiscovery: true,
		IncludeInvalid:         false,
		Verbose:                debug.Enabled(),
		Logger:                 func(msg string) { debug.Log("%s", msg) },
	})
	if err != nil {
		return nil, DataSource{}, err
	}

	if len(sources) == 0 {
		dataDir := ResolveDataDir(dir)
		source := DataSource{
			Type:     SourceTypeJSONL,
			Path:     filepath.Join(dataDir, DefaultJSONLName),
			Priority: PriorityJSONL,
			Valid:    true,
		}
		debug.Log("no data sources in %s, starting empty", dataDir)
		return &model.Dataset{}, source, nil
	}

	best, err := SelectBestSource(sources)
	if err != nil {
		return nil, DataSource{}, err
	}

	// When several valid sources coexist, a stale copy usually means an
	// export or sync fell behind. Worth a trace line.
	if debug.Enabled() && len(sources) > 1 {
		for _, other := range sources {
			if other.Path == best.Path {
				continue
			}
			if diff, err := CompareSources(best, other, DefaultDiffOptions()); err == nil && diff.HasInconsistencies() {
				debug.Log("%s", diff.Summary())
			}
			break
		}
	}

	ds, err := LoadFromSource(best)
	return ds, best, err
}

// LoadFromSource loads the dataset from a specific DataSource, dispatching
// on its type.
func LoadFromSource(source DataSource) (*model.Dataset, error) {
	switch source.Type {
	case SourceTypeSQLite:
		store, err := OpenStore(source.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer store.Close()
		return store.LoadDataset()

	case SourceTypeJSONL:
		entries, err := ReadEntriesFile(source.Path)
		if errors.Is(err, os.ErrNotExist) {
			return &model.Dataset{}, nil
		}
		if err != nil {
			return nil, err
		}
		ds := &model.Dataset{Entries: entries}
		ds.Sort()
		return ds, nil

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// sourceForFile builds a DataSource for an explicitly named file.
func sourceForFile(path string) (DataSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return DataSource{}, err
	}

	switch strings.ToLower(filepath.Ext(abs)) {
	case ".db", ".sqlite", ".sqlite3":
		return DataSource{Type: SourceTypeSQLite, Path: abs, Priority: PrioritySQLite}, nil
	case ".jsonl":
		return DataSource{Type: SourceTypeJSONL, Path: abs, Priority: PriorityJSONL}, nil
	default:
		return DataSource{}, fmt.Errorf("unsupported data file %s (want .db or .jsonl)", path)
	}
}
