package datasource

import (
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/gramline/pkg/model"
)

// Store provides read/write access to a gramline SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// schema creates the tables on first open. Days are stored as ISO date
// strings; timestamps as RFC 3339.
const schema = `
	CREATE TABLE IF NOT EXISTS entries (
		day        TEXT PRIMARY KEY,
		weight_kg  REAL NOT NULL,
		calories   REAL,
		note       TEXT
	);
	CREATE TABLE IF NOT EXISTS goals (
		id                INTEGER PRIMARY KEY CHECK (id = 1),
		target_date       TEXT NOT NULL,
		target_weight_kg  REAL NOT NULL,
		created_at        TEXT
	);
	CREATE TABLE IF NOT EXISTS annotations (
		day   TEXT NOT NULL,
		text  TEXT NOT NULL,
		PRIMARY KEY (day, text)
	);
	CREATE TABLE IF NOT EXISTS trendlines (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		start            TEXT NOT NULL,
		start_weight_kg  REAL NOT NULL,
		kcal_per_day     REAL NOT NULL,
		label            TEXT
	);
`

// OpenStore opens (creating if needed) the SQLite database at path.
func OpenStore(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Read-performance pragmas, best effort
	pragmas := []string{
		"PRAGMA cache_size = -64000",   // 64MB cache
		"PRAGMA mmap_size = 268435456", // 256MB mmap
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		_, _ = db.Exec(pragma)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot initialize schema: %w", err)
	}

	return &Store{
		db:   db,
		path: path,
	}, nil
}

// openReadOnly opens an existing database without touching its schema.
func openReadOnly(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	return db, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// LoadDataset reads the full dataset. The four tables are read concurrently;
// entries come back sorted by day.
func (s *Store) LoadDataset() (*model.Dataset, error) {
	var (
		entries     []model.Entry
		goal        *model.Goal
		annotations []model.Annotation
		trendLines  []model.TrendLine
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		var err error
		entries, err = s.loadEntries()
		return err
	})
	g.Go(func() error {
		var err error
		goal, err = s.loadGoal()
		return err
	})
	g.Go(func() error {
		var err error
		annotations, err = s.loadAnnotations()
		return err
	})
	g.Go(func() error {
		var err error
		trendLines, err = s.loadTrendLines()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := &model.Dataset{
		Entries:     entries,
		Goal:        goal,
		Annotations: annotations,
		TrendLines:  trendLines,
	}
	ds.Sort()
	return ds, nil
}

// loadEntries reads all entries ordered by day
func (s *Store) loadEntries() ([]model.Entry, error) {
	rows, err := s.db.Query(`SELECT day, weight_kg, calories, note FROM entries ORDER BY day`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []model.Entry
	for rows.Next() {
		var (
			day      string
			weightKg float64
			calories sql.NullFloat64
			note     sql.NullString
		)
		if err := rows.Scan(&day, &weightKg, &calories, &note); err != nil {
			continue
		}

		date, err := parseDay(day)
		if err != nil {
			continue
		}

		entry := model.Entry{Date: date, WeightKg: weightKg}
		if calories.Valid {
			v := calories.Float64
			entry.Calories = &v
		}
		if note.Valid {
			entry.Note = note.String
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return entries, nil
}

// loadGoal reads the single goal row, if any
func (s *Store) loadGoal() (*model.Goal, error) {
	var (
		targetDate     string
		targetWeightKg float64
		createdAt      sql.NullString
	)
	err := s.db.QueryRow(`SELECT target_date, target_weight_kg, created_at FROM goals WHERE id = 1`).
		Scan(&targetDate, &targetWeightKg, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query goal: %w", err)
	}

	date, err := parseDay(targetDate)
	if err != nil {
		return nil, fmt.Errorf("goal target date %q: %w", targetDate, err)
	}

	goal := &model.Goal{TargetDate: date, TargetWeightKg: targetWeightKg}
	if createdAt.Valid {
		if t, err := time.Parse(time.RFC3339, createdAt.String); err == nil {
			goal.CreatedAt = t
		}
	}
	return goal, nil
}

// loadAnnotations reads all annotations ordered by day
func (s *Store) loadAnnotations() ([]model.Annotation, error) {
	rows, err := s.db.Query(`SELECT day, text FROM annotations ORDER BY day`)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	var annotations []model.Annotation
	for rows.Next() {
		var (
			day  string
			text string
		)
		if err := rows.Scan(&day, &text); err != nil {
			continue
		}
		date, err := parseDay(day)
		if err != nil {
			continue
		}
		annotations = append(annotations, model.Annotation{Date: date, Text: text})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating annotations: %w", err)
	}

	return annotations, nil
}

// loadTrendLines reads all manual trend lines in creation order
func (s *Store) loadTrendLines() ([]model.TrendLine, error) {
	rows, err := s.db.Query(`SELECT start, start_weight_kg, kcal_per_day, label FROM trendlines ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query trendlines: %w", err)
	}
	defer rows.Close()

	var lines []model.TrendLine
	for rows.Next() {
		var (
			start         string
			startWeightKg float64
			kcalPerDay    float64
			label         sql.NullString
		)
		if err := rows.Scan(&start, &startWeightKg, &kcalPerDay, &label); err != nil {
			continue
		}
		date, err := parseDay(start)
		if err != nil {
			continue
		}
		line := model.TrendLine{Start: date, StartWeightKg: startWeightKg, KcalPerDay: kcalPerDay}
		if label.Valid {
			line.Label = label.String
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trendlines: %w", err)
	}

	return lines, nil
}

// UpsertEntry inserts or replaces the entry for its calendar day.
func (s *Store) UpsertEntry(e model.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO entries (day, weight_kg, calories, note)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			weight_kg = excluded.weight_kg,
			calories  = excluded.calories,
			note      = excluded.note`,
		formatDay(e.Date), e.WeightKg, e.Calories, nullIfEmpty(e.Note))
	if err != nil {
		return fmt.Errorf("upsert entry %s: %w", formatDay(e.Date), err)
	}
	return nil
}

// ImportEntries upserts a batch of entries in one transaction and returns
// the number committed. Any invalid entry aborts the whole batch.
func (s *Store) ImportEntries(entries []model.Entry) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO entries (day, weight_kg, calories, note)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			weight_kg = excluded.weight_kg,
			calories  = excluded.calories,
			note      = excluded.note`)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return 0, err
		}
		if _, err := stmt.Exec(formatDay(e.Date), e.WeightKg, e.Calories, nullIfEmpty(e.Note)); err != nil {
			return 0, fmt.Errorf("import entry %s: %w", formatDay(e.Date), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(entries), nil
}

// SetGoal replaces the goal. A zero CreatedAt is stamped with the current
// time.
func (s *Store) SetGoal(g model.Goal) error {
	createdAt := g.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO goals (id, target_date, target_weight_kg, created_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			target_date      = excluded.target_date,
			target_weight_kg = excluded.target_weight_kg,
			created_at       = excluded.created_at`,
		formatDay(g.TargetDate), g.TargetWeightKg, createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set goal: %w", err)
	}
	return nil
}

// AddAnnotation records an annotation; re-adding the same day+text is a
// no-op.
func (s *Store) AddAnnotation(a model.Annotation) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO annotations (day, text) VALUES (?, ?)`,
		formatDay(a.Date), a.Text)
	if err != nil {
		return fmt.Errorf("add annotation: %w", err)
	}
	return nil
}

// AddTrendLine records a manual trend line.
func (s *Store) AddTrendLine(t model.TrendLine) error {
	_, err := s.db.Exec(`INSERT INTO trendlines (start, start_weight_kg, kcal_per_day, label) VALUES (?, ?, ?, ?)`,
		formatDay(t.Start), t.StartWeightKg, t.KcalPerDay, nullIfEmpty(t.Label))
	if err != nil {
		return fmt.Errorf("add trendline: %w", err)
	}
	return nil
}

// CountEntries returns the number of stored entries
func (s *Store) CountEntries() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// countSQLiteEntries opens path read-only and counts its entries. Used by
// source validation; a file without an entries table fails here.
func countSQLiteEntries(path string) (int, error) {
	db, err := openReadOnly(path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("not a gramline database: %w", err)
	}
	return count, nil
}

// nullIfEmpty maps "" to NULL so optional text columns stay NULL-clean.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
