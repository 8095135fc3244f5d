package datasource

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/gramline/pkg/model"
)

// maxLineSize bounds a single JSONL line. Entry lines are tiny; the
// headroom covers long notes pasted into the log.
const maxLineSize = 1024 * 1024

// entryRecord is the wire form of an entry. Dates travel as ISO day
// strings so the log stays hand-editable; RFC 3339 timestamps are accepted
// on read for files written by other tools.
type entryRecord struct {
	Date     string   `json:"date"`
	WeightKg float64  `json:"weight_kg"`
	Calories *float64 `json:"calories,omitempty"`
	Note     string   `json:"note,omitempty"`
}

// ReadEntriesFile loads entries from a JSONL log at path.
func ReadEntriesFile(path string) ([]model.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()
	return ReadEntries(f)
}

// ReadEntries parses one entry per line from r. Blank lines are skipped;
// a malformed line fails the whole read with its line number, since a
// silently dropped measurement would skew every series downstream.
func ReadEntries(r io.Reader) ([]model.Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var entries []model.Entry
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec entryRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		date, err := parseDay(rec.Date)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		entry := model.Entry{
			Date:     date,
			WeightKg: rec.WeightKg,
			Calories: rec.Calories,
			Note:     rec.Note,
		}
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}

	return entries, nil
}

// WriteEntriesFile writes entries as a JSONL log, one per line, via a
// temp-file rename so watchers and concurrent readers never see a torn
// file.
func WriteEntriesFile(path string, entries []model.Entry) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, e := range entries {
		rec := entryRecord{
			Date:     formatDay(e.Date),
			WeightKg: e.WeightKg,
			Calories: e.Calories,
			Note:     e.Note,
		}
		data, err := json.Marshal(rec)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("encode entry %s: %w", rec.Date, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			tmp.Close()
			return fmt.Errorf("write entry %s: %w", rec.Date, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush entries: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// countJSONLEntries counts parseable entries at path. Used by source
// validation; an empty file is a valid fresh log.
func countJSONLEntries(path string) (int, error) {
	entries, err := ReadEntriesFile(path)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// dayFormat is the ISO date layout used in files and the database.
const dayFormat = "2006-01-02"

// formatDay renders t as an ISO date string.
func formatDay(t time.Time) string {
	return t.Format(dayFormat)
}

// parseDay parses an ISO date, accepting a full RFC 3339 timestamp as a
// fallback. Bare dates land at local midnight.
func parseDay(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(dayFormat, s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
}
