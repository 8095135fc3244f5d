package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/vanderheijden86/gramline/internal/datasource"
	"github.com/vanderheijden86/gramline/pkg/analytics"
	"github.com/vanderheijden86/gramline/pkg/config"
	"github.com/vanderheijden86/gramline/pkg/export"
	"github.com/vanderheijden86/gramline/pkg/model"
	"github.com/vanderheijden86/gramline/pkg/timeline"
	"github.com/vanderheijden86/gramline/pkg/ui"
	"github.com/vanderheijden86/gramline/pkg/version"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

const lbPerKg = 2.20462262

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	dataPath := flag.String("data", "", "Data file (gramline.db or entries.jsonl) or a directory to discover one in")
	configPath := flag.String("config", "", "Config file (default: XDG config dir)")
	unitFlag := flag.String("unit", "", "Display unit: kg or lb (overrides config)")
	addFlag := flag.Bool("add", false, "Record a weigh-in interactively and exit")
	goalFlag := flag.Bool("goal", false, "Set the goal weight interactively and exit")
	exportPath := flag.String("export", "", "Render a snapshot (SVG or PNG, by extension) and exit")
	importPath := flag.String("import", "", "Merge entries from a JSONL file and exit")
	demoFlag := flag.Bool("demo", false, "Browse a synthetic dataset (nothing is written)")
	watchFlag := flag.Bool("watch", false, "Enable live reload when the data file changes")
	noWatchFlag := flag.Bool("no-watch", false, "Disable live reload")
	flag.Parse()

	// CPU profiling support
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: gramline [options]")
		fmt.Println("\nA terminal dashboard for body-weight trends.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("gramline %s\n", version.Version)
		os.Exit(0)
	}

	cfg := loadConfig(*configPath)
	cfg.ApplyEnv()
	if *dataPath != "" {
		cfg.Data.Path = *dataPath
	}
	if *unitFlag != "" {
		cfg.UI.Unit = *unitFlag
	}

	// Live reload: CLI flags override the env var, the env var overrides
	// the config file.
	if *watchFlag && *noWatchFlag {
		fmt.Fprintln(os.Stderr, "Error: --watch and --no-watch are mutually exclusive")
		os.Exit(2)
	}
	if *watchFlag {
		on := true
		cfg.Data.Watch = &on
	} else if *noWatchFlag {
		off := false
		cfg.Data.Watch = &off
	}

	if *demoFlag {
		// No path on the source, so the TUI skips the file watcher.
		src := datasource.DataSource{Type: datasource.SourceTypeJSONL, Valid: true}
		m := ui.NewModel(demoDataset(time.Now()), src, cfg)
		defer m.Stop()
		if err := runTUIProgram(m); err != nil {
			fmt.Fprintf(os.Stderr, "Error running gramline: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ds, src, err := datasource.Load(cfg.Data.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading data: %v\n", err)
		os.Exit(1)
	}

	unit := displayUnit(cfg)

	switch {
	case *addFlag:
		if err := runAddEntry(ds, src, unit); err != nil {
			fmt.Fprintf(os.Stderr, "Error recording entry: %v\n", err)
			os.Exit(1)
		}
		return
	case *goalFlag:
		if err := runSetGoal(src, unit); err != nil {
			fmt.Fprintf(os.Stderr, "Error setting goal: %v\n", err)
			os.Exit(1)
		}
		return
	case *importPath != "":
		n, err := runImport(ds, src, *importPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error importing entries: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d entries into %s\n", n, src.Path)
		return
	case *exportPath != "":
		if err := runExport(ds, src, cfg, *exportPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Saved %s\n", *exportPath)
		return
	}

	if ds.Empty() {
		fmt.Println("No entries found. Record one with 'gramline --add', or try 'gramline --demo'.")
		os.Exit(0)
	}

	m := ui.NewModel(ds, src, cfg)
	defer m.Stop()

	if err := runTUIProgram(m); err != nil {
		fmt.Fprintf(os.Stderr, "Error running gramline: %v\n", err)
		os.Exit(1)
	}
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set GL_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("GL_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)) {
		return nil
	}
	return err
}

func loadConfig(path string) config.Config {
	if path != "" {
		cfg, err := config.LoadFrom(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config %s: %v\n", path, err)
			os.Exit(1)
		}
		return cfg
	}
	cfg, err := config.Load()
	if err != nil {
		// Non-fatal: continue with defaults.
		return config.DefaultConfig()
	}
	return cfg
}

func displayUnit(cfg config.Config) string {
	if strings.EqualFold(cfg.UI.Unit, "lb") {
		return "lb"
	}
	return "kg"
}

func toKg(v float64, unit string) float64 {
	if unit == "lb" {
		return v / lbPerKg
	}
	return v
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

func runAddEntry(ds *model.Dataset, src datasource.DataSource, unit string) error {
	today := time.Now().Format("2006-01-02")
	dateStr := today
	weightStr := ""
	caloriesStr := ""
	note := ""

	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Date").
				Description("YYYY-MM-DD").
				Value(&dateStr).
				Placeholder(today).
				Validate(validateDate),
			huh.NewInput().
				Title(fmt.Sprintf("Weight (%s)", unit)).
				Value(&weightStr).
				Placeholder("82.4").
				Validate(validateWeight),
			huh.NewInput().
				Title("Calories (optional)").
				Value(&caloriesStr).
				Placeholder("2100").
				Validate(validateOptionalNumber),
			huh.NewInput().
				Title("Note (optional)").
				Value(&note),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	date, _ := time.Parse("2006-01-02", strings.TrimSpace(dateStr))
	weight, _ := strconv.ParseFloat(strings.TrimSpace(weightStr), 64)
	entry := model.Entry{
		Date:     date,
		WeightKg: toKg(weight, unit),
		Note:     strings.TrimSpace(note),
	}
	if s := strings.TrimSpace(caloriesStr); s != "" {
		kcal, _ := strconv.ParseFloat(s, 64)
		entry.Calories = &kcal
	}

	if err := writeEntry(ds, src, entry); err != nil {
		return err
	}
	fmt.Printf("Recorded %.1f %s on %s (%s)\n", weight, unit, date.Format("2006-01-02"), src.Path)
	return nil
}

func runSetGoal(src datasource.DataSource, unit string) error {
	if src.Type != datasource.SourceTypeSQLite {
		return fmt.Errorf("goals are stored in the SQLite database; %s is a %s source", src.Path, src.Type)
	}

	defaultDate := time.Now().AddDate(0, 6, 0).Format("2006-01-02")
	dateStr := defaultDate
	weightStr := ""

	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Target weight (%s)", unit)).
				Value(&weightStr).
				Placeholder("78.0").
				Validate(validateWeight),
			huh.NewInput().
				Title("Target date").
				Description("YYYY-MM-DD").
				Value(&dateStr).
				Placeholder(defaultDate).
				Validate(validateDate),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	weight, _ := strconv.ParseFloat(strings.TrimSpace(weightStr), 64)
	date, _ := time.Parse("2006-01-02", strings.TrimSpace(dateStr))

	store, err := datasource.OpenStore(src.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetGoal(model.Goal{TargetDate: date, TargetWeightKg: toKg(weight, unit)}); err != nil {
		return err
	}
	fmt.Printf("Goal set: %.1f %s by %s\n", weight, unit, date.Format("2006-01-02"))
	return nil
}

func runImport(ds *model.Dataset, src datasource.DataSource, path string) (int, error) {
	entries, err := datasource.ReadEntriesFile(path)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	switch src.Type {
	case datasource.SourceTypeSQLite:
		store, err := datasource.OpenStore(src.Path)
		if err != nil {
			return 0, err
		}
		defer store.Close()
		return store.ImportEntries(entries)
	case datasource.SourceTypeJSONL:
		for _, e := range entries {
			ds.Upsert(e)
		}
		if err := datasource.WriteEntriesFile(src.Path, ds.Entries); err != nil {
			return 0, err
		}
		return len(entries), nil
	default:
		return 0, fmt.Errorf("unsupported source type %q", src.Type)
	}
}

func runExport(ds *model.Dataset, src datasource.DataSource, cfg config.Config, path string) error {
	if ds.Empty() {
		return errors.New("no entries to export")
	}
	analysis := analytics.Compute(ds, timeline.Window{}, cfg.Analytics.Options())
	return export.SaveSnapshot(export.SnapshotOptions{
		Path:     path,
		Dataset:  ds,
		Analysis: &analysis,
		Source:   filepath.Base(src.Path),
	})
}

func writeEntry(ds *model.Dataset, src datasource.DataSource, e model.Entry) error {
	switch src.Type {
	case datasource.SourceTypeSQLite:
		store, err := datasource.OpenStore(src.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.UpsertEntry(e)
	case datasource.SourceTypeJSONL:
		ds.Upsert(e)
		return datasource.WriteEntriesFile(src.Path, ds.Entries)
	default:
		return fmt.Errorf("unsupported source type %q", src.Type)
	}
}

func validateDate(s string) error {
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err != nil {
		return errors.New("want YYYY-MM-DD")
	}
	return nil
}

func validateWeight(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.New("want a number")
	}
	if v <= 0 {
		return errors.New("must be positive")
	}
	return nil
}

func validateOptionalNumber(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return errors.New("want a non-negative number")
	}
	return nil
}

// demoDataset builds a deterministic eighteen-month history with a loss
// phase, a stall, and a holiday rebound, so every overlay and stat has
// something to show.
func demoDataset(now time.Time) *model.Dataset {
	rng := rand.New(rand.NewSource(1867))
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, -18, 0)
	days := int(end.Sub(start).Hours()/24) + 1

	ds := &model.Dataset{}
	weight := 96.5
	reboundPeak := weight
	for i := 0; i < days; i++ {
		switch {
		case i < 240:
			weight -= 0.055
		case i < 360:
			weight += 0.002
		case i < 400:
			weight += 0.045
		default:
			weight -= 0.035
		}
		if i == 400 {
			reboundPeak = weight
		}
		if rng.Float64() < 0.14 {
			continue // missed weigh-in
		}
		e := model.Entry{
			Date:     start.AddDate(0, 0, i),
			WeightKg: math.Round((weight+rng.NormFloat64()*0.45)*10) / 10,
		}
		if rng.Float64() < 0.7 {
			kcal := math.Round((2050+rng.NormFloat64()*320)/10) * 10
			e.Calories = &kcal
		}
		ds.Entries = append(ds.Entries, e)
	}

	ds.Goal = &model.Goal{
		TargetDate:     end.AddDate(0, 6, 0),
		TargetWeightKg: 80,
		CreatedAt:      start,
	}
	ds.Annotations = []model.Annotation{
		{Date: start.AddDate(0, 0, 240), Text: "maintenance break"},
		{Date: start.AddDate(0, 0, 400), Text: "back on plan"},
	}
	ds.TrendLines = []model.TrendLine{
		{
			Start:         start.AddDate(0, 0, 400),
			StartWeightKg: math.Round(reboundPeak*10) / 10,
			KcalPerDay:    -300,
			Label:         "300 kcal deficit",
		},
	}
	ds.Sort()
	return ds
}
