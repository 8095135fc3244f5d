// Package config handles loading and saving gramline configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/gramline/config.yaml
//   - Data:    ~/.local/share/gramline/ (weight database, imports)
//   - State:   ~/.local/state/gramline/ (view state cache)
//
// Precedence is flag > environment > file > default; the environment layer
// is applied by ApplyEnv so tests can exercise it with t.Setenv.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/gramline/pkg/analytics"
	"github.com/vanderheijden86/gramline/pkg/timeline"
)

// UIConfig holds presentation preferences.
type UIConfig struct {
	Unit      string `yaml:"unit,omitempty"`       // kg or lb
	Theme     string `yaml:"theme,omitempty"`      // auto, dark, light
	ShowBand  *bool  `yaml:"show_band,omitempty"`  // confidence band overlay
	ShowGoal  *bool  `yaml:"show_goal,omitempty"`  // goal line overlay
	CompactUI bool   `yaml:"compact,omitempty"`    // drop the stats pane on narrow terminals
}

// DataConfig locates the weight data.
type DataConfig struct {
	// Path points at a data file (gramline.db or entries.jsonl) or a
	// directory to discover one in. Empty means the XDG data dir.
	Path string `yaml:"path,omitempty"`
	// Watch enables live reload when the data file changes externally.
	Watch *bool `yaml:"watch,omitempty"`
}

// TuningConfig exposes the interaction engine's knobs. All fields are
// optional; zeroes fall through to the engine defaults.
type TuningConfig struct {
	DebounceSettleMs      int     `yaml:"debounce_settle_ms,omitempty"`
	RegressionToleranceMs int     `yaml:"regression_tolerance_ms,omitempty"`
	YPaddingPct           float64 `yaml:"y_padding_pct,omitempty"`
	YPaddingMinAbs        float64 `yaml:"y_padding_min,omitempty"`
	InitialViewSpanMonths int     `yaml:"initial_view_span_months,omitempty"`
	ZoomScaleMin          float64 `yaml:"zoom_scale_min,omitempty"`
	ZoomScaleMax          float64 `yaml:"zoom_scale_max,omitempty"`
}

// AnalyticsConfig exposes the derived-series tuning.
type AnalyticsConfig struct {
	SmoothingDays       int     `yaml:"smoothing_days,omitempty"`
	BandStdDevs         float64 `yaml:"band_std_devs,omitempty"`
	EnergyWindowDays    int     `yaml:"energy_window_days,omitempty"`
	OutlierThreshold    float64 `yaml:"outlier_threshold,omitempty"`
	PlateauMinDays      int     `yaml:"plateau_min_days,omitempty"`
	PlateauMaxKgPerWeek float64 `yaml:"plateau_max_kg_per_week,omitempty"`
}

// Config is the top-level configuration for gramline.
type Config struct {
	Data      DataConfig      `yaml:"data,omitempty"`
	UI        UIConfig        `yaml:"ui,omitempty"`
	Tuning    TuningConfig    `yaml:"tuning,omitempty"`
	Analytics AnalyticsConfig `yaml:"analytics,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UI: UIConfig{
			Unit:  "kg",
			Theme: "auto",
		},
	}
}

// TimelineConfig converts the tuning section to the engine's config type.
func (t TuningConfig) TimelineConfig() timeline.Config {
	cfg := timeline.Config{
		SettleDelay:         time.Duration(t.DebounceSettleMs) * time.Millisecond,
		RegressionTolerance: time.Duration(t.RegressionToleranceMs) * time.Millisecond,
		PaddingPct:          t.YPaddingPct,
		PaddingMinAbs:       t.YPaddingMinAbs,
		InitialSpanMonths:   t.InitialViewSpanMonths,
		ZoomScaleMin:        t.ZoomScaleMin,
		ZoomScaleMax:        t.ZoomScaleMax,
	}
	return cfg
}

// Options converts the analytics section to analytics.Options.
func (a AnalyticsConfig) Options() analytics.Options {
	return analytics.Options{
		SmoothingDays:       a.SmoothingDays,
		BandStdDevs:         a.BandStdDevs,
		EnergyWindowDays:    a.EnergyWindowDays,
		OutlierThreshold:    a.OutlierThreshold,
		PlateauMinDays:      a.PlateauMinDays,
		PlateauMaxKgPerWeek: a.PlateauMaxKgPerWeek,
	}
}

// ConfigDir returns the XDG config directory for gramline.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "gramline")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gramline")
}

// DataDir returns the XDG data directory for gramline.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "gramline")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "gramline")
}

// StateDir returns the XDG state directory for gramline.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "gramline")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "gramline")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Data.Path = expandHome(cfg.Data.Path)
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ApplyEnv overlays GL_* environment variables onto the config. Malformed
// values are ignored, keeping whatever the config already holds.
func (c *Config) ApplyEnv() {
	c.Data.Path = envString("GL_DATA", c.Data.Path)
	c.UI.Unit = envString("GL_UNIT", c.UI.Unit)

	c.Tuning.DebounceSettleMs = envInt("GL_DEBOUNCE_MS", c.Tuning.DebounceSettleMs)
	c.Tuning.RegressionToleranceMs = envInt("GL_REGRESSION_TOLERANCE_MS", c.Tuning.RegressionToleranceMs)
	c.Tuning.YPaddingPct = envFloat("GL_Y_PADDING_PCT", c.Tuning.YPaddingPct)
	c.Tuning.YPaddingMinAbs = envFloat("GL_Y_PADDING_MIN", c.Tuning.YPaddingMinAbs)
	c.Tuning.InitialViewSpanMonths = envInt("GL_VIEW_SPAN_MONTHS", c.Tuning.InitialViewSpanMonths)
	c.Tuning.ZoomScaleMin = envFloat("GL_ZOOM_MIN", c.Tuning.ZoomScaleMin)
	c.Tuning.ZoomScaleMax = envFloat("GL_ZOOM_MAX", c.Tuning.ZoomScaleMax)

	if v, ok := envBool("GL_WATCH"); ok {
		c.Data.Watch = &v
	}
}

// WatchEnabled reports whether live reload is on. Defaults to on.
func (c Config) WatchEnabled() bool {
	return c.Data.Watch == nil || *c.Data.Watch
}

func envString(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envFloat(name string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch raw {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
