package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"bdbm/internal/model"
	"bdbm/internal/recur"
)

const (
	DefaultWarnLevel   = 25
	DefaultListen      = "127.0.0.1:8080"
	DefaultTimezone    = "America/New_York"
	DefaultRefreshCron = "*/15 * * * *"
	DefaultBatteryCron = "@every 30m"
	DefaultHorizonDays = 7
	DefaultWorkers     = 4
	DefaultCacheDir    = "./var/ics-cache"

	// ConfigSourceID tags events defined in the config file.
	ConfigSourceID = "config"
)

// eventNamespace seeds deterministic UIDs for config events without an id.
var eventNamespace = uuid.MustParse("6f1c3a52-8d0b-4c1e-9a57-2f4e8b1d0c93")

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	URL  string `yaml:"url" json:"url"`
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// EngineConfig tunes recurrence expansion.
type EngineConfig struct {
	// MaxIterations bounds the "Nth weekday of month" stepping loop.
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`
	// Workers is the number of events expanded in parallel.
	Workers int `yaml:"workers" json:"workers"`
}

// EventConfig is a recurring event declared directly in the config file.
type EventConfig struct {
	ID          string `yaml:"id,omitempty" json:"id,omitempty"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Location    string `yaml:"location,omitempty" json:"location,omitempty"`

	Start time.Time `yaml:"start" json:"start"`
	End   time.Time `yaml:"end" json:"end"`

	// Pattern is one of once, daily, weekly, biweekly, monthly, monthly_dow,
	// yearly.
	Pattern         string      `yaml:"pattern" json:"pattern"`
	Interval        int         `yaml:"interval,omitempty" json:"interval,omitempty"`
	Until           *time.Time  `yaml:"until,omitempty" json:"until,omitempty"`
	Count           int         `yaml:"count,omitempty" json:"count,omitempty"`
	SkipWeekendDays bool        `yaml:"skip_weekend_days,omitempty" json:"skip_weekend_days,omitempty"`
	ExDates         []time.Time `yaml:"exdates,omitempty" json:"exdates,omitempty"`
}

// Rule converts the declared cadence into a recur.Rule.
func (e EventConfig) Rule() recur.Rule {
	return recur.Rule{
		Pattern:         recur.Pattern(strings.ToLower(strings.TrimSpace(e.Pattern))),
		Interval:        e.Interval,
		Until:           e.Until,
		Count:           e.Count,
		SkipWeekendDays: e.SkipWeekendDays,
	}
}

// UID returns the configured id, or a stable UUID derived from title and
// start when none is set.
func (e EventConfig) UID() string {
	if e.ID != "" {
		return e.ID
	}
	name := e.Title + "|" + e.Start.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(eventNamespace, []byte(name)).String()
}

// Event converts the entry into the shared event model.
func (e EventConfig) Event() model.Event {
	return model.Event{
		SourceID:    ConfigSourceID,
		UID:         e.UID(),
		Summary:     e.Title,
		Description: e.Description,
		Location:    e.Location,
		Start:       e.Start,
		End:         e.End,
		Rule:        e.Rule(),
		ExDates:     e.ExDates,
	}
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used for display (e.g. "America/New_York").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WarnLevel raises a notification when a device charge drops below it.
	WarnLevel int `yaml:"warn_level" json:"warn_level"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron schedules agenda refreshes; BatteryCron schedules battery
	// checks. Both accept robfig/cron specs including "@every 30m".
	RefreshCron string `yaml:"refresh" json:"refresh"`
	BatteryCron string `yaml:"battery_check" json:"battery_check"`

	// HorizonDays / BackfillDays define the default agenda window around now.
	HorizonDays  int `yaml:"horizon_days" json:"horizon_days"`
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	// CacheDir stores fetched ICS bodies and their HTTP validators.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Engine EngineConfig `yaml:"engine" json:"engine"`

	Events []EventConfig `yaml:"events" json:"events"`
	ICS    []ICSConfig   `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       DefaultListen,
		Timezone:     DefaultTimezone,
		WarnLevel:    DefaultWarnLevel,
		LogLevel:     "info",
		RefreshCron:  DefaultRefreshCron,
		BatteryCron:  DefaultBatteryCron,
		HorizonDays:  DefaultHorizonDays,
		BackfillDays: 1,
		CacheDir:     DefaultCacheDir,
		Engine: EngineConfig{
			MaxIterations: recur.DefaultMaxIterations,
			Workers:       DefaultWorkers,
		},
		Events: []EventConfig{},
		ICS:    []ICSConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.WarnLevel <= 0 || c.WarnLevel > 100 {
		c.WarnLevel = DefaultWarnLevel
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = DefaultRefreshCron
	}
	if c.BatteryCron == "" {
		c.BatteryCron = DefaultBatteryCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = DefaultHorizonDays
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.Engine.MaxIterations <= 0 {
		c.Engine.MaxIterations = recur.DefaultMaxIterations
	}
	if c.Engine.Workers <= 0 {
		c.Engine.Workers = DefaultWorkers
	}
	if c.Events == nil {
		c.Events = []EventConfig{}
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// ApplyEnv overrides selected fields from BDBM_* environment variables.
func (c *Config) ApplyEnv() {
	v := viper.New()
	v.SetEnvPrefix("BDBM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range []string{"listen", "timezone", "warn_level", "log_level", "horizon_days"} {
		_ = v.BindEnv(key)
	}

	if v.IsSet("listen") {
		c.Listen = strings.TrimSpace(v.GetString("listen"))
	}
	if v.IsSet("timezone") {
		c.Timezone = strings.TrimSpace(v.GetString("timezone"))
	}
	if v.IsSet("warn_level") {
		c.WarnLevel = v.GetInt("warn_level")
	}
	if v.IsSet("log_level") {
		c.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("horizon_days") {
		c.HorizonDays = v.GetInt("horizon_days")
	}
}

// Location resolves Timezone, falling back to time.Local when it is empty or
// unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ModelEvents converts every configured event into the shared model.
func (c *Config) ModelEvents() []model.Event {
	out := make([]model.Event, 0, len(c.Events))
	for _, e := range c.Events {
		out = append(out, e.Event())
	}
	return out
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, write a default config with 0600 perms and
//     return it.
//   - Otherwise read YAML, apply BDBM_* environment overrides and normalize.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			cfg.ApplyEnv()
			cfg.Normalize()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".bdbm-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
