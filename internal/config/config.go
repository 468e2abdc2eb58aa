package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior. Unlike a long-running daemon, a missing config file
// is a fatal error here; first-run creation is handled by `dutycal init`.

// ScheduleConfig identifies the target month and the table source.
type ScheduleConfig struct {
	// Year and Month select the calendar month duty days are resolved into.
	Year  int `yaml:"year" json:"year"`
	Month int `yaml:"month" json:"month"`

	// Source is either an HTTP(S) URL serving CSV (e.g. a published
	// spreadsheet export) or a local CSV file path.
	Source string `yaml:"source" json:"source"`
}

// FormatConfig describes the layout of the source table.
type FormatConfig struct {
	// Orientation controls how grid positions map to days:
	//   - "columns" (default): each column is a day-of-month
	//   - "rows": each row is a day-of-month, each column a location
	Orientation string `yaml:"orientation" json:"orientation"`
}

// ClockRange holds a duty shift's wall-clock boundaries as "HH:MM" strings.
// EndTime refers to the calendar day after the duty date.
type ClockRange struct {
	StartTime string `yaml:"start_time" json:"start_time"`
	EndTime   string `yaml:"end_time" json:"end_time"`
}

// DutyTimesConfig holds the shift times per day classification.
type DutyTimesConfig struct {
	Weekday ClockRange `yaml:"weekday" json:"weekday"`
	Weekend ClockRange `yaml:"weekend" json:"weekend"`
}

// LocationsConfig resolves a table column to a ward/location label.
type LocationsConfig struct {
	// Default is used for columns with no explicit override.
	Default string `yaml:"default" json:"default"`
	// ByColumn maps a zero-based column index to a location label.
	ByColumn map[int]string `yaml:"by_column" json:"by_column"`
}

// DutyTypesConfig holds the localized labels substituted for {duty_type}.
type DutyTypesConfig struct {
	Weekday string `yaml:"weekday" json:"weekday"`
	Weekend string `yaml:"weekend" json:"weekend"`
}

// CalendarConfig holds calendar-level metadata and the event templates.
//
// Templates use {name} placeholders. Recognized names: person (uppercased),
// location, duty_type, date, start_time, end_time. The title template only
// sees person and location.
type CalendarConfig struct {
	Timezone                 string `yaml:"timezone" json:"timezone"`
	TitleTemplate            string `yaml:"title_template" json:"title_template"`
	EventTitleTemplate       string `yaml:"event_title_template" json:"event_title_template"`
	EventDescriptionTemplate string `yaml:"event_description_template" json:"event_description_template"`
	AlarmMessageTemplate     string `yaml:"alarm_message_template" json:"alarm_message_template"`
}

// OutputConfig controls where artifacts are written and how they are named.
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
	// FilenamePattern recognizes {char} (occupant code) and {location}
	// (whitespace-stripped location label).
	FilenamePattern string `yaml:"filename_pattern" json:"filename_pattern"`
}

// Config is the top-level application configuration.
type Config struct {
	Schedule  ScheduleConfig  `yaml:"schedule" json:"schedule"`
	Format    FormatConfig    `yaml:"format" json:"format"`
	DutyTimes DutyTimesConfig `yaml:"duty_times" json:"duty_times"`
	Locations LocationsConfig `yaml:"locations" json:"locations"`
	DutyTypes DutyTypesConfig `yaml:"duty_types" json:"duty_types"`
	Calendar  CalendarConfig  `yaml:"calendar" json:"calendar"`
	Output    OutputConfig    `yaml:"output" json:"output"`

	// Refresh is a cron-style schedule string (e.g. "0 6 1 * *") used by
	// watch mode to re-run generation periodically.
	Refresh string `yaml:"refresh" json:"refresh"`
}

// DefaultConfig returns an in-memory default configuration. Schedule.Source
// is intentionally left empty: the result is a template for `dutycal init`,
// not a runnable config.
func DefaultConfig() *Config {
	now := time.Now()
	return &Config{
		Schedule: ScheduleConfig{
			Year:  now.Year(),
			Month: int(now.Month()),
		},
		Format: FormatConfig{Orientation: "columns"},
		DutyTimes: DutyTimesConfig{
			Weekday: ClockRange{StartTime: "17:00", EndTime: "08:00"},
			Weekend: ClockRange{StartTime: "08:00", EndTime: "08:00"},
		},
		Locations: LocationsConfig{
			Default:  "一般病房",
			ByColumn: map[int]string{},
		},
		DutyTypes: DutyTypesConfig{
			Weekday: "平日值班",
			Weekend: "假日值班",
		},
		Calendar: CalendarConfig{
			Timezone:                 "Asia/Taipei",
			TitleTemplate:            "{person} 值班表 ({location})",
			EventTitleTemplate:       "{person} {duty_type} - {location}",
			EventDescriptionTemplate: "{person} 於 {date} {start_time} 至隔日 {end_time} 在 {location} {duty_type}",
			AlarmMessageTemplate:     "{person} {duty_type}即將開始 ({location})",
		},
		Output: OutputConfig{
			Directory:       "output",
			FilenamePattern: "duty_{char}_{location}.ics",
		},
		Refresh: "0 6 1 * *",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly. Values that cannot be
// defaulted (year, month, source) are left to Validate.
func (c *Config) Normalize() {
	def := DefaultConfig()

	switch c.Format.Orientation {
	case "columns", "rows":
		// ok
	case "":
		c.Format.Orientation = "columns"
	}

	if c.DutyTimes.Weekday.StartTime == "" {
		c.DutyTimes.Weekday.StartTime = def.DutyTimes.Weekday.StartTime
	}
	if c.DutyTimes.Weekday.EndTime == "" {
		c.DutyTimes.Weekday.EndTime = def.DutyTimes.Weekday.EndTime
	}
	if c.DutyTimes.Weekend.StartTime == "" {
		c.DutyTimes.Weekend.StartTime = def.DutyTimes.Weekend.StartTime
	}
	if c.DutyTimes.Weekend.EndTime == "" {
		c.DutyTimes.Weekend.EndTime = def.DutyTimes.Weekend.EndTime
	}

	if c.Locations.Default == "" {
		c.Locations.Default = def.Locations.Default
	}
	if c.Locations.ByColumn == nil {
		c.Locations.ByColumn = map[int]string{}
	}

	if c.DutyTypes.Weekday == "" {
		c.DutyTypes.Weekday = def.DutyTypes.Weekday
	}
	if c.DutyTypes.Weekend == "" {
		c.DutyTypes.Weekend = def.DutyTypes.Weekend
	}

	if c.Calendar.Timezone == "" {
		c.Calendar.Timezone = def.Calendar.Timezone
	}
	if c.Calendar.TitleTemplate == "" {
		c.Calendar.TitleTemplate = def.Calendar.TitleTemplate
	}
	if c.Calendar.EventTitleTemplate == "" {
		c.Calendar.EventTitleTemplate = def.Calendar.EventTitleTemplate
	}
	if c.Calendar.EventDescriptionTemplate == "" {
		c.Calendar.EventDescriptionTemplate = def.Calendar.EventDescriptionTemplate
	}
	if c.Calendar.AlarmMessageTemplate == "" {
		c.Calendar.AlarmMessageTemplate = def.Calendar.AlarmMessageTemplate
	}

	if c.Output.Directory == "" {
		c.Output.Directory = def.Output.Directory
	}
	if c.Output.FilenamePattern == "" {
		c.Output.FilenamePattern = def.Output.FilenamePattern
	}

	if c.Refresh == "" {
		c.Refresh = def.Refresh
	}
}

// Validate reports the first problem that would make a run impossible.
func (c *Config) Validate() error {
	if c.Schedule.Year < 1 || c.Schedule.Year > 9999 {
		return fmt.Errorf("schedule.year %d is out of range", c.Schedule.Year)
	}
	if c.Schedule.Month < 1 || c.Schedule.Month > 12 {
		return fmt.Errorf("schedule.month %d is out of range", c.Schedule.Month)
	}
	if c.Schedule.Source == "" {
		return errors.New("schedule.source is empty")
	}

	switch c.Format.Orientation {
	case "columns", "rows":
	default:
		return fmt.Errorf("format.orientation %q is not one of columns, rows", c.Format.Orientation)
	}

	for name, v := range map[string]string{
		"duty_times.weekday.start_time": c.DutyTimes.Weekday.StartTime,
		"duty_times.weekday.end_time":   c.DutyTimes.Weekday.EndTime,
		"duty_times.weekend.start_time": c.DutyTimes.Weekend.StartTime,
		"duty_times.weekend.end_time":   c.DutyTimes.Weekend.EndTime,
	} {
		if _, err := time.Parse("15:04", v); err != nil {
			return fmt.Errorf("%s %q is not a valid HH:MM time", name, v)
		}
	}

	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("calendar.timezone %q: %w", c.Calendar.Timezone, err)
	}

	return nil
}

// Load loads configuration from the given YAML path. A missing file is an
// error; without year/month/source there is nothing useful to do.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".dutycal-config-*.tmp")
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

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
