package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/WenkChr/NGD-AGOL-Download/internal/engine"
	"github.com/WenkChr/NGD-AGOL-Download/internal/etl"
	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
)

// DBConfig holds the PostgreSQL connection settings
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the lib/pq connection string
func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Config is the typed run configuration
type Config struct {
	// sources
	RedlinePath       string
	AuthoritativePath string
	StreetPath        string
	UseDB             bool
	DB                DBConfig

	// tables and fields
	Table             string
	StreetTable       string
	UIDField          string
	GeomField         string
	EditDateField     string
	CreationDateField string
	Prefixes          []string

	// edit window
	From time.Time
	To   time.Time

	GeomRoundingFactor float64
	DateFormat         string
	DefaultNameSource  string
	StrictValues       bool
	ResetECStreetIDs   bool
	SkipFields         []string

	// outputs
	SQLPath      string
	GeometryPath string
	OverlapPath  string
	ReportPath   string
}

// Load reads the env files and builds the configuration
func Load() (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment
func FromEnv() (*Config, error) {
	defaults := engine.DefaultOptions()
	schema := etl.DefaultSchema()

	cfg := &Config{
		RedlinePath:       GetEnv("NGD_REDLINE_DATA", ""),
		AuthoritativePath: GetEnv("NGD_NGDAL_DATA", ""),
		StreetPath:        GetEnv("NGD_NGDSTREET_DATA", ""),
		UseDB:             GetEnvBool("NGD_USE_DB", false),
		DB: DBConfig{
			Host:     GetEnv("PGHOST", "localhost"),
			Port:     GetEnvInt("PGPORT", 5432),
			User:     GetEnv("PGUSER", "ngd"),
			Password: GetEnv("PGPASSWORD", ""),
			Name:     GetEnv("PGDATABASE", "ngd"),
			SSLMode:  GetEnv("PGSSLMODE", "disable"),
		},

		Table:             GetEnv("NGD_TBL_NAME", defaults.Table),
		StreetTable:       GetEnv("NGD_STREET_TBL_NAME", "NGD.NGD_STREET"),
		UIDField:          GetEnv("NGD_UID_FIELD", defaults.UIDField),
		GeomField:         GetEnv("NGD_GEOM_FIELD", "SHAPE"),
		EditDateField:     GetEnv("NGD_REDLINE_EDIT_DATE_FIELD", schema.EditDateField),
		CreationDateField: GetEnv("NGD_REDLINE_CREATE_DATE_FIELD", schema.CreationDateField),
		Prefixes:          GetEnvList("NGD_FIELD_PREFIXES"),

		GeomRoundingFactor: GetEnvFloat("NGD_GEOM_ROUNDING_FACTOR", defaults.GeomRoundingFactor),
		DateFormat:         GetEnv("NGD_DATE_FORMAT_STRING", defaults.DateFormat),
		DefaultNameSource:  GetEnv("NGD_DEFAULT_NAME_SRC", defaults.DefaultNameSource),
		StrictValues:       GetEnvBool("NGD_STRICT_VALUES", false),
		ResetECStreetIDs:   GetEnvBool("NGD_RESET_EC_STR_ID", defaults.ResetECStreetIDs),
		SkipFields:         GetEnvList("NGD_SKIP_FIELDS"),

		SQLPath:      GetEnv("NGD_ATTR_SQL_PATH", "output/redline_attr_change.sql"),
		GeometryPath: GetEnv("NGD_NEW_GEOM_PATH", "output/redline_geom_change.shp"),
		OverlapPath:  GetEnv("NGD_OVERLAP_PATH", "output/redline_overlaps.shp"),
		ReportPath:   GetEnv("NGD_REPORT_PATH", "output/report.json"),
	}

	var err error
	if cfg.From, err = ParseWindowTime(GetEnv("FROM_DATE_TIME", "")); err != nil {
		return nil, fmt.Errorf("invalid FROM_DATE_TIME: %w", err)
	}
	if cfg.To, err = ParseWindowTime(GetEnv("TO_DATE_TIME", "")); err != nil {
		return nil, fmt.Errorf("invalid TO_DATE_TIME: %w", err)
	}
	return cfg, nil
}

var windowLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseWindowTime parses a window bound; blank means unbounded
func ParseWindowTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range windowLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// Cutoff is the date part of the window end, today when the window is open
func (c *Config) Cutoff() time.Time {
	to := c.To
	if to.IsZero() {
		to = time.Now().UTC()
	}
	return time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
}

// Validate rejects configurations a run cannot start with
func (c *Config) Validate() error {
	var errs []error
	if c.RedlinePath == "" {
		errs = append(errs, errors.New("no redline source (NGD_REDLINE_DATA)"))
	}
	if c.GeomRoundingFactor <= 0 {
		errs = append(errs, fmt.Errorf("geometry rounding factor must be positive, got %v", c.GeomRoundingFactor))
	}
	if !c.From.IsZero() && !c.To.IsZero() && c.To.Before(c.From) {
		errs = append(errs, fmt.Errorf("window end %s is before start %s",
			c.To.Format(time.RFC3339), c.From.Format(time.RFC3339)))
	}
	if c.UIDField == "" || c.Table == "" {
		errs = append(errs, errors.New("target table and uid field are required"))
	}
	if err := model.ValidateDateColumns(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Schema is the loader schema for the redline and authoritative tables
func (c *Config) Schema() etl.Schema {
	return etl.Schema{
		UIDField:          c.UIDField,
		EditDateField:     c.EditDateField,
		CreationDateField: c.CreationDateField,
		Prefixes:          c.Prefixes,
	}
}

// EngineOptions are the change detection settings
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		Table:              c.Table,
		UIDField:           c.UIDField,
		Cutoff:             c.Cutoff(),
		DateFormat:         c.DateFormat,
		GeomRoundingFactor: c.GeomRoundingFactor,
		DefaultNameSource:  c.DefaultNameSource,
		ResetECStreetIDs:   c.ResetECStreetIDs,
		SkipFields:         c.SkipFields,
	}
}
