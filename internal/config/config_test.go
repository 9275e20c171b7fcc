package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"NGD_TBL_NAME", "NGD_UID_FIELD", "NGD_GEOM_ROUNDING_FACTOR", "FROM_DATE_TIME", "TO_DATE_TIME", "NGD_SKIP_FIELDS"} {
		t.Setenv(key, "")
	}
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Table != "NGD.NGD_AL" || cfg.UIDField != "NGD_UID" {
		t.Errorf("table = %s uid = %s", cfg.Table, cfg.UIDField)
	}
	if cfg.GeomRoundingFactor != 0.1 || cfg.DateFormat != "YYYY-MM-DD" || cfg.DefaultNameSource != "NGD" {
		t.Errorf("engine defaults = %v %s %s", cfg.GeomRoundingFactor, cfg.DateFormat, cfg.DefaultNameSource)
	}
	if !cfg.ResetECStreetIDs || cfg.StrictValues {
		t.Errorf("reset = %v strict = %v", cfg.ResetECStreetIDs, cfg.StrictValues)
	}
	if !cfg.From.IsZero() || !cfg.To.IsZero() {
		t.Errorf("window = %v..%v, want open", cfg.From, cfg.To)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("NGD_REDLINE_DATA", "redline.geojson")
	t.Setenv("NGD_GEOM_ROUNDING_FACTOR", "0.5")
	t.Setenv("FROM_DATE_TIME", "2021-05-01")
	t.Setenv("TO_DATE_TIME", "2021-06-01 13:45:00")
	t.Setenv("NGD_SKIP_FIELDS", "STR_CLS_CDE, STR_RNK_CDE,")
	t.Setenv("NGD_FIELD_PREFIXES", "WC2021NGD_AL_20200313_")
	t.Setenv("NGD_RESET_EC_STR_ID", "no")
	t.Setenv("PGPORT", "15432")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.GeomRoundingFactor != 0.5 || cfg.ResetECStreetIDs {
		t.Errorf("factor = %v reset = %v", cfg.GeomRoundingFactor, cfg.ResetECStreetIDs)
	}
	if len(cfg.SkipFields) != 2 || cfg.SkipFields[1] != "STR_RNK_CDE" {
		t.Errorf("skip fields = %v", cfg.SkipFields)
	}
	if cfg.DB.Port != 15432 {
		t.Errorf("port = %d", cfg.DB.Port)
	}
	want := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	if !cfg.Cutoff().Equal(want) {
		t.Errorf("Cutoff() = %v, want %v", cfg.Cutoff(), want)
	}
	opts := cfg.EngineOptions()
	if !opts.Cutoff.Equal(want) || opts.GeomRoundingFactor != 0.5 {
		t.Errorf("engine options = %+v", opts)
	}
	if s := cfg.Schema(); len(s.Prefixes) != 1 || s.UIDField != "NGD_UID" {
		t.Errorf("schema = %+v", s)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestFromEnvBadDate(t *testing.T) {
	t.Setenv("FROM_DATE_TIME", "last tuesday")
	if _, err := FromEnv(); err == nil {
		t.Error("expected error for unparseable window start")
	}
}

func TestValidate(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2021, 5, d, 0, 0, 0, 0, time.UTC) }
	valid := func() *Config {
		return &Config{
			RedlinePath: "r.geojson", Table: "NGD.NGD_AL", UIDField: "NGD_UID",
			GeomRoundingFactor: 0.1, From: day(1), To: day(20),
		}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"open window", func(c *Config) { c.From, c.To = time.Time{}, time.Time{} }, false},
		{"no redline", func(c *Config) { c.RedlinePath = "" }, true},
		{"zero factor", func(c *Config) { c.GeomRoundingFactor = 0 }, true},
		{"negative factor", func(c *Config) { c.GeomRoundingFactor = -1 }, true},
		{"reversed window", func(c *Config) { c.From, c.To = day(20), day(1) }, true},
		{"no uid field", func(c *Config) { c.UIDField = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "environments.env"), []byte("NGD_TEST_FIRST=env\nNGD_TEST_SHARED=environments\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("NGD_TEST_SHARED=dotenv\nNGD_TEST_SECOND=dot\n"), 0644); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	for _, key := range []string{"NGD_TEST_FIRST", "NGD_TEST_SHARED", "NGD_TEST_SECOND"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	if err := LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	tests := map[string]string{
		"NGD_TEST_FIRST":  "env",
		"NGD_TEST_SHARED": "environments",
		"NGD_TEST_SECOND": "dot",
	}
	for key, want := range tests {
		if got := os.Getenv(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestParseWindowTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"", time.Time{}},
		{"2021-05-01", time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"2021-05-01 08:30:00", time.Date(2021, 5, 1, 8, 30, 0, 0, time.UTC)},
		{"2021-05-01T08:30:00Z", time.Date(2021, 5, 1, 8, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseWindowTime(tt.in)
		if err != nil {
			t.Errorf("ParseWindowTime(%q) error = %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseWindowTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
