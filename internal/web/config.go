package web

import (
	"encoding/json"
	"os"

	"github.com/WenkChr/NGD-AGOL-Download/internal/web/handlers"
)

// Config represents the review server configuration
type Config struct {
	Server    ServerConfig   `json:"server"`
	OutputDir string         `json:"output_dir"`
	UIDField  string         `json:"uid_field"`
	Files     handlers.Files `json:"files"`
	Auth      AuthConfig     `json:"auth"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port int        `json:"port"`
	Host string     `json:"host"`
	CORS CORSConfig `json:"cors"`
}

// CORSConfig lists what browsers on other origins may request
type CORSConfig struct {
	AllowOrigins []string `json:"allow_origins"`
	AllowMethods []string `json:"allow_methods"`
	AllowHeaders []string `json:"allow_headers"`
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	Enabled bool   `json:"enabled"`
	APIKey  string `json:"api_key"`
}

// LoadConfig loads configuration from a JSON file over the defaults
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
			CORS: CORSConfig{
				AllowOrigins: []string{"*"},
				AllowMethods: []string{"GET", "OPTIONS"},
				AllowHeaders: []string{"Accept", "Content-Type", "X-API-Key"},
			},
		},
		OutputDir: "output",
		UIDField:  "NGD_UID",
		Files: handlers.Files{
			Report:     "report.json",
			Statements: "redline_attr_change.sql",
			Geometry:   "redline_geom_change.shp",
			Overlaps:   "redline_overlaps.shp",
		},
	}
}
