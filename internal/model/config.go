package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the complete acmap configuration
type Config struct {
	API          APIConfig          `yaml:"api" mapstructure:"api"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Snapshot     SnapshotConfig     `yaml:"snapshot" mapstructure:"snapshot"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Map          MapConfig          `yaml:"map" mapstructure:"map"`
	Export       ExportConfig       `yaml:"export" mapstructure:"export"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// APIConfig configures the accidents API client
type APIConfig struct {
	BaseURL      string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitingConfig limits requests per API host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// SnapshotConfig configures the offline sqlite snapshot
type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	Mode            string        `yaml:"mode" mapstructure:"mode"` // gin mode: release, debug, test
	AllowOrigins    []string      `yaml:"allow_origins" mapstructure:"allow_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// MapConfig holds the Leaflet view settings
type MapConfig struct {
	Center             [2]float64    `yaml:"center" mapstructure:"center"`
	Zoom               int           `yaml:"zoom" mapstructure:"zoom"`
	MinZoom            int           `yaml:"min_zoom" mapstructure:"min_zoom"`
	MaxZoom            int           `yaml:"max_zoom" mapstructure:"max_zoom"`
	MaxBounds          [2][2]float64 `yaml:"max_bounds" mapstructure:"max_bounds"`
	MaxBoundsViscosity float64       `yaml:"max_bounds_viscosity" mapstructure:"max_bounds_viscosity"`
	TileURL            string        `yaml:"tile_url" mapstructure:"tile_url"`
	Attribution        string        `yaml:"attribution" mapstructure:"attribution"`
}

// ExportConfig configures batch GeoJSON export
type ExportConfig struct {
	Workers   int    `yaml:"workers" mapstructure:"workers"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json, console
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:      "http://localhost:8080/api",
			Timeout:      30 * time.Second,
			UserAgent:    "acmap/0.1 (+https://github.com/ppiankov/acmap)",
			MaxBodyBytes: 50_000_000,
			MaxRetries:   3,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultCacheDir(),
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Snapshot: SnapshotConfig{
			Enabled: false,
			Path:    "acmap.db",
		},
		Server: ServerConfig{
			Addr:            ":8090",
			Mode:            "release",
			AllowOrigins:    []string{"*"},
			ShutdownTimeout: 5 * time.Second,
		},
		Map: MapConfig{
			Center:             [2]float64{0, 0},
			Zoom:               3,
			MinZoom:            3,
			MaxZoom:            20,
			MaxBounds:          [2][2]float64{{-90, -210}, {90, 210}},
			MaxBoundsViscosity: 1.0,
			TileURL:            "https://basemap.nationalmap.gov/arcgis/rest/services/USGSImageryOnly/MapServer/tile/{z}/{y}/{x}",
			Attribution:        `Tiles courtesy of the <a href="https://usgs.gov/">U.S. Geological Survey</a>`,
		},
		Export: ExportConfig{
			Workers:   4,
			OutputDir: "./acmap-export",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "acmap")
	}
	return filepath.Join(os.TempDir(), "acmap-cache")
}
