package spaceeye

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appDirName = "spaceeye"

type Config struct {
	Catalog struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"catalog"`

	Storage struct {
		Dir string `yaml:"dir"`
	} `yaml:"storage"`

	Images struct {
		MaxDownload  string `yaml:"maxDownload"`
		MaxDimension uint64 `yaml:"maxDimension"`
	} `yaml:"images"`

	Display struct {
		ID *uint64 `yaml:"id"`
	} `yaml:"display"`

	Render struct {
		Scaling       ScalingMode `yaml:"scaling"`
		Background    *RGBA       `yaml:"background"`
		AllowClipping *bool       `yaml:"allowClipping"`
	} `yaml:"render"`

	Watch struct {
		Every     string `yaml:"every"`
		Satellite uint64 `yaml:"satellite"`
		View      uint64 `yaml:"view"`
	} `yaml:"watch"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	// compiled
	timeout     time.Duration
	maxDownload int64
	watchEvery  time.Duration
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a YAML config file. An empty path yields the defaults.
// SPACEEYE_* environment variables, optionally from a .env file, override
// the file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.compile(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SPACEEYE_CATALOG_URL"); v != "" {
		cfg.Catalog.URL = v
	}
	if v := os.Getenv("SPACEEYE_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("SPACEEYE_DISPLAY_ID"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SPACEEYE_DISPLAY_ID: %w", err)
		}
		cfg.Display.ID = &id
	}
	if v := os.Getenv("SPACEEYE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SPACEEYE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

// applyDefaults fills every unset field, including the compiled ones.
func (cfg *Config) applyDefaults() {
	if cfg.Catalog.URL == "" {
		cfg.Catalog.URL = DefaultCatalogURL
	}
	cfg.Catalog.URL = strings.TrimSpace(cfg.Catalog.URL)
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = defaultDataDir()
	}
	if cfg.Display.ID == nil {
		id := uint64(1)
		cfg.Display.ID = &id
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	defaults := DefaultRenderOptions()
	if cfg.Render.Background == nil {
		c := defaults.BackgroundColor
		cfg.Render.Background = &c
	}
	if cfg.Render.AllowClipping == nil {
		v := defaults.AllowClipping
		cfg.Render.AllowClipping = &v
	}

	cfg.timeout = 30 * time.Second
	cfg.maxDownload = 64 << 20
	cfg.watchEvery = 10 * time.Minute
}

func (cfg *Config) compile() error {
	cfg.applyDefaults()

	if cfg.Catalog.Timeout != "" {
		d, err := time.ParseDuration(cfg.Catalog.Timeout)
		if err != nil {
			return fmt.Errorf("catalog.timeout: %w", err)
		}
		cfg.timeout = d
	}

	if cfg.Images.MaxDownload != "" {
		n, err := parseByteSize(cfg.Images.MaxDownload)
		if err != nil {
			return fmt.Errorf("images.maxDownload: %w", err)
		}
		cfg.maxDownload = n
	}

	if cfg.Watch.Every != "" {
		d, err := time.ParseDuration(cfg.Watch.Every)
		if err != nil {
			return fmt.Errorf("watch.every: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("watch.every: must be positive, got %s", d)
		}
		cfg.watchEvery = d
	}
	return nil
}

// DisplayID is the configured display. An explicit 0 is kept and will not
// match any display.
func (cfg Config) DisplayID() uint64 { return *cfg.Display.ID }

func (cfg Config) CatalogTimeout() time.Duration { return cfg.timeout }
func (cfg Config) MaxDownloadBytes() int64       { return cfg.maxDownload }
func (cfg Config) WatchEvery() time.Duration     { return cfg.watchEvery }

// RenderOptions returns the configured options for applying a local file.
// Without render.scaling the image is fitted proportionally.
func (cfg Config) RenderOptions() RenderOptions {
	opts := cfg.renderOptions()
	if opts.Scaling == 0 {
		opts.Scaling = ScaleProportionalFit
	}
	return opts
}

// UpdateRequest returns the configured catalog update. Without
// render.scaling the selected image source's default scaling is used.
func (cfg Config) UpdateRequest() UpdateRequest {
	return UpdateRequest{
		DisplayID:    cfg.DisplayID(),
		SatelliteID:  cfg.Watch.Satellite,
		ViewID:       cfg.Watch.View,
		MaxDimension: cfg.Images.MaxDimension,
		Render:       cfg.renderOptions(),
	}
}

func (cfg Config) renderOptions() RenderOptions {
	return RenderOptions{
		Scaling:         cfg.Render.Scaling,
		BackgroundColor: *cfg.Render.Background,
		AllowClipping:   *cfg.Render.AllowClipping,
	}
}

// DefaultConfigPath is config.yaml inside the application data directory.
func DefaultConfigPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "." + appDirName
	}
	return filepath.Join(dir, appDirName)
}
