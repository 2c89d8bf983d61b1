package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	QR      QRConfig      `mapstructure:"qr"`
	Logging LoggingConfig `mapstructure:"logging"`
	Audit   AuditConfig   `mapstructure:"audit"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type StorageConfig struct {
	OutputDir    string `mapstructure:"output_dir"`
	HistoryFile  string `mapstructure:"history_file"`
	PublicPrefix string `mapstructure:"public_prefix"`
}

// QRConfig holds the encoding parameters applied to every generated code.
type QRConfig struct {
	Version         int    `mapstructure:"version"`          // 0 = automatic, 1..40 preferred
	BoxSize         int    `mapstructure:"box_size"`         // pixels per module
	Border          int    `mapstructure:"border"`           // quiet zone, in modules
	ErrorCorrection string `mapstructure:"error_correction"` // L, M, Q, H
	Style           string `mapstructure:"style"`            // square, rounded
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

var (
	errorCorrectionLevels = []string{"L", "M", "Q", "H"}
	moduleStyles          = []string{"square", "rounded"}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("storage.output_dir", "static/qrcodes")
	v.SetDefault("storage.history_file", "data/history.json")
	v.SetDefault("storage.public_prefix", "/static/qrcodes")

	v.SetDefault("qr.version", 3)
	v.SetDefault("qr.box_size", 10)
	v.SetDefault("qr.border", 4)
	v.SetDefault("qr.error_correction", "H")
	v.SetDefault("qr.style", "rounded")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "logs/qrgen.log")
	v.SetDefault("logging.max_size_mb", 25)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 7)

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.db_path", "data/audit.db")
}

// Load reads the config file at path (optional when empty) and applies
// QRGEN_* environment overrides, e.g. QRGEN_QR_ERROR_CORRECTION=M.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("qrgen")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	config.QR.ErrorCorrection = strings.ToUpper(strings.TrimSpace(config.QR.ErrorCorrection))
	config.QR.Style = strings.ToLower(strings.TrimSpace(config.QR.Style))
	config.Storage.PublicPrefix = "/" + strings.Trim(config.Storage.PublicPrefix, "/")

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir is required")
	}
	if c.Storage.HistoryFile == "" {
		return fmt.Errorf("storage.history_file is required")
	}
	if within(c.Storage.OutputDir, c.Storage.HistoryFile) {
		return fmt.Errorf("storage.history_file must be outside storage.output_dir, purge empties that directory")
	}
	if c.Storage.PublicPrefix == "/" {
		return fmt.Errorf("storage.public_prefix must not be the site root")
	}
	if c.QR.Version < 0 || c.QR.Version > 40 {
		return fmt.Errorf("qr.version must be between 0 and 40, got %d", c.QR.Version)
	}
	if c.QR.BoxSize < 1 || c.QR.BoxSize > 255 {
		return fmt.Errorf("qr.box_size must be between 1 and 255, got %d", c.QR.BoxSize)
	}
	if c.QR.Border < 0 {
		return fmt.Errorf("qr.border must not be negative, got %d", c.QR.Border)
	}
	if !contains(errorCorrectionLevels, c.QR.ErrorCorrection) {
		return fmt.Errorf("qr.error_correction must be one of %s, got %q",
			strings.Join(errorCorrectionLevels, ", "), c.QR.ErrorCorrection)
	}
	if !contains(moduleStyles, c.QR.Style) {
		return fmt.Errorf("qr.style must be one of %s, got %q",
			strings.Join(moduleStyles, ", "), c.QR.Style)
	}
	if c.Audit.Enabled && c.Audit.DBPath == "" {
		return fmt.Errorf("audit.db_path is required when audit is enabled")
	}
	if c.Audit.Enabled && c.Audit.DBPath != ":memory:" && within(c.Storage.OutputDir, c.Audit.DBPath) {
		return fmt.Errorf("audit.db_path must be outside storage.output_dir, purge empties that directory")
	}
	return nil
}

// within reports whether path lies inside dir once both are made absolute.
func within(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
