// Package config loads the small configuration object a process embedding
// this module's database may optionally pass in. Most callers embed the
// database as a library and construct txdb.Config directly; pkg/config
// exists for the standalone case — a daemon that wants the teacher's
// layered precedence model (CLI flags > environment variables > config
// file > defaults) instead of wiring paths by hand.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vladg14/libbitcoin-database/internal/bytesize"
)

// Config is the top-level configuration for a standalone process embedding
// this module. Only the ambient concerns (logging, shutdown, metrics) and
// the domain paths the database itself needs are represented here; the
// teacher's NFS/SMB/control-plane-specific sections (control plane API,
// admin bootstrap, lock manager, Kerberos) have no analogue in this
// module's domain and are not carried — see DESIGN.md.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority) — applied by the caller after Load
//  2. Environment variables (TXDB_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ShutdownTimeout is loaded, defaulted and validated with the rest of
	// the config. Nothing in this module reads it: TxDBConfig does not
	// carry it and txdb's Close takes no timeout.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Database locates the backing heap file and hash-directory, and
	// sizes the output cache.
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Metrics holds the Prometheus metrics settings (see MetricsConfig).
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// DatabaseConfig locates the on-disk heap file and hash directory this
// module owns, and sizes the optional output cache in front of them.
type DatabaseConfig struct {
	// HeapPath is the path to the memory-mapped transaction heap file.
	HeapPath string `mapstructure:"heap_path" validate:"required" yaml:"heap_path"`

	// IndexPath is the directory for the embedded hash-to-link index.
	IndexPath string `mapstructure:"index_path" validate:"required" yaml:"index_path"`

	// CacheCapacity is the number of entries the output cache holds.
	// Zero disables the cache.
	CacheCapacity int `mapstructure:"cache_capacity" validate:"gte=0" yaml:"cache_capacity"`

	// CacheSize is an alternate, human-readable cap expressed as a byte
	// budget rather than an entry count, honored by callers that prefer
	// to size the cache off available memory instead of a fixed count.
	// Supports formats like "64Mi", "1Gi".
	CacheSize bytesize.ByteSize `mapstructure:"cache_size" yaml:"cache_size,omitempty"`

	// GrowthNumerator and GrowthDenominator override the heap's
	// reservation growth factor (default 150/100, i.e. 1.5x). Both zero
	// means "use the default".
	GrowthNumerator   uint64 `mapstructure:"growth_numerator" yaml:"growth_numerator,omitempty"`
	GrowthDenominator uint64 `mapstructure:"growth_denominator" yaml:"growth_denominator,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig holds Prometheus metrics settings. Nothing in this module
// reads Enabled or Port: no metrics HTTP server is started here, and
// collection is switched on only by installing metrics sinks in code.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (TXDB_*)
//  2. Configuration file
//  3. Default values
//
// When no configuration file is found, Load returns GetDefaultConfig()
// without reading any environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path in YAML form.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("TXDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "txdb")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "txdb")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

var validate = validator.New()

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}
