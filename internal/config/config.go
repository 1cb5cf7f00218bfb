package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/deploymenttheory/go-binmeta/internal/resolver"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the config reads,
// e.g. BINMETA_PLATFORM or BINMETA_SCAN_WORKERS
const EnvPrefix = "BINMETA"

// Config holds the application configuration
type Config struct {
	// Main settings
	Platform string `mapstructure:"platform"`

	// Logging settings
	LogLevel string `mapstructure:"log_level"`
	NoColor  bool   `mapstructure:"no_color"`
	LogFile  string `mapstructure:"log_file"`

	Scan ScanConfig `mapstructure:"scan"`
}

// ScanConfig holds the settings of the scan command
type ScanConfig struct {
	OutputFile      string   `mapstructure:"output"`
	MaxDepth        int      `mapstructure:"depth"` // 0 or less walks the whole tree
	IncludePatterns []string `mapstructure:"include"`
	ExcludePatterns []string `mapstructure:"exclude"`
	Workers         int      `mapstructure:"workers"`
}

// flagKeys maps config keys to the command line flags that override them
var flagKeys = map[string]string{
	"platform":     "platform",
	"no_color":     "no-color",
	"log_file":     "log-file",
	"scan.output":  "output",
	"scan.depth":   "depth",
	"scan.include": "include",
	"scan.exclude": "exclude",
	"scan.workers": "workers",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("platform", "darwin")
	v.SetDefault("log_level", "info")
	v.SetDefault("no_color", false)
	v.SetDefault("log_file", "")
	v.SetDefault("scan.output", "bundles.json")
	v.SetDefault("scan.depth", 4)
	v.SetDefault("scan.include", []string{})
	v.SetDefault("scan.exclude", []string{})
	v.SetDefault("scan.workers", 4)
}

// Load reads configuration from defaults, an optional YAML file, BINMETA_*
// environment variables and, when flags is non-nil, changed command line
// flags, in increasing order of precedence. An empty configPath looks for
// binmeta.yaml in the working directory and tolerates its absence.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("binmeta")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be corrected silently
func (c *Config) Validate() error {
	if _, err := resolver.ForPlatform(c.Platform); err != nil {
		return fmt.Errorf("invalid platform: %w", err)
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("invalid scan.workers %d: need at least one worker", c.Scan.Workers)
	}
	return nil
}
