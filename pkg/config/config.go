// Package config loads restitch configuration from a YAML file, environment
// variables, and defaults, in that order of precedence.
//
// The API key for the restoration model is never stored in the config file;
// it is read from the environment, with .env files honored for local
// development.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/restitch/restitch/pkg/errors"
)

const (
	// AppName is the application name, used for config discovery and the
	// environment variable prefix.
	AppName = "restitch"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "restitch"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "yaml"
)

// Config is the full application configuration.
type Config struct {
	// SearchRoots are the directories probed when resolving module
	// identifiers, in priority order.
	SearchRoots []string `mapstructure:"search_roots"`
	// Extensions are the file extensions probed per root, in priority
	// order. Compound extensions like ".lua.unluac" are allowed.
	Extensions []string `mapstructure:"extensions"`
	// OutputDir receives restored files, mirroring the source layout.
	OutputDir string `mapstructure:"output_dir"`

	Discovery DiscoveryConfig `mapstructure:"discovery"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// DiscoveryConfig bounds the dependency discovery run.
type DiscoveryConfig struct {
	Workers     int           `mapstructure:"workers"`
	MaxDepth    int           `mapstructure:"max_depth"`
	MaxNodes    int           `mapstructure:"max_nodes"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// LLMConfig configures the restoration model.
type LLMConfig struct {
	Model   string `mapstructure:"model"`
	Retries int    `mapstructure:"retries"`

	// APIKey is populated from the environment only.
	APIKey string `mapstructure:"-"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	// Backend is one of "file", "redis", or "none".
	Backend       string        `mapstructure:"backend"`
	Dir           string        `mapstructure:"dir"`
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Extensions: []string{".lua.unluac", ".lua"},
		OutputDir:  "restored",
		Discovery: DiscoveryConfig{
			Workers:     8,
			MaxDepth:    10,
			MaxNodes:    5000,
			ReadTimeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Model:   "gemini-2.0-flash",
			Retries: 3,
		},
		Cache: CacheConfig{
			Backend: "file",
			Dir:     defaultCacheDir(),
			TTL:     0,
		},
	}
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ".restitch-cache"
	}
	return filepath.Join(base, AppName)
}

// Load reads configuration with the standard precedence: explicit file path,
// then ./restitch.yaml, then environment variables (RESTITCH_*), then
// defaults. A missing config file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over its contents.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config file %s", path)
		}
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config file")
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}

	cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("search_roots", d.SearchRoots)
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("discovery.workers", d.Discovery.Workers)
	v.SetDefault("discovery.max_depth", d.Discovery.MaxDepth)
	v.SetDefault("discovery.max_nodes", d.Discovery.MaxNodes)
	v.SetDefault("discovery.read_timeout", d.Discovery.ReadTimeout)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.retries", d.LLM.Retries)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.ttl", d.Cache.TTL)
}

// Validate checks the configuration for values the pipeline cannot work
// with. Called after flag overrides are applied.
func (c *Config) Validate() error {
	if len(c.SearchRoots) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "at least one search root is required")
	}
	for _, root := range c.SearchRoots {
		if strings.TrimSpace(root) == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "search roots must not be empty")
		}
	}
	if len(c.Extensions) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "at least one extension is required")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return errors.New(errors.ErrCodeInvalidConfig, "extension %q must start with a dot", ext)
		}
	}
	if c.Discovery.Workers < 0 || c.Discovery.MaxDepth < 0 || c.Discovery.MaxNodes < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "discovery bounds must not be negative")
	}
	switch c.Cache.Backend {
	case "file", "redis", "none":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "redis cache backend requires cache.redis_addr")
	}
	return nil
}
