package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Taxonomy   TaxonomyConfig
	Prefilter  PrefilterConfig
	Identity   IdentityConfig
	Generation GenerationConfig
	Storage    StorageConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TaxonomyConfig points at the category vocabulary, one label per line
type TaxonomyConfig struct {
	Path string `mapstructure:"path"`
}

// PrefilterConfig holds category ranking configuration
type PrefilterConfig struct {
	TopK      int `mapstructure:"top_k"`
	CacheSize int `mapstructure:"cache_size"` // distinct vocabularies kept indexed
}

// IdentityConfig holds identity resolution thresholds and weights. The float
// fields are read by hand so an unparsable value falls back to its default.
type IdentityConfig struct {
	MatchThreshold          float64 `mapstructure:"-"`
	TitleBrandMinSimilarity float64 `mapstructure:"-"`
	UPCWeight               float64 `mapstructure:"-"`
	TitleBrandWeight        float64 `mapstructure:"-"`
	Workers                 int     `mapstructure:"workers"`
}

// GenerationConfig holds structured-generation service configuration
type GenerationConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	Debug             bool          `mapstructure:"debug"`
}

// StorageConfig holds product record storage configuration
type StorageConfig struct {
	ProductsDir string `mapstructure:"products_dir"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 disables
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// identity defaults, shared by setDefaults and the fallback path
const (
	defaultMatchThreshold          = 0.72
	defaultTitleBrandMinSimilarity = 0.62
	defaultUPCWeight               = 0.75
	defaultTitleBrandWeight        = 0.25
)

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/shelfsense/")

	// Environment variable settings: identity.match_threshold is read from
	// SHELFSENSE_IDENTITY_MATCH_THRESHOLD
	v.SetEnvPrefix("SHELFSENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	loadIdentityWeights(v, &config.Identity)

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Taxonomy and ranking defaults
	v.SetDefault("taxonomy.path", "categories.txt")
	v.SetDefault("prefilter.top_k", 20)
	v.SetDefault("prefilter.cache_size", 4)

	// Identity defaults
	v.SetDefault("identity.match_threshold", defaultMatchThreshold)
	v.SetDefault("identity.title_brand_min_similarity", defaultTitleBrandMinSimilarity)
	v.SetDefault("identity.upc_weight", defaultUPCWeight)
	v.SetDefault("identity.title_brand_weight", defaultTitleBrandWeight)
	v.SetDefault("identity.workers", 0)

	// Generation defaults
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("generation.model", "google/gemini-2.0-flash-lite-001")
	v.SetDefault("generation.timeout", "60s")
	v.SetDefault("generation.requests_per_second", 2.0)
	v.SetDefault("generation.max_attempts", 3)
	v.SetDefault("generation.debug", false)

	// Storage defaults
	v.SetDefault("storage.products_dir", "data/products")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)

	// Log defaults
	v.SetDefault("log.level", "info")
}

// loadIdentityWeights reads the identity floats, keeping the default for
// any value that does not parse as a finite number.
func loadIdentityWeights(v *viper.Viper, identity *IdentityConfig) {
	identity.MatchThreshold = floatOrDefault(v.Get("identity.match_threshold"), defaultMatchThreshold)
	identity.TitleBrandMinSimilarity = floatOrDefault(v.Get("identity.title_brand_min_similarity"), defaultTitleBrandMinSimilarity)
	identity.UPCWeight = floatOrDefault(v.Get("identity.upc_weight"), defaultUPCWeight)
	identity.TitleBrandWeight = floatOrDefault(v.Get("identity.title_brand_weight"), defaultTitleBrandWeight)
}

func floatOrDefault(value any, fallback float64) float64 {
	if s, ok := value.(string); ok {
		value = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(value)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server port is required (set SHELFSENSE_SERVER_PORT)")
	}

	if config.Prefilter.TopK <= 0 {
		return fmt.Errorf("prefilter top_k must be positive, got: %d", config.Prefilter.TopK)
	}

	if config.Prefilter.CacheSize <= 0 {
		return fmt.Errorf("prefilter cache_size must be positive, got: %d", config.Prefilter.CacheSize)
	}

	for name, value := range map[string]float64{
		"match_threshold":            config.Identity.MatchThreshold,
		"title_brand_min_similarity": config.Identity.TitleBrandMinSimilarity,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("identity %s must be within [0, 1], got: %v", name, value)
		}
	}

	if config.Identity.UPCWeight < 0 || config.Identity.TitleBrandWeight < 0 {
		return fmt.Errorf("identity weights must not be negative")
	}

	if config.Generation.MaxAttempts <= 0 {
		return fmt.Errorf("generation max_attempts must be positive, got: %d", config.Generation.MaxAttempts)
	}

	if config.Storage.ProductsDir == "" {
		return fmt.Errorf("products directory is required (set SHELFSENSE_STORAGE_PRODUCTS_DIR)")
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("ratelimit per_ip must not be negative, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
