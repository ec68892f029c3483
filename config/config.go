package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the guide generation system
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Geocoding GeocodingConfig `mapstructure:"geocoding"`
	Places    PlacesConfig    `mapstructure:"places"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Verifier  VerifierConfig  `mapstructure:"verifier"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains the text-generation provider configuration
type LLMConfig struct {
	Type        string        `mapstructure:"type"` // openai-compatible
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// GeocodingConfig configures the address resolution capability
type GeocodingConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	Endpoint string        `mapstructure:"endpoint"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PlacesConfig configures the nearby-business search capability
type PlacesConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Endpoint   string        `mapstructure:"endpoint"`
	Language   string        `mapstructure:"language"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// RegistryConfig configures the business-registry lookup capability
type RegistryConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// VerifierConfig bounds the authenticity checks
type VerifierConfig struct {
	CheckTimeout   time.Duration `mapstructure:"check_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
}

// PipelineConfig bounds the guide assembly loop
type PipelineConfig struct {
	MaxRounds          int     `mapstructure:"max_rounds"`
	RadiusCeilingKm    float64 `mapstructure:"radius_ceiling_km"`
	CategoriesPerRound int     `mapstructure:"categories_per_round"`
}

// CacheConfig configures the session-scoped result cache
type CacheConfig struct {
	Type  string        `mapstructure:"type"` // redis or memory
	TTL   time.Duration `mapstructure:"ttl"`
	Redis RedisConfig   `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TelemetryConfig contains monitoring settings
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	PeriodicLogs bool `mapstructure:"periodic_logs"`
}

func (p PipelineConfig) Validate() error {
	if p.MaxRounds <= 0 {
		return fmt.Errorf("pipeline.max_rounds must be > 0")
	}
	if p.RadiusCeilingKm <= 0 {
		return fmt.Errorf("pipeline.radius_ceiling_km must be > 0")
	}
	return nil
}

// LoadConfig loads config from file and PARTNERGUIDE_* environment variables
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.default_timeout", 30*time.Second)
	viper.SetDefault("server.address", ":10010")
	viper.SetDefault("llm.type", "openai-compatible")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.timeout", 60*time.Second)
	viper.SetDefault("geocoding.endpoint", "https://maps.googleapis.com/maps/api/geocode/json")
	viper.SetDefault("geocoding.language", "fr")
	viper.SetDefault("geocoding.timeout", 10*time.Second)
	viper.SetDefault("places.endpoint", "https://places.googleapis.com/v1/places:searchNearby")
	viper.SetDefault("places.language", "fr")
	viper.SetDefault("places.max_results", 20)
	viper.SetDefault("places.timeout", 15*time.Second)
	viper.SetDefault("registry.endpoint", "https://recherche-entreprises.api.gouv.fr/search")
	viper.SetDefault("registry.timeout", 5*time.Second)
	viper.SetDefault("verifier.check_timeout", 4*time.Second)
	viper.SetDefault("verifier.max_concurrency", 8)
	viper.SetDefault("pipeline.max_rounds", 5)
	viper.SetDefault("pipeline.radius_ceiling_km", 50)
	viper.SetDefault("pipeline.categories_per_round", 5)
	viper.SetDefault("cache.type", "memory")
	viper.SetDefault("cache.ttl", 30*time.Minute)
	viper.SetDefault("cache.redis.addr", "localhost:6379")
	viper.SetDefault("telemetry.enabled", true)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("PARTNERGUIDE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// config file is optional; env and defaults carry the rest
		log.Printf("config: no config file loaded: %v", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("config: unable to decode into struct: %v", err)
	}
	return &cfg
}
