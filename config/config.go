package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Mapstructure tags are used to map environment variables and config file keys.
type Config struct {
	// Server Configuration
	ServerAddress string `mapstructure:"SERVER_ADDRESS"` // e.g., ":8080"
	AppEnv        string `mapstructure:"APP_ENV"`        // "production" switches gin to release mode
	LogLevel      string `mapstructure:"LOG_LEVEL"`      // debug, info, warn, error

	// Model Providers
	OpenRouterAPIKey  string `mapstructure:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string `mapstructure:"OPENROUTER_BASE_URL"`
	GroqAPIKey        string `mapstructure:"GROQ_API_KEY"`
	GroqBaseURL       string `mapstructure:"GROQ_BASE_URL"`
	HTTPReferer       string `mapstructure:"HTTP_REFERER"` // sent to OpenRouter for attribution
	AppTitle          string `mapstructure:"APP_TITLE"`

	// Models per stage
	AnalysisModel  string `mapstructure:"ANALYSIS_MODEL"`
	PlanModel      string `mapstructure:"PLAN_MODEL"`
	SynthesisModel string `mapstructure:"SYNTHESIS_MODEL"`
	EnhanceModel   string `mapstructure:"ENHANCE_MODEL"`

	// Storage
	DBPath string `mapstructure:"DB_PATH"`

	// Sessions and preview
	SessionTTL          time.Duration `mapstructure:"SESSION_TTL"`
	SessionCapacity     int           `mapstructure:"SESSION_CAPACITY"`
	ProgressInterval    time.Duration `mapstructure:"PROGRESS_INTERVAL"`
	PreviewCacheMaxCost int64         `mapstructure:"PREVIEW_CACHE_MAX_COST"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OPENROUTER_API_KEY", "")
	v.SetDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("GROQ_API_KEY", "")
	v.SetDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1")
	v.SetDefault("HTTP_REFERER", "")
	v.SetDefault("APP_TITLE", "Prompt2Web")
	v.SetDefault("ANALYSIS_MODEL", "llama-3.1-8b-instant")
	v.SetDefault("PLAN_MODEL", "llama-3.3-70b-versatile")
	v.SetDefault("SYNTHESIS_MODEL", "google/gemini-2.0-flash-exp:free")
	v.SetDefault("ENHANCE_MODEL", "")
	v.SetDefault("DB_PATH", "prompt2web.db")
	v.SetDefault("SESSION_TTL", "2h")
	v.SetDefault("SESSION_CAPACITY", 1000)
	v.SetDefault("PROGRESS_INTERVAL", "5s")
	v.SetDefault("PREVIEW_CACHE_MAX_COST", 64<<20)
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)     // Path to look for the config file in
	v.SetConfigName("config") // Name of config file (without extension)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.AutomaticEnv() // Read environment variables that match keys

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		slog.Info("config file ('config.yaml') not found, relying on environment variables and defaults")
	} else {
		slog.Info("using configuration file", "path", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if config.EnhanceModel == "" {
		config.EnhanceModel = config.SynthesisModel
	}

	if config.OpenRouterAPIKey == "" {
		slog.Warn("OPENROUTER_API_KEY is not set; project synthesis and enhancement will fail")
	}
	if config.GroqAPIKey == "" {
		slog.Warn("GROQ_API_KEY is not set; analysis and planning will fall back")
	}
	return config, nil
}

// SlogLevel maps LOG_LEVEL onto a slog level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
