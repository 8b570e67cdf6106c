package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	AI       AI       `mapstructure:"ai"`
	Search   Search   `mapstructure:"search"`
	Research Research `mapstructure:"research"`
	Catalog  Catalog  `mapstructure:"catalog"`
	Server   Server   `mapstructure:"server"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// AI holds AI/LLM configuration
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout string `mapstructure:"timeout"`
}

// Search holds search provider configuration
type Search struct {
	// PreferredOrder lists provider names tried first to last.
	PreferredOrder []string        `mapstructure:"preferred_order"`
	MaxResults     int             `mapstructure:"max_results"`
	Depth          string          `mapstructure:"depth"`
	Timeout        string          `mapstructure:"timeout"`
	Providers      SearchProviders `mapstructure:"providers"`
}

// SearchProviders holds configuration for all search providers
type SearchProviders struct {
	Tavily     TavilyConfig     `mapstructure:"tavily"`
	SerpAPI    SerpAPIConfig    `mapstructure:"serpapi"`
	DuckDuckGo DuckDuckGoConfig `mapstructure:"duckduckgo"`
}

// TavilyConfig holds Tavily configuration
type TavilyConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// SerpAPIConfig holds SerpAPI configuration
type SerpAPIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// DuckDuckGoConfig holds DuckDuckGo configuration
type DuckDuckGoConfig struct {
	RateLimit string `mapstructure:"rate_limit"`
}

// Research holds pipeline configuration
type Research struct {
	MaxTools         int     `mapstructure:"max_tools"`
	ValidationCap    int     `mapstructure:"validation_cap"`
	SentimentResults int     `mapstructure:"sentiment_results"`
	SentimentFetches int     `mapstructure:"sentiment_fetches"`
	FetchTimeout     string  `mapstructure:"fetch_timeout"`
	MinConfidence    float64 `mapstructure:"min_confidence"`
}

// Catalog holds catalog file configuration
type Catalog struct {
	Path string `mapstructure:"path"`
}

// Server holds HTTP server configuration
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORS          `mapstructure:"cors"`
}

// CORS holds CORS middleware configuration
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

var globalConfig *Config

// Load loads the configuration from the config file, environment variables
// and defaults, in that order of precedence.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".toolscout")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", ".toolscout")

	// AI defaults
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.timeout", "60s")

	// Search defaults
	viper.SetDefault("search.preferred_order", []string{"tavily", "duckduckgo"})
	viper.SetDefault("search.max_results", 5)
	viper.SetDefault("search.depth", "basic")
	viper.SetDefault("search.timeout", "30s")
	viper.SetDefault("search.providers.duckduckgo.rate_limit", "1s")

	// Research defaults
	viper.SetDefault("research.max_tools", 10)
	viper.SetDefault("research.validation_cap", 20)
	viper.SetDefault("research.sentiment_results", 10)
	viper.SetDefault("research.sentiment_fetches", 3)
	viper.SetDefault("research.fetch_timeout", "10s")
	viper.SetDefault("research.min_confidence", 0.7)

	// Catalog defaults
	viper.SetDefault("catalog.path", "data/ai_tools.json")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "0s") // streaming responses must not time out
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	// Gemini API key - support multiple formats
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	// Tavily
	bindEnvKeys("search.providers.tavily.api_key", []string{
		"TAVILY_API_KEY",
	})

	// SerpAPI
	bindEnvKeys("search.providers.serpapi.api_key", []string{
		"SERPAPI_API_KEY",
		"SERPAPI_KEY",
	})

	// Catalog path override
	bindEnvKeys("catalog.path", []string{
		"TOOLSCOUT_CATALOG_PATH",
	})

	// General settings
	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"TOOLSCOUT_DEBUG",
	})

	bindEnvKeys("app.data_dir", []string{
		"TOOLSCOUT_DATA_DIR",
	})

	bindEnvKeys("server.port", []string{
		"TOOLSCOUT_PORT",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}
	if config.Catalog.Path != "" {
		config.Catalog.Path = expandPath(config.Catalog.Path)
	}

	durations := map[string]string{
		"ai.gemini.timeout":      config.AI.Gemini.Timeout,
		"search.timeout":         config.Search.Timeout,
		"research.fetch_timeout": config.Research.FetchTimeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures required configuration is present
func validateConfig(config *Config) error {
	var errors []string

	// Gemini API key is required for every pipeline run
	if config.AI.Gemini.APIKey == "" {
		errors = append(errors, "Gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file.\nGet your API key from: https://aistudio.google.com/app/apikey")
	}

	for _, name := range config.Search.PreferredOrder {
		switch name {
		case "tavily":
			// falls back to the next provider when the key is missing
		case "serpapi":
			if config.Search.Providers.SerpAPI.APIKey == "" {
				errors = append(errors, "SerpAPI requires an API key. Set SERPAPI_API_KEY or remove serpapi from search.preferred_order")
			}
		case "duckduckgo", "mock":
			// no credentials needed
		default:
			errors = append(errors, fmt.Sprintf("Unknown search provider: %s. Supported: tavily, serpapi, duckduckgo, mock", name))
		}
	}

	if config.Research.MaxTools <= 0 {
		errors = append(errors, "research.max_tools must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Convenience getters for commonly used configuration values
func GetApp() App           { return Get().App }
func GetAI() AI             { return Get().AI }
func GetSearch() Search     { return Get().Search }
func GetResearch() Research { return Get().Research }
func GetServer() Server     { return Get().Server }

func GetGeminiAPIKey() string { return Get().AI.Gemini.APIKey }
func GetGeminiModel() string  { return Get().AI.Gemini.Model }
func GetTavilyAPIKey() string { return Get().Search.Providers.Tavily.APIKey }
func GetSerpAPIKey() string   { return Get().Search.Providers.SerpAPI.APIKey }
func GetCatalogPath() string  { return Get().Catalog.Path }
func IsDebugMode() bool       { return Get().App.Debug }

// ModelTimeout returns the parsed per-request Gemini deadline, defaulting
// to 60s.
func (g GeminiConfig) ModelTimeout() time.Duration {
	if d, err := time.ParseDuration(g.Timeout); err == nil && d > 0 {
		return d
	}
	return 60 * time.Second
}

// SearchTimeout returns the parsed search timeout, defaulting to 30s.
func (s Search) SearchTimeout() time.Duration {
	if d, err := time.ParseDuration(s.Timeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// PageFetchTimeout returns the parsed sentiment fetch timeout, defaulting to 10s.
func (r Research) PageFetchTimeout() time.Duration {
	if d, err := time.ParseDuration(r.FetchTimeout); err == nil && d > 0 {
		return d
	}
	return 10 * time.Second
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
