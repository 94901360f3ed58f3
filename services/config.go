package services

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	AI        AIConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	Upload    UploadConfig
	Links     LinkConfig
	Calls     CallConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	URL          string
	Seed         bool
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

type AIConfig struct {
	GeminiAPIKey      string
	OpenAIAPIKey      string
	Provider          string
	RequestsPerSecond float64
	MaxRetries        int
}

type JWTConfig struct {
	Secret string
}

type WebSocketConfig struct {
	AllowedOrigins string
}

type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

type LinkConfig struct {
	LiveURL       string // base URL of candidate-facing links
	SweepInterval time.Duration
}

type CallConfig struct {
	IdleTimeout time.Duration
	MaxDuration time.Duration
}

// LoadConfig loads configuration from environment variables and config files
func LoadConfig() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.environment", "development")
	viper.SetDefault("websocket.allowed_origins", "")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("openai.api_key", "")
	viper.SetDefault("ai.provider", string(ProviderOpenAI))
	viper.SetDefault("ai.requests_per_second", 5)
	viper.SetDefault("ai.max_retries", 5)
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.seed", "true")
	viper.SetDefault("database.log_level", "silent")
	viper.SetDefault("database.max_idle_conns", "10")
	viper.SetDefault("database.max_open_conns", "100")
	viper.SetDefault("upload.dir", "uploads")
	viper.SetDefault("upload.max_bytes", 10<<20)
	viper.SetDefault("links.live_url", "http://localhost:3000")
	viper.SetDefault("links.sweep_interval", "1m")
	viper.SetDefault("calls.idle_timeout", "5m")
	viper.SetDefault("calls.max_duration", "30m")

	// Map environment variables to config keys
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.environment", "ENVIRONMENT")
	viper.BindEnv("websocket.allowed_origins", "WEBSOCKET_ALLOWED_ORIGINS")
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("ai.provider", "AI_PROVIDER")
	viper.BindEnv("ai.requests_per_second", "AI_REQUESTS_PER_SECOND")
	viper.BindEnv("ai.max_retries", "AI_MAX_RETRIES")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.seed", "DATABASE_SEED")
	viper.BindEnv("database.log_level", "DATABASE_LOG_LEVEL")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	viper.BindEnv("upload.dir", "UPLOAD_DIR")
	viper.BindEnv("upload.max_bytes", "UPLOAD_MAX_BYTES")
	viper.BindEnv("links.live_url", "LIVE_URL")
	viper.BindEnv("links.sweep_interval", "LINK_SWEEP_INTERVAL")
	viper.BindEnv("calls.idle_timeout", "CALL_IDLE_TIMEOUT")
	viper.BindEnv("calls.max_duration", "CALL_MAX_DURATION")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Error reading config file", "error", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:        viper.GetString("server.port"),
			Environment: viper.GetString("server.environment"),
		},
		Database: DatabaseConfig{
			URL:          viper.GetString("database.url"),
			Seed:         viper.GetBool("database.seed"),
			LogLevel:     viper.GetString("database.log_level"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
		},
		AI: AIConfig{
			GeminiAPIKey:      viper.GetString("gemini.api_key"),
			OpenAIAPIKey:      viper.GetString("openai.api_key"),
			Provider:          viper.GetString("ai.provider"),
			RequestsPerSecond: viper.GetFloat64("ai.requests_per_second"),
			MaxRetries:        viper.GetInt("ai.max_retries"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: viper.GetString("websocket.allowed_origins"),
		},
		Upload: UploadConfig{
			Dir:      viper.GetString("upload.dir"),
			MaxBytes: viper.GetInt64("upload.max_bytes"),
		},
		Links: LinkConfig{
			LiveURL:       viper.GetString("links.live_url"),
			SweepInterval: viper.GetDuration("links.sweep_interval"),
		},
		Calls: CallConfig{
			IdleTimeout: viper.GetDuration("calls.idle_timeout"),
			MaxDuration: viper.GetDuration("calls.max_duration"),
		},
	}
}
