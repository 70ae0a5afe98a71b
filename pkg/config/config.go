package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the realtime gateway
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Realtime (socket layer) configuration
	Realtime RealtimeConfig `mapstructure:"realtime"`

	// JWT configuration
	JWT JWTConfig `mapstructure:"jwt"`

	// AI service configuration
	AI AIConfig `mapstructure:"ai"`

	// Notification configuration
	Notify NotifyConfig `mapstructure:"notify"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// RealtimeConfig holds socket-layer configuration
type RealtimeConfig struct {
	// SocketReadTimeout bounds how long a connection may sit idle before
	// the read pump gives up, in seconds.
	SocketReadTimeout int `mapstructure:"socket_read_timeout"`
	// SendBufferSize is the per-connection outbound queue length.
	SendBufferSize int `mapstructure:"send_buffer_size"`
	// CleanupInterval is the shadow-sweep period in seconds.
	CleanupInterval int `mapstructure:"cleanup_interval"`
	// AnswerDedupTTL is how long a relayed answer key suppresses
	// duplicates, in seconds.
	AnswerDedupTTL int `mapstructure:"answer_dedup_ttl"`
	// AppointmentTTL is how long a pending appointment shadow lives
	// before the sweep treats it as expired, in seconds.
	AppointmentTTL int `mapstructure:"appointment_ttl"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	AccessTokenTTL int    `mapstructure:"access_token_ttl"`
	Issuer         string `mapstructure:"issuer"`
	// VerificationCodeTTL is how long an issued verification code stays
	// valid, in seconds.
	VerificationCodeTTL int `mapstructure:"verification_code_ttl"`
}

// AIConfig holds AI inference configuration
type AIConfig struct {
	GroqAPIKey       string `mapstructure:"groq_api_key"`
	GroqBaseURL      string `mapstructure:"groq_base_url"`
	GroqModel        string `mapstructure:"groq_model"`
	HuggingFaceToken string `mapstructure:"huggingface_token"`
	InferenceURL     string `mapstructure:"inference_url"`
	EmotionModel     string `mapstructure:"emotion_model"`
	RequestTimeout   int    `mapstructure:"request_timeout"`
}

// NotifyConfig holds email/SMS delivery configuration
type NotifyConfig struct {
	SMTPHost       string `mapstructure:"smtp_host"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	SMTPUser       string `mapstructure:"smtp_user"`
	SMTPPassword   string `mapstructure:"smtp_password"`
	FromAddress    string `mapstructure:"from_address"`
	AlertEmail     string `mapstructure:"alert_email"`
	TwilioSID      string `mapstructure:"twilio_sid"`
	TwilioToken    string `mapstructure:"twilio_token"`
	TwilioFrom     string `mapstructure:"twilio_from"`
	RequestTimeout int    `mapstructure:"request_timeout"`
}

// ServerAddr returns the host:port listen address.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SocketReadTimeoutDuration returns the socket read timeout as a duration.
func (c *RealtimeConfig) SocketReadTimeoutDuration() time.Duration {
	return time.Duration(c.SocketReadTimeout) * time.Second
}

// CleanupIntervalDuration returns the shadow-sweep period as a duration.
func (c *RealtimeConfig) CleanupIntervalDuration() time.Duration {
	return time.Duration(c.CleanupInterval) * time.Second
}

// AnswerDedupTTLDuration returns the answer-dedup window as a duration.
func (c *RealtimeConfig) AnswerDedupTTLDuration() time.Duration {
	return time.Duration(c.AnswerDedupTTL) * time.Second
}

// AppointmentTTLDuration returns the pending-shadow lifetime as a duration.
func (c *RealtimeConfig) AppointmentTTLDuration() time.Duration {
	return time.Duration(c.AppointmentTTL) * time.Second
}

// VerificationCodeTTLDuration returns the code lifetime as a duration.
func (c *JWTConfig) VerificationCodeTTLDuration() time.Duration {
	return time.Duration(c.VerificationCodeTTL) * time.Second
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/healnest")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideWithEnv(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.idle_timeout", 120)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "healnest")
	viper.SetDefault("database.user", "healnest")
	viper.SetDefault("database.ssl_mode", "require")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 300)

	// Realtime defaults
	viper.SetDefault("realtime.socket_read_timeout", 300)
	viper.SetDefault("realtime.send_buffer_size", 256)
	viper.SetDefault("realtime.cleanup_interval", 3600) // hourly sweep
	viper.SetDefault("realtime.answer_dedup_ttl", 30)
	viper.SetDefault("realtime.appointment_ttl", 86400)

	// JWT defaults
	viper.SetDefault("jwt.access_token_ttl", 86400)
	viper.SetDefault("jwt.issuer", "healnest-backend")
	viper.SetDefault("jwt.verification_code_ttl", 600)

	// AI defaults
	viper.SetDefault("ai.groq_base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("ai.groq_model", "llama-3.3-70b-versatile")
	viper.SetDefault("ai.inference_url", "https://api-inference.huggingface.co/models/")
	viper.SetDefault("ai.emotion_model", "SamLowe/roberta-base-go_emotions")
	viper.SetDefault("ai.request_timeout", 30)

	// Notification defaults
	viper.SetDefault("notify.smtp_port", 587)
	viper.SetDefault("notify.request_timeout", 15)

	// Logging defaults
	viper.SetDefault("log_level", "info")
}

// overrideWithEnv overrides configuration with environment variables
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if jwtSecret := os.Getenv("JWT_SECRET_KEY"); jwtSecret != "" {
		config.JWT.SecretKey = jwtSecret
	}

	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		config.AI.GroqAPIKey = key
	}

	if token := os.Getenv("HUGGINGFACE_TOKEN"); token != "" {
		config.AI.HuggingFaceToken = token
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
}

// validate validates the configuration
func validate(config *Config) error {
	if config.JWT.SecretKey == "" {
		return fmt.Errorf("JWT secret key is required")
	}

	if config.Database.Password == "" {
		return fmt.Errorf("database password is required")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Realtime.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup interval must be positive")
	}

	if config.Realtime.AnswerDedupTTL <= 0 {
		return fmt.Errorf("answer dedup TTL must be positive")
	}

	return nil
}
