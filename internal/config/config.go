package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Sensor   SensorConfig
	Log      LogConfig
}

// DatabaseConfig holds database configuration. An empty URL disables the session journal.
type DatabaseConfig struct {
	URL           string
	MigrationsDir string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
	SSEBuffer      int
}

// SensorConfig selects and configures the magnetometer source
type SensorConfig struct {
	Source       string // simulated, serial or none
	SerialPort   string
	SerialBaud   int
	SimErrorRate float64
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Load loads configuration from environment variables and .env files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "dev")
	viper.SetDefault("ALLOWED_ORIGINS", "capacitor://localhost,http://localhost,http://localhost:5173,http://localhost:8100")
	viper.SetDefault("SSE_BUFFER", 64)
	viper.SetDefault("SENSOR_SOURCE", "simulated")
	viper.SetDefault("SERIAL_PORT", "")
	viper.SetDefault("SERIAL_BAUD", 115200)
	viper.SetDefault("SIM_ERROR_RATE", 0.0)
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from .env files based on environment
	viper.BindEnv("ENVIRONMENT")
	env := viper.GetString("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	viper.SetConfigName(".env." + env)
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// Read .env file (ignore error if file doesn't exist)
	_ = viper.ReadInConfig()

	// Environment variables override .env file values
	viper.AutomaticEnv()

	for _, key := range []string{
		"DATABASE_URL",
		"MIGRATIONS_DIR",
		"PORT",
		"ALLOWED_ORIGINS",
		"SSE_BUFFER",
		"SENSOR_SOURCE",
		"SERIAL_PORT",
		"SERIAL_BAUD",
		"SIM_ERROR_RATE",
		"LOG_LEVEL",
	} {
		viper.BindEnv(key)
	}

	var config Config
	config.Database.URL = viper.GetString("DATABASE_URL")
	config.Database.MigrationsDir = GetStringOrDefault("MIGRATIONS_DIR", "migrations")
	config.Server.Port = viper.GetString("PORT")
	config.Server.Env = viper.GetString("ENVIRONMENT")
	config.Server.AllowedOrigins = splitList(viper.GetString("ALLOWED_ORIGINS"))
	config.Server.SSEBuffer = viper.GetInt("SSE_BUFFER")
	config.Sensor.Source = strings.ToLower(strings.TrimSpace(viper.GetString("SENSOR_SOURCE")))
	config.Sensor.SerialPort = viper.GetString("SERIAL_PORT")
	config.Sensor.SerialBaud = viper.GetInt("SERIAL_BAUD")
	config.Sensor.SimErrorRate = viper.GetFloat64("SIM_ERROR_RATE")
	config.Log.Level = viper.GetString("LOG_LEVEL")

	if err := config.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("environment", config.Server.Env).
		Str("sensor_source", config.Sensor.Source).
		Strs("allowed_origins", config.Server.AllowedOrigins).
		Bool("journal", config.Database.URL != "").
		Msg("Configuration loaded")

	return &config, nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Sensor.Source {
	case "simulated", "none":
	case "serial":
		if c.Sensor.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required when SENSOR_SOURCE=serial")
		}
	default:
		return fmt.Errorf("invalid SENSOR_SOURCE %q: expected simulated, serial or none", c.Sensor.Source)
	}
	if c.Sensor.SimErrorRate < 0 || c.Sensor.SimErrorRate > 1 {
		return fmt.Errorf("invalid SIM_ERROR_RATE %v: must be between 0 and 1", c.Sensor.SimErrorRate)
	}
	if c.Server.SSEBuffer <= 0 {
		c.Server.SSEBuffer = 64
	}
	return nil
}

// GetStringOrDefault returns the value from viper if set, otherwise returns the default
func GetStringOrDefault(envVar, def string) string {
	if viper.IsSet(envVar) {
		return viper.GetString(envVar)
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
