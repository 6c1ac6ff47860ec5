package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"crm-calendar-api/core/logger"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	GoogleAPI GoogleAPIConfig
	Frontend  FrontendConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	AccessTokenTTLMin int
}

type GoogleAPIConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// Endpoint overrides, default to the public Google endpoints.
	// Tests point these at a local httptest server.
	AuthURL         string
	TokenURL        string
	UserInfoURL     string
	CalendarAPIBase string
}

type FrontendConfig struct {
	// CalendarURL is where the OAuth callback sends the browser back to.
	CalendarURL string
}

var (
	instance *Config
	mu       sync.RWMutex
)

// Load reads .env (if present) and environment variables, builds the
// process-wide config singleton and returns it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info("Config:Load:NoDotEnv", "reason", "using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("SERVER_PORT", 7070)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_ACCESS_TOKEN_TTL_MIN", 60)
	v.SetDefault("GOOGLE_AUTH_URL", "https://accounts.google.com/o/oauth2/auth")
	v.SetDefault("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token")
	v.SetDefault("GOOGLE_USERINFO_URL", "https://www.googleapis.com/oauth2/v2/userinfo")
	v.SetDefault("GOOGLE_CALENDAR_API_BASE", "https://www.googleapis.com/calendar/v3")
	v.SetDefault("FRONTEND_CALENDAR_URL", "http://localhost:3000/calendar")

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:            v.GetString("JWT_SECRET"),
			AccessTokenTTLMin: v.GetInt("JWT_ACCESS_TOKEN_TTL_MIN"),
		},
		GoogleAPI: GoogleAPIConfig{
			ClientID:        v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret:    v.GetString("GOOGLE_CLIENT_SECRET"),
			RedirectURI:     v.GetString("GOOGLE_REDIRECT_URI"),
			AuthURL:         v.GetString("GOOGLE_AUTH_URL"),
			TokenURL:        v.GetString("GOOGLE_TOKEN_URL"),
			UserInfoURL:     v.GetString("GOOGLE_USERINFO_URL"),
			CalendarAPIBase: v.GetString("GOOGLE_CALENDAR_API_BASE"),
		},
		Frontend: FrontendConfig{
			CalendarURL: v.GetString("FRONTEND_CALENDAR_URL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	mu.Lock()
	instance = cfg
	mu.Unlock()

	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	return nil
}

// Get returns the loaded config. Panics when Load has not run.
func Get() *Config {
	cfg, ok := GetSafe()
	if !ok {
		panic("config: Get called before Load")
	}
	return cfg
}

// GetSafe returns the loaded config and whether it is initialized.
func GetSafe() (*Config, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if instance == nil {
		return nil, false
	}
	return instance, true
}

// Set replaces the singleton. Intended for tests.
func Set(cfg *Config) {
	mu.Lock()
	instance = cfg
	mu.Unlock()
}
