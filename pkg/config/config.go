package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Planner  PlannerConfig
	Proposer ProposerConfig
	Exports  ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PlannerConfig tunes schedule generation defaults.
type PlannerConfig struct {
	HorizonWeeks      int
	MaxHorizonWeeks   int
	MinSessionMinutes int
	MaxSessionMinutes int
	Timezone          string
	CacheEnabled      bool
	CacheTTL          time.Duration
}

// ProposerConfig points at the external generative schedule proposer.
type ProposerConfig struct {
	Enabled     bool
	URL         string
	APIKey      string
	Models      []string
	Timeout     time.Duration
	MaxAttempts int
}

// ExportsConfig controls schedule downloads.
type ExportsConfig struct {
	Enabled bool
	Title   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Planner = PlannerConfig{
		HorizonWeeks:      v.GetInt("PLANNER_HORIZON_WEEKS"),
		MaxHorizonWeeks:   v.GetInt("PLANNER_MAX_HORIZON_WEEKS"),
		MinSessionMinutes: v.GetInt("PLANNER_MIN_SESSION"),
		MaxSessionMinutes: v.GetInt("PLANNER_MAX_SESSION"),
		Timezone:          v.GetString("PLANNER_TIMEZONE"),
		CacheEnabled:      v.GetBool("ENABLE_PLANNER_CACHE"),
		CacheTTL:          parseDuration(v.GetString("PLANNER_CACHE_TTL"), 15*time.Minute),
	}

	cfg.Proposer = ProposerConfig{
		Enabled:     v.GetBool("ENABLE_PROPOSER"),
		URL:         v.GetString("PROPOSER_URL"),
		APIKey:      v.GetString("PROPOSER_API_KEY"),
		Models:      splitAndTrim(v.GetString("PROPOSER_MODELS")),
		Timeout:     parseDuration(v.GetString("PROPOSER_TIMEOUT"), 20*time.Second),
		MaxAttempts: v.GetInt("PROPOSER_MAX_ATTEMPTS"),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
		Title:   v.GetString("EXPORT_TITLE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "study_planner")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PLANNER_HORIZON_WEEKS", 2)
	v.SetDefault("PLANNER_MAX_HORIZON_WEEKS", 12)
	v.SetDefault("PLANNER_MIN_SESSION", 60)
	v.SetDefault("PLANNER_MAX_SESSION", 120)
	v.SetDefault("PLANNER_TIMEZONE", "Asia/Ho_Chi_Minh")
	v.SetDefault("ENABLE_PLANNER_CACHE", true)
	v.SetDefault("PLANNER_CACHE_TTL", "15m")

	v.SetDefault("ENABLE_PROPOSER", false)
	v.SetDefault("PROPOSER_URL", "")
	v.SetDefault("PROPOSER_API_KEY", "")
	v.SetDefault("PROPOSER_MODELS", "")
	v.SetDefault("PROPOSER_TIMEOUT", "20s")
	v.SetDefault("PROPOSER_MAX_ATTEMPTS", 3)

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORT_TITLE", "Study schedule")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
