package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode     string
	Port        string
	Database    DatabaseConfig
	JWT         JWTConfig
	Tree        TreeConfig
	Invite      InviteConfig
	Audit       AuditConfig
	Redis       RedisConfig
	Consistency ConsistencyConfig
	RootAdmin   RootAdminConfig

	// EnvFileLoaded is false when no .env file was found
	EnvFileLoaded bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string

	MaxOpenConns        int
	MaxIdleConns        int
	ConnMaxLifetimeMins int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret          string
	AccessTokenMins int
}

// TreeConfig bounds subtree views
type TreeConfig struct {
	MemberMaxDepth int
	AdminMaxDepth  int
	DefaultDepth   int
	MaxExpanded    int
}

// InviteConfig holds invite code settings
type InviteConfig struct {
	MaxAttempts int
}

// AuditConfig selects the audit sink: "log" or "redis"
type AuditConfig struct {
	Sink      string
	Stream    string
	StreamMax int64
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ConsistencyConfig schedules the tree consistency check
type ConsistencyConfig struct {
	Cron           string
	TimeoutMinutes int
}

// RootAdminConfig describes the bootstrap administrator.
// Empty Email disables bootstrapping.
type RootAdminConfig struct {
	Email    string
	Password string
	Name     string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (missing file is fine in production)
	envLoaded := godotenv.Load() == nil

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:       appMode,
		Port:          getEnv("PORT", "3000"),
		Database:      loadDatabaseConfig(appMode),
		JWT:           loadJWTConfig(appMode),
		Tree:          loadTreeConfig(),
		Invite:        InviteConfig{MaxAttempts: getEnvInt("INVITE_CODE_MAX_ATTEMPTS", 5)},
		Audit:         loadAuditConfig(),
		Redis:         loadRedisConfig(),
		Consistency:   loadConsistencyConfig(),
		RootAdmin:     loadRootAdminConfig(),
		EnvFileLoaded: envLoaded,
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	// Set global config
	AppConfig = config
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "sponsornet"),

		MaxOpenConns:        getEnvInt("DB_MAX_OPEN_CONNS", 50),
		MaxIdleConns:        getEnvInt("DB_MAX_IDLE_CONNS", 10),
		ConnMaxLifetimeMins: getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 60),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return JWTConfig{
		Secret:          getEnv(prefix+"JWT_SECRET", "default_secret"),
		AccessTokenMins: getEnvInt("ACCESS_TOKEN_MINUTES", 60),
	}
}

func loadTreeConfig() TreeConfig {
	return TreeConfig{
		MemberMaxDepth: getEnvInt("TREE_MEMBER_MAX_DEPTH", 5),
		AdminMaxDepth:  getEnvInt("TREE_ADMIN_MAX_DEPTH", 12),
		DefaultDepth:   getEnvInt("TREE_DEFAULT_DEPTH", 3),
		MaxExpanded:    getEnvInt("TREE_MAX_EXPANDED", 50),
	}
}

func loadAuditConfig() AuditConfig {
	return AuditConfig{
		Sink:      strings.ToLower(getEnv("AUDIT_SINK", "log")),
		Stream:    getEnv("AUDIT_STREAM", "sponsornet:audit"),
		StreamMax: int64(getEnvInt("AUDIT_STREAM_MAXLEN", 100000)),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}

// loadConsistencyConfig defaults to a nightly run; CONSISTENCY_CRON set to "" disables it
func loadConsistencyConfig() ConsistencyConfig {
	spec, ok := os.LookupEnv("CONSISTENCY_CRON")
	if !ok {
		spec = "0 3 * * *"
	}
	return ConsistencyConfig{
		Cron:           strings.TrimSpace(spec),
		TimeoutMinutes: getEnvInt("CONSISTENCY_TIMEOUT_MINUTES", 30),
	}
}

func loadRootAdminConfig() RootAdminConfig {
	return RootAdminConfig{
		Email:    getEnv("ROOT_ADMIN_EMAIL", ""),
		Password: getEnv("ROOT_ADMIN_PASSWORD", ""),
		Name:     getEnv("ROOT_ADMIN_NAME", "Administrator"),
	}
}

func (c *Config) validate() error {
	if c.Audit.Sink != "log" && c.Audit.Sink != "redis" {
		return fmt.Errorf("invalid AUDIT_SINK: '%s' (must be 'log' or 'redis')", c.Audit.Sink)
	}
	if c.Tree.AdminMaxDepth < c.Tree.MemberMaxDepth {
		return fmt.Errorf("TREE_ADMIN_MAX_DEPTH (%d) must be >= TREE_MEMBER_MAX_DEPTH (%d)",
			c.Tree.AdminMaxDepth, c.Tree.MemberMaxDepth)
	}
	if c.RootAdmin.Email != "" && len(c.RootAdmin.Password) < 8 {
		return fmt.Errorf("ROOT_ADMIN_PASSWORD must be at least 8 characters")
	}
	if c.IsProd() && c.JWT.Secret == "default_secret" {
		return fmt.Errorf("PROD_JWT_SECRET must be set in prod mode")
	}
	return nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable, falling back on parse errors
func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://app.sponsornet.io"
	}
	return origins
}
