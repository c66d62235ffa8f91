package config // package config loads application configuration from environment variables

import (
    "strings"
    "time"

    "github.com/joho/godotenv"
    "github.com/sirupsen/logrus"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
    StorageMySQL  = "mysql"
    StorageMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env             string        // APP_ENV: dev, test, production
    Port            string        // APP_PORT: HTTP port to listen on
    StorageDriver   string        // STORAGE_DRIVER: mysql or memory
    DBUser          string        // DB_USER
    DBPass          string        // DB_PASS (empty allowed)
    DBHost          string        // DB_HOST
    DBPort          string        // DB_PORT
    DBName          string        // DB_NAME
    JWTSecret       string        // JWT_SECRET: HS256 signing secret
    AccessTTLMin    int           // ACCESS_TOKEN_TTL_MIN
    RefreshTTLDays  int           // REFRESH_TOKEN_TTL_DAYS
    BcryptCost      int           // BCRYPT_COST
    RabbitMQURL     string        // RABBITMQ_URL (empty disables events)
    LogLevel        string        // LOG_LEVEL
    SeedOnStart     bool          // SEED_ON_START: load demo data at boot
    ShutdownTimeout time.Duration // SHUTDOWN_TIMEOUT
    CORSOrigins     []string      // CORS_ALLOW_ORIGINS: comma separated, "*" by default
}

// Load reads configuration from the environment, after merging a local .env
// file when one exists.  Missing required variables are fatal.
func Load() Config {
    // a missing .env is normal outside development
    _ = godotenv.Load()

    cfg := Config{
        Env:             envStr("APP_ENV", "dev"),
        Port:            envStr("APP_PORT", "8080"),
        StorageDriver:   strings.ToLower(envStr("STORAGE_DRIVER", StorageMySQL)),
        JWTSecret:       must("JWT_SECRET"),
        AccessTTLMin:    envInt("ACCESS_TOKEN_TTL_MIN", 1440),
        RefreshTTLDays:  envInt("REFRESH_TOKEN_TTL_DAYS", 7),
        BcryptCost:      envInt("BCRYPT_COST", 10),
        RabbitMQURL:     rabbitURL(),
        LogLevel:        envStr("LOG_LEVEL", "info"),
        SeedOnStart:     envBool("SEED_ON_START", false),
        ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
        CORSOrigins:     envList("CORS_ALLOW_ORIGINS", "*"),
    }
    switch cfg.StorageDriver {
    case StorageMySQL:
        cfg.DBUser = must("DB_USER")
        cfg.DBPass = getenv("DB_PASS", "")
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = envStr("DB_PORT", "3306")
        cfg.DBName = must("DB_NAME")
    case StorageMemory:
    default:
        logrus.Fatalf("invalid STORAGE_DRIVER %q: want %s or %s", cfg.StorageDriver, StorageMySQL, StorageMemory)
    }
    return cfg
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c Config) IsProduction() bool {
    switch strings.ToLower(c.Env) {
    case "prod", "production":
        return true
    }
    return false
}

// rabbitURL honours AMQP_URL as a fallback name.
func rabbitURL() string {
    if v := getenv("RABBITMQ_URL", ""); v != "" {
        return v
    }
    return getenv("AMQP_URL", "")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v := getenv(key, "")
    if v == "" {
        logrus.Fatalf("missing required env var: %s", key)
    }
    return v
}
