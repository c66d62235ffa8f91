package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLoadMemoryDefaults(t *testing.T) {
    t.Setenv("JWT_SECRET", "s")
    t.Setenv("STORAGE_DRIVER", "Memory")
    t.Setenv("APP_ENV", "")
    t.Setenv("APP_PORT", "")
    t.Setenv("ACCESS_TOKEN_TTL_MIN", "")
    t.Setenv("BCRYPT_COST", "")
    t.Setenv("RABBITMQ_URL", "")
    t.Setenv("AMQP_URL", "amqp://fallback/")
    t.Setenv("CORS_ALLOW_ORIGINS", "")

    cfg := Load()
    assert.Equal(t, StorageMemory, cfg.StorageDriver)
    assert.Equal(t, "dev", cfg.Env)
    assert.Equal(t, "8080", cfg.Port)
    assert.Equal(t, 1440, cfg.AccessTTLMin)
    assert.Equal(t, 10, cfg.BcryptCost)
    assert.Equal(t, "amqp://fallback/", cfg.RabbitMQURL)
    assert.Empty(t, cfg.DBHost)
    assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
    assert.False(t, cfg.IsProduction())
}

func TestLoadMySQL(t *testing.T) {
    t.Setenv("JWT_SECRET", "s")
    t.Setenv("STORAGE_DRIVER", "mysql")
    t.Setenv("DB_USER", "app")
    t.Setenv("DB_PASS", "")
    t.Setenv("DB_HOST", "db")
    t.Setenv("DB_PORT", "")
    t.Setenv("DB_NAME", "stagepass")
    t.Setenv("APP_ENV", "production")
    t.Setenv("SEED_ON_START", "yes")
    t.Setenv("SHUTDOWN_TIMEOUT", "3s")

    cfg := Load()
    assert.Equal(t, "app", cfg.DBUser)
    assert.Equal(t, "3306", cfg.DBPort)
    assert.True(t, cfg.IsProduction())
    assert.True(t, cfg.SeedOnStart)
    assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestEnvHelpers(t *testing.T) {
    t.Setenv("X_BOOL", "off")
    t.Setenv("X_INT", "nope")
    t.Setenv("X_DUR", "90s")
    assert.False(t, envBool("X_BOOL", true))
    assert.True(t, envBool("X_MISSING", true))
    assert.Equal(t, 7, envInt("X_INT", 7))
    assert.Equal(t, 90*time.Second, envDur("X_DUR", time.Second))
    assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, parseMethods(" get ,HEAD,,"))
}

func TestCORSOriginsList(t *testing.T) {
    t.Setenv("JWT_SECRET", "s")
    t.Setenv("STORAGE_DRIVER", "memory")
    t.Setenv("CORS_ALLOW_ORIGINS", " https://app.example.com, ,http://localhost:5173 ")
    assert.Equal(t, []string{"https://app.example.com", "http://localhost:5173"}, Load().CORSOrigins)
}

func TestRateLimitConfigs(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "-1s")
    t.Setenv("RATE_LIMIT_TTL", "1s")
    rl := LoadRateLimitConfig()
    assert.Equal(t, 1, rl.Capacity)
    assert.Equal(t, time.Second, rl.RefillInterval)
    assert.Equal(t, 5*time.Second, rl.TTL)

    auth := LoadAuthRateLimitConfig()
    assert.Equal(t, 20, auth.Capacity)
    assert.Equal(t, 20, auth.RefillTokens)
    assert.Equal(t, 15*time.Minute, auth.RefillInterval)
    assert.Equal(t, "ip", auth.KeyStrategy)
    assert.Equal(t, "rl:auth", auth.Prefix)
}

func TestLoadCacheConfig(t *testing.T) {
    t.Setenv("CACHE_ENABLED", "false")
    t.Setenv("CACHE_TTL", "")
    c := LoadCacheConfig()
    assert.False(t, c.Enabled)
    assert.Equal(t, 30*time.Second, c.TTL)
    assert.True(t, c.Methods["GET"])
    assert.Equal(t, 1<<20, c.MaxBodyBytes)
}
