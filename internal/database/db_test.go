package database

import (
	"os"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN("app", "s3cret", "db.local", "3307", "stagepass")

	c, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "app", c.User)
	assert.Equal(t, "s3cret", c.Passwd)
	assert.Equal(t, "db.local:3307", c.Addr)
	assert.Equal(t, "stagepass", c.DBName)
	assert.True(t, c.ParseTime)
	assert.False(t, c.MultiStatements)
}

func TestMigrationURL(t *testing.T) {
	url, err := migrationURL(DSN("app", "", "localhost", "3306", "stagepass"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "mysql://"))

	c, err := mysql.ParseDSN(strings.TrimPrefix(url, "mysql://"))
	require.NoError(t, err)
	assert.True(t, c.MultiStatements)
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_init.up.sql")
	assert.Contains(t, names, "000001_init.down.sql")
}

func TestRunMigrations(t *testing.T) {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set")
	}
	require.NoError(t, RunMigrations(dsn))
	// second run is a no-op
	require.NoError(t, RunMigrations(dsn))
}
