package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fop-engine/internal/config"
)

func TestPoolConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:             "postgres",
		Host:               "db.local",
		Port:               5433,
		Name:               "fop",
		User:               "owlcms",
		Password:           "p@ss:w/rd",
		MaxConnections:     8,
		MaxIdleConnections: 2,
	}

	pc, err := PoolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "db.local", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
	assert.Equal(t, "fop", pc.ConnConfig.Database)
	assert.Equal(t, "owlcms", pc.ConnConfig.User)
	assert.Equal(t, "p@ss:w/rd", pc.ConnConfig.Password)
	assert.Nil(t, pc.ConnConfig.TLSConfig, "ssl mode defaults to disable")
	assert.Equal(t, int32(8), pc.MaxConns)
	assert.Equal(t, int32(2), pc.MinConns)
	assert.Equal(t, 30*time.Minute, pc.MaxConnLifetime)
}

func TestPoolConfigIdleCappedByMax(t *testing.T) {
	pc, err := PoolConfig(&config.DatabaseConfig{
		Host: "localhost", Port: 5432, Name: "fop", User: "u",
		MaxConnections: 3, MaxIdleConnections: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), pc.MinConns)
}
