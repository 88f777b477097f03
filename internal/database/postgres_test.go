package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurenix/internal/config"
)

func TestPoolConfig(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:            "db.internal",
		Port:            5433,
		User:            "aurenix",
		Password:        "p@ss word",
		Database:        "shop",
		SSLMode:         "disable",
		MaxOpen:         12,
		MaxIdle:         3,
		ConnMaxLifetime: 20 * time.Minute,
	}

	pc, err := PoolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5433), pc.ConnConfig.Port)
	assert.Equal(t, "p@ss word", pc.ConnConfig.Password)
	assert.Equal(t, "shop", pc.ConnConfig.Database)
	assert.Equal(t, int32(12), pc.MaxConns)
	assert.Equal(t, int32(3), pc.MinConns)
	assert.Equal(t, 20*time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, "aurenix", pc.ConnConfig.RuntimeParams["application_name"])
}

func TestPoolConfigIgnoresIdleAboveMax(t *testing.T) {
	pc, err := PoolConfig(config.PostgresConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p", Database: "d",
		MaxOpen: 2, MaxIdle: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), pc.MaxConns)
	assert.Zero(t, pc.MinConns)
}
