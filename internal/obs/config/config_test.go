package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWithPath(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Relay.Port)
	assert.Equal(t, 9875, cfg.Beacon.Port)
	assert.Equal(t, 9000, cfg.Workstation.LocalWSPort)
	assert.Equal(t, "sqlite", cfg.Persistence.Driver)
	assert.Equal(t, 9878, cfg.MCP.Port())
}

func TestMCPPortByEnv(t *testing.T) {
	tests := []struct {
		env  string
		want int
	}{
		{"release", 9876},
		{"stage", 9877},
		{"dev", 9878},
		{"test", 9879},
		{"unknown", 9878},
	}
	for _, tt := range tests {
		m := MCPConfig{Env: tt.env, ReleasePort: 9876, StagePort: 9877, DevPort: 9878, TestPort: 9879}
		assert.Equal(t, tt.want, m.Port())
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := &Config{
		Relay:       RelayConfig{Port: 70000, ClientIndexPoolSize: 16},
		Beacon:      BeaconConfig{Port: 9875},
		Persistence: PersistenceConfig{Driver: "sqlite"},
		Logging:     LoggingConfig{Level: "info", Format: "text"},
	}
	assert.Error(t, validate(cfg))
}
