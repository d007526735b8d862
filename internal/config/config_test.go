package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, 200*time.Second, cfg.NavigationTimeout)
	assert.Equal(t, []string{"github.com"}, cfg.AllowedHosts)
	assert.True(t, cfg.Headless)
	assert.NoError(t, cfg.Validate())

	// The defaults slice must not be shared with callers.
	cfg.AllowedHosts[0] = "example.org"
	assert.Equal(t, []string{"github.com"}, DefaultAllowedHosts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero port", mutate: func(c *Config) { c.Port = 0 }, wantErr: ErrInvalidPort},
		{name: "port too large", mutate: func(c *Config) { c.Port = 70000 }, wantErr: ErrInvalidPort},
		{name: "zero timeout", mutate: func(c *Config) { c.NavigationTimeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative width", mutate: func(c *Config) { c.WindowWidth = -1 }, wantErr: ErrInvalidViewport},
		{name: "zero height", mutate: func(c *Config) { c.WindowHeight = 0 }, wantErr: ErrInvalidViewport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAddr(t *testing.T) {
	cfg := Default()
	cfg.Port = 8080
	assert.Equal(t, ":8080", cfg.Addr())
}
