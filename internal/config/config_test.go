package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                  "production",
		DBSSLMode:            "require",
		DBSchemaMode:         SchemaModeMigrate,
		JWTSecret:            "secure-secret-at-least-32-chars-long",
		DBPassword:           "secure-password",
		Port:                 "8080",
		ImageMaxUploadSizeMB: 10,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Production baseline", func(c *Config) {}, false},
		{"Production with disable SSL mode", func(c *Config) { c.DBSSLMode = "disable" }, true},
		{"Production with empty SSL mode", func(c *Config) { c.DBSSLMode = "" }, true},
		{"Production with default secret", func(c *Config) { c.JWTSecret = "your-secret-key-change-in-production" }, true},
		{"Production with short secret", func(c *Config) { c.JWTSecret = "short" }, true},
		{"Production with default DB password", func(c *Config) { c.DBPassword = "password" }, true},
		{"Production with auto schema", func(c *Config) { c.DBSchemaMode = SchemaModeAuto }, true},
		{"Development with weak settings", func(c *Config) {
			c.Env = "development"
			c.DBSSLMode = "disable"
			c.JWTSecret = "dev"
			c.DBSchemaMode = SchemaModeAuto
		}, false},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"Non-positive upload size", func(c *Config) { c.ImageMaxUploadSizeMB = 0 }, true},
		{"Unknown schema mode", func(c *Config) { c.DBSchemaMode = "yolo" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_TokenTTL(t *testing.T) {
	c := &Config{}
	assert.Equal(t, time.Hour, c.TokenTTL())

	c.TokenTTLMinutes = 15
	assert.Equal(t, 15*time.Minute, c.TokenTTL())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("PORT")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("PORT", "9191")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "9191", c.Port)
	assert.Equal(t, SchemaModeAuto, c.DBSchemaMode)
	assert.Equal(t, "images", c.ImageDir)
	assert.Equal(t, time.Hour, c.TokenTTL())
}
