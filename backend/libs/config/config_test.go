package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	HTTP struct {
		Port string `yaml:"port" env:"SAMPLE_PORT"`
	} `yaml:"http"`
	Backend struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"backend"`
	Origins []string `yaml:"origins" env:"SAMPLE_ORIGINS"`
	Secret  string   `yaml:"secret" env:"-"`
	Debug   bool     `yaml:"debug"`
}

func envOf(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: \"9000\"\nbackend:\n  url: http://file\n  timeout: 3s\nsecret: s3\n"), 0o600))

	var cfg sample
	err := LoadConfigWithLookup(&cfg, path, envOf(map[string]string{
		"SAMPLE_PORT":     "9100",
		"BACKEND_TIMEOUT": "750ms",
		"SAMPLE_ORIGINS":  "a, b,,c",
		"SECRET":          "ignored",
		"DEBUG":           "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.HTTP.Port)
	assert.Equal(t, "http://file", cfg.Backend.URL)
	assert.Equal(t, 750*time.Millisecond, cfg.Backend.Timeout)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Origins)
	assert.Equal(t, "s3", cfg.Secret)
	assert.True(t, cfg.Debug)
}

func TestLoadConfigRejectsBadInput(t *testing.T) {
	var cfg sample
	assert.Error(t, LoadConfigWithLookup(cfg, "", envOf(nil)))
	assert.Error(t, LoadConfigWithLookup(nil, "", envOf(nil)))

	err := LoadConfigWithLookup(&cfg, "", envOf(map[string]string{"DEBUG": "maybe"}))
	assert.ErrorContains(t, err, "DEBUG")

	err = LoadConfigWithLookup(&cfg, filepath.Join(t.TempDir(), "missing.yaml"), envOf(nil))
	assert.ErrorContains(t, err, "read file")
}
