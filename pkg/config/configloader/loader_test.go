package configloader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Server struct {
		Port int `koanf:"port"`
	} `koanf:"server"`
	Storage struct {
		Dir     string        `koanf:"dir"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"storage"`
}

func (c *testConfig) Validate() error {
	if c.Server.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWithOptions_Precedence(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "config.yaml", "server:\n  port: 8080\nstorage:\n  dir: ./from-yaml\n  timeout: 1s\n")
	envPath := writeFile(t, dir, ".env", "TESTSVC_STORAGE_DIR=./from-dotenv\nOTHER_VALUE=ignored\n")
	t.Setenv("TESTSVC_SERVER_PORT", "9090")

	cfg, err := LoadWithOptions[*testConfig]("testsvc", Options{ConfigFile: yamlPath, EnvFile: envPath})

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port, "process env wins over yaml")
	assert.Equal(t, "./from-dotenv", cfg.Storage.Dir, ".env wins over yaml")
	assert.Equal(t, time.Second, cfg.Storage.Timeout)
}

func TestLoadWithOptions_MissingFilesAreIgnored(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TESTSVC_SERVER_PORT", "8081")

	cfg, err := LoadWithOptions[*testConfig]("testsvc", Options{
		ConfigFile: filepath.Join(dir, "absent.yaml"),
		EnvFile:    filepath.Join(dir, "absent.env"),
	})

	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
}

func TestLoadWithOptions_ValidationFailure(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "config.yaml", "storage:\n  dir: ./images\n")

	_, err := LoadWithOptions[*testConfig]("testsvc", Options{ConfigFile: yamlPath})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoad_ConfigFileOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "custom.yaml", "server:\n  port: 7070\n")
	t.Setenv("TESTSVC_CONFIG_FILE", yamlPath)

	cfg, err := Load[*testConfig]("testsvc")

	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}
