package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestApplyYaml(t *testing.T) {
	path := writeConfigFile(t, `
check_interval: 10m
fetch_timeout: 30s
balance_url: https://example.test/saldo/
data_dir: /var/lib/kronevakt
web_addr: ":9090"
`)

	cfg := Config{
		CheckInterval: defaultCheckInterval,
		FetchTimeout:  defaultFetchTimeout,
		BalanceURL:    defaultBalanceURL,
		DataDir:       defaultDataDir,
		WebAddr:       defaultWebAddr,
	}
	require.NoError(t, applyYaml(&cfg, path))

	require.Equal(t, 10*time.Minute, cfg.CheckInterval)
	require.Equal(t, 30*time.Second, cfg.FetchTimeout)
	require.Equal(t, "https://example.test/saldo/", cfg.BalanceURL)
	require.Equal(t, "/var/lib/kronevakt", cfg.DataDir)
	require.Equal(t, ":9090", cfg.WebAddr)
}

func TestApplyYamlPartialOverrideKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, "check_interval: 1m\n")

	cfg := Config{
		CheckInterval: defaultCheckInterval,
		FetchTimeout:  defaultFetchTimeout,
		BalanceURL:    defaultBalanceURL,
		DataDir:       defaultDataDir,
		WebAddr:       defaultWebAddr,
	}
	require.NoError(t, applyYaml(&cfg, path))

	require.Equal(t, time.Minute, cfg.CheckInterval)
	require.Equal(t, defaultFetchTimeout, cfg.FetchTimeout)
	require.Equal(t, defaultBalanceURL, cfg.BalanceURL)
}

func TestApplyYamlMissingFile(t *testing.T) {
	cfg := Config{}
	require.Error(t, applyYaml(&cfg, filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestApplyYamlInvalidContent(t *testing.T) {
	path := writeConfigFile(t, "check_interval: [broken\n")
	cfg := Config{}
	require.Error(t, applyYaml(&cfg, path))
}
