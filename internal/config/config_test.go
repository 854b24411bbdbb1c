package config

import (
	"os"
	"path/filepath"
	"testing"

	"wainbox/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredSecrets(t *testing.T) {
	t.Setenv("WAINBOX_APP_ID", "123456789")
	t.Setenv("WAINBOX_APP_SECRET", "a-sufficiently-long-app-secret")
	t.Setenv("WAINBOX_WEBHOOK_VERIFY_TOKEN", "a-verify-token-of-decent-size")
	t.Setenv("WAINBOX_TOKEN_PASSPHRASE", "correct-horse-battery-staple-with-length")
	t.Setenv("WAINBOX_API_KEY", "a-management-api-key")
}

func writeConfigFile(t *testing.T, content string) string {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredSecrets(t)
	path := writeConfigFile(t, `{"database":{"path":"/var/lib/wainbox/wainbox.db"}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, constants.DefaultServerReadTimeoutSec, cfg.Server.ReadTimeoutSec)
	assert.Equal(t, constants.DefaultGraphBaseURL, cfg.Graph.BaseURL)
	assert.Equal(t, constants.DefaultGraphAPIVersion, cfg.Graph.APIVersion)
	assert.Equal(t, constants.DefaultGraphTimeoutSec, cfg.Graph.TimeoutSec)
	assert.Equal(t, constants.DefaultBackoffInitialMs, cfg.Retry.InitialBackoffMs)
	assert.Equal(t, constants.DefaultDatabaseRetryAttempts, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRate)
	assert.Equal(t, "wainbox", cfg.Tracing.ServiceName)
}

func TestLoadConfigExplicitValues(t *testing.T) {
	setRequiredSecrets(t)
	path := writeConfigFile(t, `{
		"log_level": "debug",
		"server": {"port": 9090, "read_timeout_sec": 5},
		"graph": {"base_url": "https://graph.example.com", "api_version": "v21.0", "timeout_sec": 3},
		"webhook": {"signature_required": true},
		"database": {"path": "/tmp/wainbox.db"},
		"tracing": {"enabled": true, "sampleRate": 0.25}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Server.ReadTimeoutSec)
	assert.Equal(t, "https://graph.example.com", cfg.Graph.BaseURL)
	assert.Equal(t, "v21.0", cfg.Graph.APIVersion)
	assert.True(t, cfg.Webhook.SignatureRequired)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRate)
}

func TestLoadConfigSecretsFromEnvironment(t *testing.T) {
	setRequiredSecrets(t)
	path := writeConfigFile(t, `{"database":{"path":"/tmp/wainbox.db"}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "123456789", cfg.Graph.AppID)
	assert.Equal(t, "a-sufficiently-long-app-secret", cfg.Graph.AppSecret)
	assert.Equal(t, "a-verify-token-of-decent-size", cfg.Webhook.VerifyToken)
	assert.Equal(t, "correct-horse-battery-staple-with-length", cfg.Vault.Passphrase)
	assert.Equal(t, "a-management-api-key", cfg.Server.APIKey)
}

func TestLoadConfigMissingSecrets(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		wantErr error
	}{
		{"app id", "WAINBOX_APP_ID", ErrMissingAppID},
		{"app secret", "WAINBOX_APP_SECRET", ErrMissingAppSecret},
		{"verify token", "WAINBOX_WEBHOOK_VERIFY_TOKEN", ErrMissingVerifyToken},
		{"passphrase", "WAINBOX_TOKEN_PASSPHRASE", ErrMissingPassphrase},
		{"api key", "WAINBOX_API_KEY", ErrMissingAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredSecrets(t)
			t.Setenv(tt.unset, "")
			path := writeConfigFile(t, `{"database":{"path":"/tmp/wainbox.db"}}`)

			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadConfigWeakSecrets(t *testing.T) {
	t.Run("short passphrase", func(t *testing.T) {
		setRequiredSecrets(t)
		t.Setenv("WAINBOX_TOKEN_PASSPHRASE", "too-short")
		path := writeConfigFile(t, `{"database":{"path":"/tmp/wainbox.db"}}`)

		_, err := LoadConfig(path)
		assert.ErrorIs(t, err, ErrPassphraseTooShort)
	})

	t.Run("short verify token", func(t *testing.T) {
		setRequiredSecrets(t)
		t.Setenv("WAINBOX_WEBHOOK_VERIFY_TOKEN", "short")
		path := writeConfigFile(t, `{"database":{"path":"/tmp/wainbox.db"}}`)

		_, err := LoadConfig(path)
		assert.ErrorIs(t, err, ErrVerifyTokenTooShort)
	})

	t.Run("short api key", func(t *testing.T) {
		setRequiredSecrets(t)
		t.Setenv("WAINBOX_API_KEY", "short")
		path := writeConfigFile(t, `{"database":{"path":"/tmp/wainbox.db"}}`)

		_, err := LoadConfig(path)
		assert.ErrorIs(t, err, ErrAPIKeyTooShort)
	})
}

func TestLoadConfigMissingDBPath(t *testing.T) {
	setRequiredSecrets(t)
	path := writeConfigFile(t, `{}`)

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrMissingDBPath)
}

func TestLoadConfigEnvironmentOverridesFile(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("WAINBOX_GRAPH_BASE_URL", "https://graph.override.example")
	t.Setenv("WAINBOX_DB_PATH", "/data/override.db")
	path := writeConfigFile(t, `{
		"graph": {"base_url": "https://graph.file.example"},
		"database": {"path": "/tmp/file.db"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://graph.override.example", cfg.Graph.BaseURL)
	assert.Equal(t, "/data/override.db", cfg.Database.Path)
}

func TestLoadConfigInvalidFile(t *testing.T) {
	setRequiredSecrets(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeConfigFile(t, `{not json`)
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("path traversal", func(t *testing.T) {
		_, err := LoadConfig("../../etc/config.json")
		assert.Error(t, err)
	})
}

func TestLoadConfigInvalidSampleRate(t *testing.T) {
	setRequiredSecrets(t)
	path := writeConfigFile(t, `{
		"database": {"path": "/tmp/wainbox.db"},
		"tracing": {"sampleRate": 3.5}
	}`)

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrInvalidTracingSample)
}
