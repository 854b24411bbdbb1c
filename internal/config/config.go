package config

import (
	"encoding/json"
	"fmt"
	"os"

	"wainbox/internal/constants"
	"wainbox/internal/models"
	"wainbox/internal/security"
)

var (
	ErrMissingDBPath        = models.ConfigError{Message: "missing database path"}
	ErrMissingAppID         = models.ConfigError{Message: "missing Graph app id (set WAINBOX_APP_ID)"}
	ErrMissingAppSecret     = models.ConfigError{Message: "missing Graph app secret (set WAINBOX_APP_SECRET)"}
	ErrMissingVerifyToken   = models.ConfigError{Message: "missing webhook verify token (set WAINBOX_WEBHOOK_VERIFY_TOKEN)"}
	ErrMissingPassphrase    = models.ConfigError{Message: "missing token vault passphrase (set WAINBOX_TOKEN_PASSPHRASE)"}
	ErrMissingAPIKey        = models.ConfigError{Message: "missing management API key (set WAINBOX_API_KEY)"}
	ErrPassphraseTooShort   = models.ConfigError{Message: fmt.Sprintf("token vault passphrase must be at least %d characters long", constants.MinPassphraseLength)}
	ErrVerifyTokenTooShort  = models.ConfigError{Message: fmt.Sprintf("webhook verify token must be at least %d characters long", constants.MinSecretLength)}
	ErrAPIKeyTooShort       = models.ConfigError{Message: fmt.Sprintf("management API key must be at least %d characters long", constants.MinSecretLength)}
	ErrInvalidTracingSample = models.ConfigError{Message: "tracing sample rate must be between 0 and 1"}
)

// LoadConfig reads the JSON configuration file, applies defaults and
// environment overrides, and validates the result. Secrets never live in the
// file; they are environment-only and missing ones are fatal.
func LoadConfig(path string) (*models.Config, error) {
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validateSecrets(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}

	if c.Graph.BaseURL == "" {
		c.Graph.BaseURL = constants.DefaultGraphBaseURL
	}
	if c.Graph.APIVersion == "" {
		c.Graph.APIVersion = constants.DefaultGraphAPIVersion
	}
	if c.Graph.TimeoutSec <= 0 {
		c.Graph.TimeoutSec = constants.DefaultGraphTimeoutSec
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultBackoffInitialMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultDatabaseRetryAttempts
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return ErrInvalidTracingSample
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "wainbox"
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if appID := os.Getenv("WAINBOX_APP_ID"); appID != "" {
		c.Graph.AppID = appID
	}
	if secret := os.Getenv("WAINBOX_APP_SECRET"); secret != "" {
		c.Graph.AppSecret = secret
	}
	if token := os.Getenv("WAINBOX_WEBHOOK_VERIFY_TOKEN"); token != "" {
		c.Webhook.VerifyToken = token
	}
	if passphrase := os.Getenv("WAINBOX_TOKEN_PASSPHRASE"); passphrase != "" {
		c.Vault.Passphrase = passphrase
	}
	if key := os.Getenv("WAINBOX_API_KEY"); key != "" {
		c.Server.APIKey = key
	}

	if url := os.Getenv("WAINBOX_GRAPH_BASE_URL"); url != "" {
		c.Graph.BaseURL = url
	}
	if path := os.Getenv("WAINBOX_DB_PATH"); path != "" {
		c.Database.Path = path
	}
}

// validateSecrets runs after environment overrides. Every credential the
// gateway depends on must be present at startup; a missing one is a
// deployment error, not something to limp along without.
func validateSecrets(c *models.Config) error {
	if c.Graph.AppID == "" {
		return ErrMissingAppID
	}
	if c.Graph.AppSecret == "" {
		return ErrMissingAppSecret
	}
	if c.Webhook.VerifyToken == "" {
		return ErrMissingVerifyToken
	}
	if c.Vault.Passphrase == "" {
		return ErrMissingPassphrase
	}
	if c.Server.APIKey == "" {
		return ErrMissingAPIKey
	}

	if len(c.Vault.Passphrase) < constants.MinPassphraseLength {
		return ErrPassphraseTooShort
	}
	if len(c.Webhook.VerifyToken) < constants.MinSecretLength {
		return ErrVerifyTokenTooShort
	}
	if len(c.Server.APIKey) < constants.MinSecretLength {
		return ErrAPIKeyTooShort
	}

	return nil
}
