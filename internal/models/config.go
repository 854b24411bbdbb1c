package models

type Config struct {
	LogLevel string         `json:"log_level"`
	Server   ServerConfig   `json:"server"`
	Graph    GraphConfig    `json:"graph"`
	Webhook  WebhookConfig  `json:"webhook"`
	Database DatabaseConfig `json:"database"`
	Vault    VaultConfig    `json:"vault"`
	Retry    RetryConfig    `json:"retry"`
	Tracing  TracingConfig  `json:"tracing"`
}

type ServerConfig struct {
	Port            int    `json:"port"`
	ReadTimeoutSec  int    `json:"read_timeout_sec"`
	WriteTimeoutSec int    `json:"write_timeout_sec"`
	IdleTimeoutSec  int    `json:"idle_timeout_sec"`
	APIKey          string `json:"-"`
}

type GraphConfig struct {
	BaseURL    string `json:"base_url"`
	APIVersion string `json:"api_version"`
	TimeoutSec int    `json:"timeout_sec"`
	AppID      string `json:"-"`
	AppSecret  string `json:"-"`
}

type WebhookConfig struct {
	// VerifyToken is compared against hub.verify_token during the
	// subscription handshake. Environment-provided only.
	VerifyToken string `json:"-"`
	// SignatureRequired enforces X-Hub-Signature-256 validation on
	// delivery requests. The Graph app secret is the HMAC key.
	SignatureRequired bool `json:"signature_required"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type VaultConfig struct {
	Passphrase string `json:"-"`
}

type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"serviceName"`
	ServiceVersion string  `json:"serviceVersion"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate"`
	UseStdout      bool    `json:"useStdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
