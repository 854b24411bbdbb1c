package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"wainbox/internal/database"
	apperrors "wainbox/internal/errors"
	"wainbox/internal/models"
	"wainbox/internal/service"
	"wainbox/internal/vault"
	"wainbox/pkg/graph"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPassphrase  = "integration-test-passphrase-with-length"
	testVerifyToken = "integration-verify-token"
)

type env struct {
	db           *database.Database
	vault        *vault.Vault
	graphServer  *httptest.Server
	ingestion    service.IngestionService
	provisioning service.ProvisioningService
}

// newEnv wires real storage, crypto and services against a fake Graph API.
// The schema is loaded from scripts/migrations via the package's relative
// search path.
func newEnv(t *testing.T) *env {
	tmpDir := t.TempDir()

	db, err := database.New(filepath.Join(tmpDir, "wainbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	v, err := vault.New(testPassphrase)
	require.NoError(t, err)

	graphMux := http.NewServeMux()
	graphMux.HandleFunc("/v23.0/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("code") == "bad-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid verification code format.","type":"OAuthException","code":100}}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"EAAG-integration-token","token_type":"bearer"}`))
	})
	graphMux.HandleFunc("/v23.0/waba-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"waba-1","name":"Acme Inc","currency":"USD","timezone_id":"1"}`))
	})
	graphMux.HandleFunc("/v23.0/pni-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"pni-1","display_phone_number":"15551239999","verified_name":"Acme Support","code_verification_status":"VERIFIED","quality_rating":"GREEN"}`))
	})
	graphServer := httptest.NewServer(graphMux)
	t.Cleanup(graphServer.Close)

	graphClient := graph.NewClient(graph.ClientConfig{
		BaseURL:    graphServer.URL,
		APIVersion: "v23.0",
		AppID:      "app-123",
		AppSecret:  "app-secret",
		TimeoutSec: 2,
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	resolver := service.NewTenantResolver(db)

	return &env{
		db:           db,
		vault:        v,
		graphServer:  graphServer,
		ingestion:    service.NewIngestionService(resolver, db, testVerifyToken, logger),
		provisioning: service.NewProvisioningService(graphClient, v, db, logger),
	}
}

func webhookPayload(t *testing.T, raw string) *models.WebhookPayload {
	var payload models.WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return &payload
}

const textDeliveryJSON = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"id": "waba-1",
		"changes": [{
			"field": "messages",
			"value": {
				"messaging_product": "whatsapp",
				"metadata": {"display_phone_number": "15551239999", "phone_number_id": "pni-1"},
				"contacts": [{"wa_id": "15551230001", "profile": {"name": "Jane"}}],
				"messages": [{
					"id": "wamid.FLOW001",
					"from": "15551230001",
					"timestamp": "1700000000",
					"type": "text",
					"text": {"body": "Hi"}
				}]
			}
		}]
	}]
}`

const statusDeliveryJSON = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"id": "waba-1",
		"changes": [{
			"field": "messages",
			"value": {
				"messaging_product": "whatsapp",
				"metadata": {"display_phone_number": "15551239999", "phone_number_id": "pni-1"},
				"statuses": [{"id": "wamid.FLOW001", "status": "delivered", "timestamp": "1700000100", "recipient_id": "15551230001"}]
			}
		}]
	}]
}`

func TestProvisionAndIngestFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Connect the tenant.
	result, err := e.provisioning.Provision(ctx, "tenant-1", "auth-code", "waba-1", "pni-1")
	require.NoError(t, err)
	assert.True(t, result.TokenStored)
	assert.Empty(t, result.EnrichmentError)

	account, err := e.db.GetActiveAccountByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "Acme Inc", account.WABAName)
	assert.Equal(t, "15551239999", account.PhoneNumber)

	// The stored token decrypts back to what the Graph API issued.
	plaintext, err := e.vault.DecryptToken(account.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "EAAG-integration-token", plaintext)

	// Inbound text message lands against the provisioned account.
	require.NoError(t, e.ingestion.ProcessEvent(ctx, webhookPayload(t, textDeliveryJSON), []byte(textDeliveryJSON)))

	msg, err := e.db.GetMessageByPlatformID(ctx, account.ID, "wamid.FLOW001")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, models.DirectionInbound, msg.Direction)
	assert.Equal(t, models.MessageStatusReceived, msg.Status)
	assert.JSONEq(t, `{"text":"Hi"}`, msg.Content)

	// The raw delivery is kept byte for byte, including the contact
	// profile the decoded form does not carry through.
	assert.Equal(t, textDeliveryJSON, msg.RawPayload)
	assert.Contains(t, msg.RawPayload, `"profile": {"name": "Jane"}`)

	// Redelivery of the same event changes nothing.
	require.NoError(t, e.ingestion.ProcessEvent(ctx, webhookPayload(t, textDeliveryJSON), []byte(textDeliveryJSON)))
	msgs, err := e.db.ListMessages(ctx, account.ID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	// A later status delivery updates the stored row.
	require.NoError(t, e.ingestion.ProcessEvent(ctx, webhookPayload(t, statusDeliveryJSON), []byte(statusDeliveryJSON)))
	msg, err = e.db.GetMessageByPlatformID(ctx, account.ID, "wamid.FLOW001")
	require.NoError(t, err)
	assert.Equal(t, models.MessageStatusDelivered, msg.Status)
}

func TestCredentialRotationFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.provisioning.Provision(ctx, "tenant-1", "auth-code", "waba-1", "pni-1")
	require.NoError(t, err)

	first, err := e.db.GetActiveAccountByTenant(ctx, "tenant-1")
	require.NoError(t, err)

	// Provisioning again replaces the credential record atomically.
	_, err = e.provisioning.Provision(ctx, "tenant-1", "auth-code", "waba-1", "pni-1")
	require.NoError(t, err)

	count, err := e.db.ActiveAccountCount(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	second, err := e.db.GetActiveAccountByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
}

func TestProvisionBadCodeFlow(t *testing.T) {
	e := newEnv(t)

	_, err := e.provisioning.Provision(context.Background(), "tenant-1", "bad-code", "", "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUpstreamAPI, apperrors.GetCode(err))
	assert.Equal(t, "Invalid verification code format.", apperrors.GetMessage(err))

	count, err := e.db.ActiveAccountCount(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDisconnectFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.provisioning.Provision(ctx, "tenant-1", "auth-code", "waba-1", "pni-1")
	require.NoError(t, err)

	require.NoError(t, e.provisioning.Disconnect(ctx, "tenant-1"))

	// Later deliveries for the disconnected number are dropped, not stored.
	require.NoError(t, e.ingestion.ProcessEvent(ctx, webhookPayload(t, textDeliveryJSON), []byte(textDeliveryJSON)))

	account, err := e.db.GetActiveAccountByTenant(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestVerifySubscriptionFlow(t *testing.T) {
	e := newEnv(t)

	echo, err := e.ingestion.VerifySubscription("subscribe", testVerifyToken, "challenge-1")
	require.NoError(t, err)
	assert.Equal(t, "challenge-1", echo)

	_, err = e.ingestion.VerifySubscription("subscribe", "not-the-token", "challenge-1")
	assert.Error(t, err)
}
