package service

import (
	"context"
	"strings"

	apperrors "wainbox/internal/errors"
	"wainbox/internal/models"
	"wainbox/internal/tracing"
	"wainbox/internal/vault"
	"wainbox/pkg/graph"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// ProvisioningService connects a tenant to a WhatsApp Business account:
// authorization code exchange, optional metadata enrichment, and encrypted
// credential storage.
type ProvisioningService interface {
	Provision(ctx context.Context, tenantID, code, wabaID, phoneNumberID string) (*models.ProvisionResult, error)
	Disconnect(ctx context.Context, tenantID string) error
	ActiveAccount(ctx context.Context, tenantID string) (*models.TenantAccount, error)
}

type provisioningService struct {
	graph  graph.Client
	vault  *vault.Vault
	store  AccountStore
	logger *logrus.Logger
}

func NewProvisioningService(graphClient graph.Client, v *vault.Vault, store AccountStore, logger *logrus.Logger) ProvisioningService {
	return &provisioningService{
		graph:  graphClient,
		vault:  v,
		store:  store,
		logger: logger,
	}
}

// Provision exchanges the authorization code, enriches the record with
// channel metadata when ids were supplied, and atomically replaces the
// tenant's active credential record. The raw access token never appears in
// the result; enrichment failures are surfaced distinctly and do not void
// possession of the token.
func (s *provisioningService) Provision(ctx context.Context, tenantID, code, wabaID, phoneNumberID string) (*models.ProvisionResult, error) {
	if tenantID == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidationFailed, "tenant id is required")
	}
	if code == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidationFailed, "authorization code is required")
	}

	ctx, span := tracing.StartSpan(ctx, "provisioning.provision",
		attribute.String("tenant.id", tenantID),
	)
	defer span.End()

	accessToken, err := s.graph.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			LogFieldTenantID:  tenantID,
			LogFieldErrorCode: string(apperrors.GetCode(err)),
		}).WithError(err).Error("Authorization code exchange failed")
		return nil, err
	}

	result := &models.ProvisionResult{}

	// Enrichment is best effort: the token is already ours, and channel
	// metadata can be refreshed later. Failures are reported to the
	// caller separately from exchange failures; when both lookups fail,
	// both messages are kept.
	var enrichmentErrs []string
	if wabaID != "" {
		if details, enrichErr := s.graph.GetBusinessAccount(ctx, wabaID, accessToken); enrichErr != nil {
			enrichmentErrs = append(enrichmentErrs, apperrors.GetMessage(enrichErr))
			s.logger.WithField(LogFieldWABAID, wabaID).WithError(enrichErr).Warn("Business account enrichment failed")
		} else {
			result.WABADetails = details
		}
	}
	if phoneNumberID != "" {
		if details, enrichErr := s.graph.GetPhoneNumber(ctx, phoneNumberID, accessToken); enrichErr != nil {
			enrichmentErrs = append(enrichmentErrs, apperrors.GetMessage(enrichErr))
			s.logger.WithField(LogFieldPhoneNumberID, phoneNumberID).WithError(enrichErr).Warn("Phone number enrichment failed")
		} else {
			result.PhoneDetails = details
		}
	}
	result.EnrichmentError = strings.Join(enrichmentErrs, "; ")

	encryptedToken, err := s.vault.EncryptToken(accessToken)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to encrypt access token")
	}

	account := &models.TenantAccount{
		TenantID:      tenantID,
		WABAID:        wabaID,
		PhoneNumberID: phoneNumberID,
		AccessToken:   encryptedToken,
	}
	if result.WABADetails != nil {
		account.WABAName = result.WABADetails.Name
		account.WABACurrency = result.WABADetails.Currency
		account.WABATimezoneID = result.WABADetails.TimezoneID
	}
	if result.PhoneDetails != nil {
		account.PhoneNumber = result.PhoneDetails.DisplayPhoneNumber
		account.VerifiedName = result.PhoneDetails.VerifiedName
		account.CodeVerificationStatus = result.PhoneDetails.CodeVerificationStatus
		account.QualityRating = result.PhoneDetails.QualityRating
	}

	if err := s.store.ReplaceActiveAccount(ctx, account); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to store tenant account")
	}

	s.logger.WithFields(logrus.Fields{
		LogFieldTenantID:  tenantID,
		LogFieldAccountID: account.ID,
	}).Info("Tenant account provisioned")

	result.TokenStored = true
	return result, nil
}

// Disconnect soft-deletes the tenant's active credential records.
func (s *provisioningService) Disconnect(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return apperrors.New(apperrors.ErrCodeValidationFailed, "tenant id is required")
	}

	if err := s.store.DeactivateAccounts(ctx, tenantID); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "failed to deactivate accounts")
	}

	s.logger.WithField(LogFieldTenantID, tenantID).Info("Tenant account disconnected")
	return nil
}

// ActiveAccount returns the tenant's active record, or nil when the tenant
// has none.
func (s *provisioningService) ActiveAccount(ctx context.Context, tenantID string) (*models.TenantAccount, error) {
	if tenantID == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidationFailed, "tenant id is required")
	}

	account, err := s.store.GetActiveAccountByTenant(ctx, tenantID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "account lookup failed")
	}
	return account, nil
}
