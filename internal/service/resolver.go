package service

import (
	"context"

	apperrors "wainbox/internal/errors"
	"wainbox/internal/models"
)

// TenantResolver maps a platform-assigned phone number id to the single
// active tenant credential record that owns it.
type TenantResolver interface {
	ResolveByPhoneNumberID(ctx context.Context, phoneNumberID string) (*models.TenantAccount, error)
}

type tenantResolver struct {
	store AccountStore
}

func NewTenantResolver(store AccountStore) TenantResolver {
	return &tenantResolver{store: store}
}

// ResolveByPhoneNumberID fails with TENANT_NOT_FOUND when no active record
// matches. Retrying cannot change the outcome without out-of-band
// remediation, so callers drop the event instead.
func (r *tenantResolver) ResolveByPhoneNumberID(ctx context.Context, phoneNumberID string) (*models.TenantAccount, error) {
	if phoneNumberID == "" {
		return nil, apperrors.New(apperrors.ErrCodeTenantNotFound, "missing phone number id")
	}

	account, err := r.store.GetActiveAccountByPhoneNumberID(ctx, phoneNumberID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseQuery, "tenant lookup failed")
	}
	if account == nil {
		return nil, apperrors.New(apperrors.ErrCodeTenantNotFound, "no active account for phone number id").
			WithContext(LogFieldPhoneNumberID, phoneNumberID)
	}

	return account, nil
}
