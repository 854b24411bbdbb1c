package service

import (
	"context"

	"wainbox/internal/models"
)

// AccountStore is the persistence surface for tenant credential records.
// Implemented by *database.Database.
type AccountStore interface {
	GetActiveAccountByPhoneNumberID(ctx context.Context, phoneNumberID string) (*models.TenantAccount, error)
	GetActiveAccountByTenant(ctx context.Context, tenantID string) (*models.TenantAccount, error)
	ReplaceActiveAccount(ctx context.Context, account *models.TenantAccount) error
	DeactivateAccounts(ctx context.Context, tenantID string) error
}

// MessageStore is the persistence surface for inbound messages and their
// delivery statuses. Implemented by *database.Database.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *models.Message) error
	UpdateMessageStatus(ctx context.Context, tenantAccountID int64, platformMessageID string, status models.MessageStatus) error
	ListMessages(ctx context.Context, tenantAccountID int64, limit int) ([]*models.Message, error)
}
