package database

import (
	"context"
	"database/sql"
	"fmt"

	"wainbox/internal/models"
)

const accountColumns = `
	id, tenant_id, waba_id, phone_number_id, access_token,
	waba_name, waba_currency, waba_timezone_id, phone_number,
	verified_name, code_verification_status, quality_rating,
	is_active, created_at, updated_at
`

// GetActiveAccountByPhoneNumberID returns nil when no active record matches.
func (d *Database) GetActiveAccountByPhoneNumberID(ctx context.Context, phoneNumberID string) (*models.TenantAccount, error) {
	query := `SELECT` + accountColumns + `
		FROM tenant_accounts
		WHERE phone_number_id = ? AND is_active = TRUE
		ORDER BY id DESC
		LIMIT 1
	`
	return d.scanAccount(d.db.QueryRowContext(ctx, query, phoneNumberID))
}

// GetActiveAccountByTenant returns nil when the tenant has no active record.
func (d *Database) GetActiveAccountByTenant(ctx context.Context, tenantID string) (*models.TenantAccount, error) {
	query := `SELECT` + accountColumns + `
		FROM tenant_accounts
		WHERE tenant_id = ? AND is_active = TRUE
		ORDER BY id DESC
		LIMIT 1
	`
	return d.scanAccount(d.db.QueryRowContext(ctx, query, tenantID))
}

// ReplaceActiveAccount deactivates every active record for the tenant and
// inserts the replacement as one transaction, so concurrent provisioning
// attempts cannot leave two active rows or a window with none.
func (d *Database) ReplaceActiveAccount(ctx context.Context, account *models.TenantAccount) error {
	return retryableDBOperationNoReturn(ctx, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		if _, err := tx.ExecContext(ctx, `
			UPDATE tenant_accounts
			SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP
			WHERE tenant_id = ? AND is_active = TRUE
		`, account.TenantID); err != nil {
			return fmt.Errorf("failed to deactivate existing accounts: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO tenant_accounts (
				tenant_id, waba_id, phone_number_id, access_token,
				waba_name, waba_currency, waba_timezone_id, phone_number,
				verified_name, code_verification_status, quality_rating, is_active
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE)
		`,
			account.TenantID,
			account.WABAID,
			account.PhoneNumberID,
			account.AccessToken,
			account.WABAName,
			account.WABACurrency,
			account.WABATimezoneID,
			account.PhoneNumber,
			account.VerifiedName,
			account.CodeVerificationStatus,
			account.QualityRating,
		)
		if err != nil {
			return fmt.Errorf("failed to insert account: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read inserted account id: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit account replacement: %w", err)
		}

		account.ID = id
		account.IsActive = true
		return nil
	}, "replace active account")
}

// DeactivateAccounts soft-deletes every active record for the tenant.
func (d *Database) DeactivateAccounts(ctx context.Context, tenantID string) error {
	return retryableDBOperationNoReturn(ctx, func() error {
		_, err := d.db.ExecContext(ctx, `
			UPDATE tenant_accounts
			SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP
			WHERE tenant_id = ? AND is_active = TRUE
		`, tenantID)
		return err
	}, "deactivate accounts")
}

// ActiveAccountCount reports how many active records the tenant holds.
// The invariant is at most one.
func (d *Database) ActiveAccountCount(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tenant_accounts
		WHERE tenant_id = ? AND is_active = TRUE
	`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active accounts: %w", err)
	}
	return count, nil
}

func (d *Database) scanAccount(row *sql.Row) (*models.TenantAccount, error) {
	account := &models.TenantAccount{}
	err := row.Scan(
		&account.ID,
		&account.TenantID,
		&account.WABAID,
		&account.PhoneNumberID,
		&account.AccessToken,
		&account.WABAName,
		&account.WABACurrency,
		&account.WABATimezoneID,
		&account.PhoneNumber,
		&account.VerifiedName,
		&account.CodeVerificationStatus,
		&account.QualityRating,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant account: %w", err)
	}
	return account, nil
}
