package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"wainbox/internal/constants"
	apperrors "wainbox/internal/errors"
	"wainbox/internal/migrations"
	"wainbox/internal/models"
	"wainbox/internal/security"

	sqlite3 "github.com/mattn/go-sqlite3"
)

type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to read schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// SaveMessage inserts one message row. A uniqueness violation on
// (tenant_account_id, platform_message_id) is reported as a DUPLICATE_EVENT
// error; the constraint is the only arbiter of concurrent duplicate
// deliveries, there is no application-level locking.
func (d *Database) SaveMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (
			tenant_account_id, platform_message_id, direction,
			from_phone_number, to_phone_number, message_type,
			message_content, raw_payload, status, sent_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := retryableDBOperationNoReturn(ctx, func() error {
		_, execErr := d.db.ExecContext(ctx, query,
			msg.TenantAccountID,
			msg.PlatformMessageID,
			msg.Direction,
			msg.FromPhoneNumber,
			msg.ToPhoneNumber,
			msg.Type,
			msg.Content,
			msg.RawPayload,
			msg.Status,
			msg.SentAt,
		)
		return execErr
	}, "save message")

	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Wrap(err, apperrors.ErrCodeDuplicateEvent, "message already ingested").
				WithContext("platform_message_id", msg.PlatformMessageID)
		}
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

// UpdateMessageStatus applies a delivery status to an existing message row.
// A missing target is a silent no-op: the status may precede the content
// delivery or belong to an account this store does not track.
func (d *Database) UpdateMessageStatus(ctx context.Context, tenantAccountID int64, platformMessageID string, status models.MessageStatus) error {
	query := `
		UPDATE messages
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_account_id = ? AND platform_message_id = ?
	`

	err := retryableDBOperationNoReturn(ctx, func() error {
		_, execErr := d.db.ExecContext(ctx, query, status, tenantAccountID, platformMessageID)
		return execErr
	}, "update message status")

	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	return nil
}

// GetMessageByPlatformID returns nil when no row matches.
func (d *Database) GetMessageByPlatformID(ctx context.Context, tenantAccountID int64, platformMessageID string) (*models.Message, error) {
	query := `
		SELECT id, tenant_account_id, platform_message_id, direction,
		       from_phone_number, to_phone_number, message_type,
		       message_content, raw_payload, status, sent_at,
		       created_at, updated_at
		FROM messages
		WHERE tenant_account_id = ? AND platform_message_id = ?
	`

	msg := &models.Message{}
	err := d.db.QueryRowContext(ctx, query, tenantAccountID, platformMessageID).Scan(
		&msg.ID,
		&msg.TenantAccountID,
		&msg.PlatformMessageID,
		&msg.Direction,
		&msg.FromPhoneNumber,
		&msg.ToPhoneNumber,
		&msg.Type,
		&msg.Content,
		&msg.RawPayload,
		&msg.Status,
		&msg.SentAt,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// ListMessages returns the account's most recent messages, newest first.
func (d *Database) ListMessages(ctx context.Context, tenantAccountID int64, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = constants.DefaultMessageListLimit
	} else if limit > constants.MaxMessageListLimit {
		limit = constants.MaxMessageListLimit
	}

	query := `
		SELECT id, tenant_account_id, platform_message_id, direction,
		       from_phone_number, to_phone_number, message_type,
		       message_content, raw_payload, status, sent_at,
		       created_at, updated_at
		FROM messages
		WHERE tenant_account_id = ?
		ORDER BY sent_at DESC, id DESC
		LIMIT ?
	`

	rows, err := d.db.QueryContext(ctx, query, tenantAccountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		if err := rows.Scan(
			&msg.ID,
			&msg.TenantAccountID,
			&msg.PlatformMessageID,
			&msg.Direction,
			&msg.FromPhoneNumber,
			&msg.ToPhoneNumber,
			&msg.Type,
			&msg.Content,
			&msg.RawPayload,
			&msg.Status,
			&msg.SentAt,
			&msg.CreatedAt,
			&msg.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
