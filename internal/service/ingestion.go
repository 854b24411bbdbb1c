package service

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	apperrors "wainbox/internal/errors"
	"wainbox/internal/models"
	"wainbox/internal/privacy"
	"wainbox/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// IngestionService handles the two-phase webhook contract: the subscription
// handshake and event delivery.
type IngestionService interface {
	VerifySubscription(mode, verifyToken, challenge string) (string, error)
	ProcessEvent(ctx context.Context, payload *models.WebhookPayload, rawPayload []byte) error
}

type ingestionService struct {
	resolver    TenantResolver
	store       MessageStore
	verifyToken string
	logger      *logrus.Logger
}

func NewIngestionService(resolver TenantResolver, store MessageStore, verifyToken string, logger *logrus.Logger) IngestionService {
	return &ingestionService{
		resolver:    resolver,
		store:       store,
		verifyToken: verifyToken,
		logger:      logger,
	}
}

// VerifySubscription echoes the challenge back when the mode is "subscribe"
// and the token matches the configured secret. The comparison is
// constant-time; any mismatch yields the same generic authorization error.
func (s *ingestionService) VerifySubscription(mode, verifyToken, challenge string) (string, error) {
	if s.verifyToken == "" {
		return "", apperrors.New(apperrors.ErrCodeMissingConfig, "webhook verify token is not configured")
	}

	if mode == "subscribe" && hmac.Equal([]byte(verifyToken), []byte(s.verifyToken)) {
		return challenge, nil
	}

	return "", apperrors.New(apperrors.ErrCodeAuthorization, "webhook verification failed")
}

// ProcessEvent runs the delivery pipeline over one webhook payload. The
// rawPayload bytes are the request body exactly as it arrived; they are
// persisted untouched so fields the decoded form does not model survive for
// audit and replay. Entries and changes are processed in delivery order; a
// failure scoped to one entry is logged and never aborts its siblings.
// Cross-delivery ordering is not guaranteed by the platform, which is why
// every persisted effect is idempotent.
func (s *ingestionService) ProcessEvent(ctx context.Context, payload *models.WebhookPayload, rawPayload []byte) error {
	if payload.Object != models.WebhookObjectType {
		s.logger.WithField(LogFieldEvent, payload.Object).Debug("Ignoring non-WhatsApp webhook object")
		return nil
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != models.WebhookFieldMessages {
				continue
			}
			s.processChange(ctx, entry.ID, change, rawPayload)
		}
	}

	return nil
}

func (s *ingestionService) processChange(ctx context.Context, entryID string, change models.WebhookChange, rawPayload []byte) {
	ctx, span := tracing.StartSpan(ctx, "ingestion.process_change",
		attribute.String("webhook.entry_id", entryID),
		attribute.Int("webhook.messages", len(change.Value.Messages)),
		attribute.Int("webhook.statuses", len(change.Value.Statuses)),
	)
	defer span.End()

	phoneNumberID := change.Value.Metadata.PhoneNumberID

	account, err := s.resolver.ResolveByPhoneNumberID(ctx, phoneNumberID)
	if err != nil {
		// Unknown tenant: drop this entry, keep processing siblings.
		// Retrying cannot succeed until the account is provisioned.
		s.logger.WithFields(logrus.Fields{
			LogFieldEntryID:       entryID,
			LogFieldPhoneNumberID: phoneNumberID,
			LogFieldErrorCode:     string(apperrors.GetCode(err)),
		}).Warn("Skipping webhook entry for unresolved tenant")
		return
	}

	businessPhoneNumber := change.Value.Metadata.DisplayPhoneNumber

	for _, msg := range change.Value.Messages {
		if err := s.ingestMessage(ctx, account, msg, businessPhoneNumber, rawPayload); err != nil {
			s.logger.WithFields(logrus.Fields{
				LogFieldAccountID: account.ID,
				LogFieldMessageID: privacy.MaskMessageID(msg.ID),
			}).WithError(err).Error("Failed to ingest inbound message")
		}
	}

	for _, status := range change.Value.Statuses {
		if err := s.applyStatus(ctx, account, status); err != nil {
			s.logger.WithFields(logrus.Fields{
				LogFieldAccountID: account.ID,
				LogFieldMessageID: privacy.MaskMessageID(status.ID),
				LogFieldStatus:    status.Status,
			}).WithError(err).Error("Failed to apply delivery status")
		}
	}
}

func (s *ingestionService) ingestMessage(ctx context.Context, account *models.TenantAccount, msg models.WebhookMessage, businessPhoneNumber string, rawPayload []byte) error {
	msgType, content := classifyContent(msg)
	if msgType == models.MessageTypeUnsupported {
		s.logger.WithFields(logrus.Fields{
			LogFieldAccountID:   account.ID,
			LogFieldMessageType: msg.Type,
		}).Info("Storing minimal record for unsupported message type")
	}

	contentJSON, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal message content: %w", err)
	}

	record := &models.Message{
		TenantAccountID:   account.ID,
		PlatformMessageID: msg.ID,
		Direction:         models.DirectionInbound,
		FromPhoneNumber:   msg.From,
		ToPhoneNumber:     businessPhoneNumber,
		Type:              msg.Type,
		Content:           string(contentJSON),
		RawPayload:        string(rawPayload),
		Status:            models.MessageStatusReceived,
		SentAt:            parseEpochTimestamp(msg.Timestamp),
	}

	if err := s.store.SaveMessage(ctx, record); err != nil {
		if apperrors.IsDuplicateEvent(err) {
			// Redelivery or a lost insert race: the row already
			// exists, which is exactly the desired end state.
			s.logger.WithFields(logrus.Fields{
				LogFieldAccountID: account.ID,
				LogFieldMessageID: privacy.MaskMessageID(msg.ID),
			}).Debug("Duplicate message delivery ignored")
			return nil
		}
		return err
	}

	return nil
}

// applyStatus is a blind conditional update. A missing target row is a
// silent no-op: the status may have raced ahead of its message insert, or
// the message belongs to an account this pipeline does not track.
func (s *ingestionService) applyStatus(ctx context.Context, account *models.TenantAccount, status models.WebhookStatus) error {
	return s.store.UpdateMessageStatus(ctx, account.ID, status.ID, models.MessageStatus(status.Status))
}

// classifyContent maps a webhook message to its structured content variant.
// Unrecognized types get a minimal record carrying only the raw type tag;
// they are not errors.
func classifyContent(msg models.WebhookMessage) (models.MessageType, models.MessageContent) {
	switch models.MessageType(msg.Type) {
	case models.MessageTypeText:
		var body string
		if msg.Text != nil {
			body = msg.Text.Body
		}
		return models.MessageTypeText, models.MessageContent{Text: body}
	case models.MessageTypeImage:
		content := models.MessageContent{}
		if msg.Image != nil {
			content.MediaID = msg.Image.ID
			content.MimeType = msg.Image.MimeType
			content.Caption = msg.Image.Caption
		}
		return models.MessageTypeImage, content
	case models.MessageTypeAudio:
		content := models.MessageContent{}
		if msg.Audio != nil {
			content.MediaID = msg.Audio.ID
			content.MimeType = msg.Audio.MimeType
		}
		return models.MessageTypeAudio, content
	case models.MessageTypeVideo:
		content := models.MessageContent{}
		if msg.Video != nil {
			content.MediaID = msg.Video.ID
			content.MimeType = msg.Video.MimeType
			content.Caption = msg.Video.Caption
		}
		return models.MessageTypeVideo, content
	case models.MessageTypeDocument:
		content := models.MessageContent{}
		if msg.Document != nil {
			content.MediaID = msg.Document.ID
			content.MimeType = msg.Document.MimeType
			content.Filename = msg.Document.Filename
			content.Caption = msg.Document.Caption
		}
		return models.MessageTypeDocument, content
	case models.MessageTypeLocation:
		content := models.MessageContent{}
		if msg.Location != nil {
			content.Latitude = &msg.Location.Latitude
			content.Longitude = &msg.Location.Longitude
			content.Name = msg.Location.Name
			content.Address = msg.Location.Address
		}
		return models.MessageTypeLocation, content
	}

	return models.MessageTypeUnsupported, models.MessageContent{Type: msg.Type}
}

// parseEpochTimestamp converts the platform's epoch-seconds string to an
// absolute instant. An unparseable value falls back to the current time so
// the row still carries a usable ordering key.
func parseEpochTimestamp(ts string) time.Time {
	seconds, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Now().UTC()
	}
	return time.Unix(seconds, 0).UTC()
}
