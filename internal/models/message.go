package models

import "time"

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeImage       MessageType = "image"
	MessageTypeAudio       MessageType = "audio"
	MessageTypeVideo       MessageType = "video"
	MessageTypeDocument    MessageType = "document"
	MessageTypeLocation    MessageType = "location"
	MessageTypeUnsupported MessageType = "unsupported"
)

type MessageStatus string

const (
	MessageStatusReceived  MessageStatus = "received"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

// Message is one persisted inbound or outbound message.
// (TenantAccountID, PlatformMessageID) is unique; duplicate webhook
// deliveries lose the insert race and are dropped.
type Message struct {
	ID                int64         `db:"id"`
	TenantAccountID   int64         `db:"tenant_account_id"`
	PlatformMessageID string        `db:"platform_message_id"`
	Direction         Direction     `db:"direction"`
	FromPhoneNumber   string        `db:"from_phone_number"`
	ToPhoneNumber     string        `db:"to_phone_number"`
	Type              string        `db:"message_type"`
	Content           string        `db:"message_content"` // JSON MessageContent
	RawPayload        string        `db:"raw_payload"`     // verbatim webhook body, for audit/replay
	Status            MessageStatus `db:"status"`
	SentAt            time.Time     `db:"sent_at"`
	CreatedAt         time.Time     `db:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at"`
}

// MessageContent is the structured content variant for a message. The
// populated fields depend on the message type; unsupported types carry only
// the raw type tag. Coordinates are pointers so a location at 0.0 survives
// serialization.
type MessageContent struct {
	Text      string   `json:"text,omitempty"`
	MediaID   string   `json:"media_id,omitempty"`
	MimeType  string   `json:"mime_type,omitempty"`
	Caption   string   `json:"caption,omitempty"`
	Filename  string   `json:"filename,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Name      string   `json:"name,omitempty"`
	Address   string   `json:"address,omitempty"`
	Type      string   `json:"type,omitempty"`
}
