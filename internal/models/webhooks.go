package models

// WebhookObjectType is the only top-level object this pipeline handles.
// Anything else is acknowledged and dropped.
const WebhookObjectType = "whatsapp_business_account"

// WebhookFieldMessages is the change field carrying messages and statuses.
const WebhookFieldMessages = "messages"

// WebhookPayload is the WhatsApp Cloud API webhook envelope.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         WebhookMetadata  `json:"metadata"`
	Contacts         []WebhookContact `json:"contacts,omitempty"`
	Messages         []WebhookMessage `json:"messages,omitempty"`
	Statuses         []WebhookStatus  `json:"statuses,omitempty"`
}

type WebhookMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type WebhookContact struct {
	WAID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type WebhookMessage struct {
	ID        string           `json:"id"`
	From      string           `json:"from"`
	Timestamp string           `json:"timestamp"` // epoch seconds as a decimal string
	Type      string           `json:"type"`
	Text      *WebhookText     `json:"text,omitempty"`
	Image     *WebhookMedia    `json:"image,omitempty"`
	Audio     *WebhookMedia    `json:"audio,omitempty"`
	Video     *WebhookMedia    `json:"video,omitempty"`
	Document  *WebhookMedia    `json:"document,omitempty"`
	Location  *WebhookLocation `json:"location,omitempty"`
}

type WebhookText struct {
	Body string `json:"body"`
}

type WebhookLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

type WebhookMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type WebhookStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}
