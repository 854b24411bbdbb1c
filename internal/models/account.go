package models

import "time"

// TenantAccount is a tenant's connected WhatsApp Business credential record.
// At most one row per tenant has IsActive set; provisioning deactivates prior
// rows and inserts the replacement inside a single transaction.
type TenantAccount struct {
	ID                     int64     `db:"id"`
	TenantID               string    `db:"tenant_id"`
	WABAID                 string    `db:"waba_id"`
	PhoneNumberID          string    `db:"phone_number_id"`
	AccessToken            string    `db:"access_token"` // encrypted envelope, never plaintext
	WABAName               string    `db:"waba_name"`
	WABACurrency           string    `db:"waba_currency"`
	WABATimezoneID         string    `db:"waba_timezone_id"`
	PhoneNumber            string    `db:"phone_number"`
	VerifiedName           string    `db:"verified_name"`
	CodeVerificationStatus string    `db:"code_verification_status"`
	QualityRating          string    `db:"quality_rating"`
	IsActive               bool      `db:"is_active"`
	CreatedAt              time.Time `db:"created_at"`
	UpdatedAt              time.Time `db:"updated_at"`
}

// EncryptedToken is the at-rest envelope for an access token. All fields are
// hex encoded; the GCM authentication tag is appended to Ciphertext.
type EncryptedToken struct {
	Ciphertext string `json:"encrypted"`
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
}

// ProvisionResult is returned to the caller after connecting an account.
// The access token itself is deliberately absent.
type ProvisionResult struct {
	TokenStored     bool             `json:"tokenStored"`
	WABADetails     *BusinessAccount `json:"wabaDetails,omitempty"`
	PhoneDetails    *PhoneNumberInfo `json:"phoneDetails,omitempty"`
	EnrichmentError string           `json:"enrichmentError,omitempty"`
}

// BusinessAccount holds WhatsApp Business Account metadata from the Graph API.
type BusinessAccount struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Currency   string `json:"currency"`
	TimezoneID string `json:"timezone_id"`
}

// PhoneNumberInfo holds phone number metadata from the Graph API.
type PhoneNumberInfo struct {
	ID                     string `json:"id"`
	DisplayPhoneNumber     string `json:"display_phone_number"`
	VerifiedName           string `json:"verified_name"`
	CodeVerificationStatus string `json:"code_verification_status"`
	QualityRating          string `json:"quality_rating"`
}
