package graph

import (
	"context"

	"wainbox/internal/models"
)

// Client exchanges authorization codes and fetches account metadata from the
// Graph API. Implementations hold no local state beyond credentials; a failed
// exchange is never retried because authorization codes are single-use.
type Client interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
	GetBusinessAccount(ctx context.Context, wabaID, accessToken string) (*models.BusinessAccount, error)
	GetPhoneNumber(ctx context.Context, phoneNumberID, accessToken string) (*models.PhoneNumberInfo, error)
}

// ClientConfig configures a GraphClient.
type ClientConfig struct {
	BaseURL    string
	APIVersion string
	AppID      string
	AppSecret  string
	TimeoutSec int
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// graphError is the structured error body the Graph API returns on non-2xx.
type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}
