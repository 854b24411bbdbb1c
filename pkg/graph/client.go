package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"wainbox/internal/constants"
	apperrors "wainbox/internal/errors"
	"wainbox/internal/models"
)

type GraphClient struct {
	baseURL    string
	apiVersion string
	appID      string
	appSecret  string
	client     *http.Client
}

func NewClient(cfg ClientConfig) Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = constants.DefaultGraphBaseURL
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = constants.DefaultGraphAPIVersion
	}
	timeoutSec := cfg.TimeoutSec
	if timeoutSec <= 0 {
		timeoutSec = constants.DefaultGraphTimeoutSec
	}

	return &GraphClient{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		appID:      cfg.AppID,
		appSecret:  cfg.AppSecret,
		client: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
	}
}

// ExchangeCode trades a single-use authorization code for a long-lived
// access token.
func (c *GraphClient) ExchangeCode(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", apperrors.New(apperrors.ErrCodeValidationFailed, "authorization code is required")
	}

	params := url.Values{}
	params.Set("client_id", c.appID)
	params.Set("client_secret", c.appSecret)
	params.Set("code", code)

	var token tokenResponse
	if err := c.get(ctx, "oauth/access_token", params, &token); err != nil {
		return "", err
	}

	if token.AccessToken == "" {
		return "", apperrors.New(apperrors.ErrCodeUpstreamAPI, "token exchange returned no access token")
	}

	return token.AccessToken, nil
}

// GetBusinessAccount fetches WhatsApp Business Account metadata.
func (c *GraphClient) GetBusinessAccount(ctx context.Context, wabaID, accessToken string) (*models.BusinessAccount, error) {
	if wabaID == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidationFailed, "business account id is required")
	}

	params := url.Values{}
	params.Set("fields", "id,name,currency,timezone_id")
	params.Set("access_token", accessToken)

	var account models.BusinessAccount
	if err := c.get(ctx, wabaID, params, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// GetPhoneNumber fetches phone number metadata.
func (c *GraphClient) GetPhoneNumber(ctx context.Context, phoneNumberID, accessToken string) (*models.PhoneNumberInfo, error) {
	if phoneNumberID == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidationFailed, "phone number id is required")
	}

	params := url.Values{}
	params.Set("fields", "id,display_phone_number,verified_name,code_verification_status,quality_rating")
	params.Set("access_token", accessToken)

	var info models.PhoneNumberInfo
	if err := c.get(ctx, phoneNumberID, params, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *GraphClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, c.apiVersion, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return apperrors.Wrap(err, apperrors.ErrCodeUpstreamTimeout, "graph API request timed out").
				WithContext("path", path)
		}
		return apperrors.Wrap(err, apperrors.ErrCodeUpstreamAPI, "graph API request failed").
			WithContext("path", path)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUpstreamAPI, "failed to read graph API response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.New(apperrors.ErrCodeUpstreamAPI, extractErrorMessage(body, resp.Status)).
			WithContext("status_code", resp.StatusCode).
			WithContext("path", path)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUpstreamAPI, "failed to decode graph API response")
	}

	return nil
}

// extractErrorMessage pulls the platform's structured error message out of a
// non-2xx body, falling back to the transport status text.
func extractErrorMessage(body []byte, status string) string {
	var ge graphError
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Message != "" {
		return ge.Error.Message
	}
	return status
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
