package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"wainbox/internal/constants"
	apperrors "wainbox/internal/errors"
	"wainbox/internal/middleware"
	"wainbox/internal/models"
	"wainbox/internal/privacy"
	"wainbox/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	cfg          *models.Config
	router       *mux.Router
	logger       *logrus.Logger
	ingestion    service.IngestionService
	provisioning service.ProvisioningService
	messages     service.MessageStore
	server       *http.Server
}

func NewServer(cfg *models.Config, ingestion service.IngestionService, provisioning service.ProvisioningService, messages service.MessageStore, logger *logrus.Logger) *Server {
	s := &Server{
		cfg:          cfg,
		router:       mux.NewRouter(),
		logger:       logger,
		ingestion:    ingestion,
		provisioning: provisioning,
		messages:     messages,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.ObservabilityMiddleware(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	webhook := s.router.PathPrefix("/webhook/whatsapp").Subrouter()
	webhook.Use(middleware.WebhookObservabilityMiddleware(s.logger, "whatsapp"))
	webhook.HandleFunc("", s.handleWebhookVerification()).Methods(http.MethodGet)
	webhook.HandleFunc("", s.handleWebhookDelivery()).Methods(http.MethodPost)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.requireAPIKey)
	api.HandleFunc("/exchange-token", s.handleExchangeToken()).Methods(http.MethodPost)
	api.HandleFunc("/account", s.handleGetAccount()).Methods(http.MethodGet)
	api.HandleFunc("/account", s.handleDisconnectAccount()).Methods(http.MethodDelete)
	api.HandleFunc("/messages", s.handleListMessages()).Methods(http.MethodGet)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handleWebhookVerification answers the platform's subscription handshake.
// A valid subscribe request gets the challenge echoed back verbatim.
func (s *Server) handleWebhookVerification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		mode := query.Get("hub.mode")
		verifyToken := query.Get("hub.verify_token")
		challenge := query.Get("hub.challenge")

		echo, err := s.ingestion.VerifySubscription(mode, verifyToken, challenge)
		if err != nil {
			if apperrors.IsCode(err, apperrors.ErrCodeMissingConfig) {
				s.logger.WithError(err).Error("Webhook verification attempted without configured token")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			s.logger.WithField(service.LogFieldEvent, mode).Warn("Webhook verification rejected")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		s.logger.Info("Webhook subscription verified")
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(echo)) //nolint:errcheck
	}
}

// handleWebhookDelivery accepts event notifications. The body bytes are kept
// as delivered and handed to the pipeline verbatim; the stored raw payload
// must not lose fields the decoded form does not model. The response commits
// to nothing: per-entry failures are logged and retried by the platform, not
// surfaced as delivery errors.
func (s *Server) handleWebhookDelivery() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, constants.DefaultWebhookMaxBodyBytes)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to read webhook body")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if s.cfg.Webhook.SignatureRequired {
			if err := verifySignature(r, body, s.cfg.Graph.AppSecret); err != nil {
				s.logger.WithError(err).Warn("Webhook signature verification failed")
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
		}

		var payload models.WebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			// An unparseable body is the one case worth a retry from the
			// platform; malformed content inside a valid body is not.
			s.logger.WithError(err).Warn("Malformed webhook payload")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if err := s.ingestion.ProcessEvent(r.Context(), &payload, body); err != nil {
			s.logger.WithError(err).Error("Webhook event processing failed")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}

type exchangeTokenRequest struct {
	TenantID      string `json:"tenant_id"`
	Code          string `json:"code"`
	WABAID        string `json:"waba_id,omitempty"`
	PhoneNumberID string `json:"phone_number_id,omitempty"`
}

func (s *Server) handleExchangeToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req exchangeTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := s.provisioning.Provision(r.Context(), req.TenantID, req.Code, req.WABAID, req.PhoneNumberID)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				service.LogFieldTenantID:  privacy.MaskTenantID(req.TenantID),
				service.LogFieldErrorCode: string(apperrors.GetCode(err)),
			}).WithError(err).Error("Token exchange failed")
			writeError(w, statusForError(err), apiErrorMessage(err))
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// accountResponse is the outward view of a credential record. The encrypted
// token never leaves the database through this surface.
type accountResponse struct {
	ID                     int64     `json:"id"`
	TenantID               string    `json:"tenant_id"`
	WABAID                 string    `json:"waba_id,omitempty"`
	PhoneNumberID          string    `json:"phone_number_id,omitempty"`
	WABAName               string    `json:"waba_name,omitempty"`
	WABACurrency           string    `json:"waba_currency,omitempty"`
	WABATimezoneID         string    `json:"waba_timezone_id,omitempty"`
	PhoneNumber            string    `json:"phone_number,omitempty"`
	VerifiedName           string    `json:"verified_name,omitempty"`
	CodeVerificationStatus string    `json:"code_verification_status,omitempty"`
	QualityRating          string    `json:"quality_rating,omitempty"`
	IsActive               bool      `json:"is_active"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func toAccountResponse(a *models.TenantAccount) *accountResponse {
	return &accountResponse{
		ID:                     a.ID,
		TenantID:               a.TenantID,
		WABAID:                 a.WABAID,
		PhoneNumberID:          a.PhoneNumberID,
		WABAName:               a.WABAName,
		WABACurrency:           a.WABACurrency,
		WABATimezoneID:         a.WABATimezoneID,
		PhoneNumber:            a.PhoneNumber,
		VerifiedName:           a.VerifiedName,
		CodeVerificationStatus: a.CodeVerificationStatus,
		QualityRating:          a.QualityRating,
		IsActive:               a.IsActive,
		CreatedAt:              a.CreatedAt,
		UpdatedAt:              a.UpdatedAt,
	}
}

func (s *Server) handleGetAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.URL.Query().Get("tenant_id")

		account, err := s.provisioning.ActiveAccount(r.Context(), tenantID)
		if err != nil {
			writeError(w, statusForError(err), apiErrorMessage(err))
			return
		}
		if account == nil {
			writeError(w, http.StatusNotFound, "no active account for tenant")
			return
		}

		writeJSON(w, http.StatusOK, toAccountResponse(account))
	}
}

func (s *Server) handleDisconnectAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.URL.Query().Get("tenant_id")

		if err := s.provisioning.Disconnect(r.Context(), tenantID); err != nil {
			writeError(w, statusForError(err), apiErrorMessage(err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"disconnected": true})
	}
}

// messageResponse carries the persisted message with its structured content
// inlined. The verbatim webhook payload stays internal.
type messageResponse struct {
	ID                int64           `json:"id"`
	PlatformMessageID string          `json:"platform_message_id"`
	Direction         string          `json:"direction"`
	From              string          `json:"from"`
	To                string          `json:"to"`
	Type              string          `json:"type"`
	Content           json.RawMessage `json:"content"`
	Status            string          `json:"status"`
	SentAt            time.Time       `json:"sent_at"`
	CreatedAt         time.Time       `json:"created_at"`
}

func (s *Server) handleListMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.URL.Query().Get("tenant_id")

		account, err := s.provisioning.ActiveAccount(r.Context(), tenantID)
		if err != nil {
			writeError(w, statusForError(err), apiErrorMessage(err))
			return
		}
		if account == nil {
			writeError(w, http.StatusNotFound, "no active account for tenant")
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
		}

		msgs, err := s.messages.ListMessages(r.Context(), account.ID, limit)
		if err != nil {
			writeError(w, statusForError(err), apiErrorMessage(err))
			return
		}

		out := make([]*messageResponse, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, &messageResponse{
				ID:                m.ID,
				PlatformMessageID: m.PlatformMessageID,
				Direction:         string(m.Direction),
				From:              m.FromPhoneNumber,
				To:                m.ToPhoneNumber,
				Type:              m.Type,
				Content:           json.RawMessage(m.Content),
				Status:            string(m.Status),
				SentAt:            m.SentAt,
				CreatedAt:         m.CreatedAt,
			})
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"messages": out})
	}
}

// statusForError maps the error taxonomy to HTTP status codes.
func statusForError(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case apperrors.ErrCodeAuthentication:
		return http.StatusUnauthorized
	case apperrors.ErrCodeAuthorization:
		return http.StatusForbidden
	case apperrors.ErrCodeTenantNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeUpstreamAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// apiErrorMessage picks the message exposed to API callers. Client-actionable
// failures carry their structured message; upstream platform errors stay
// generic so remote internals never reach the caller, and everything else
// falls back to the user-facing default.
func apiErrorMessage(err error) string {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidationFailed,
		apperrors.ErrCodeTenantNotFound,
		apperrors.ErrCodeAuthentication,
		apperrors.ErrCodeAuthorization:
		return apperrors.GetMessage(err)
	case apperrors.ErrCodeUpstreamAPI:
		return "token exchange with the messaging platform failed"
	case apperrors.ErrCodeUpstreamTimeout:
		return "the messaging platform did not respond in time"
	default:
		return apperrors.GetUserMessage(err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
