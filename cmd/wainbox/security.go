package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// verifySignature validates the X-Hub-Signature-256 header against the given
// body bytes, HMAC keyed with the Graph app secret. The caller owns reading
// the body so the same bytes it verifies are the bytes it stores.
func verifySignature(r *http.Request, body []byte, secretKey string) error {
	if secretKey == "" {
		return fmt.Errorf("signature verification enabled without an app secret")
	}

	signatureHeader := r.Header.Get("X-Hub-Signature-256")
	if signatureHeader == "" {
		return fmt.Errorf("missing X-Hub-Signature-256 header")
	}

	parts := strings.SplitN(signatureHeader, "=", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "sha256" {
		return fmt.Errorf("invalid signature format")
	}
	expectedSignatureHex := parts[1]

	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write(body)
	computedSignatureHex := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(computedSignatureHex), []byte(expectedSignatureHex)) {
		return fmt.Errorf("signature mismatch")
	}

	return nil
}

// requireAPIKey guards the management API with a static bearer key.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if !hmac.Equal([]byte(token), []byte(s.cfg.Server.APIKey)) {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
