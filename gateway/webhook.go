package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	pkgerrors "github.com/pkg/errors"
)

// Webhook event types the provider delivers.
const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"
)

// Event is the provider's webhook envelope. Data.ID is the gateway
// transaction (session) id used to look up the local payment.
type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ParseEvent decodes a raw webhook body.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, pkgerrors.Wrap(err, "decode webhook event")
	}
	return &ev, nil
}

// VerifySignature checks the hex-encoded HMAC-SHA256 of the raw body against
// the signature header using a constant-time comparison.
func VerifySignature(rawBody []byte, signatureHeader, secret string) bool {
	if signatureHeader == "" {
		return false
	}
	expected, err := hex.DecodeString(signatureHeader)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hmac.Equal(mac.Sum(nil), expected)
}

// Sign computes the signature VerifySignature expects; used by tests and by
// local tooling that replays webhooks.
func Sign(rawBody []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
