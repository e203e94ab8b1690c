// Package bus defines the message protocol between the page-side detection
// controller and the background coordinator, and serves it over WebSocket
// for the extension.
package bus

import (
	"encoding/json"
	"fmt"

	"github.com/pausewise/pausewise/internal/model"
)

// MessageType identifies a protocol message.
type MessageType string

// Protocol messages. The first two are request/response pairs initiated by
// the page; the rest are fire-and-forget instructions to the page.
const (
	MsgPurchaseDetected MessageType = "purchase_detected"
	MsgPurchaseOutcome  MessageType = "purchase_outcome"
	MsgDecision         MessageType = "decision"
	MsgOutcomeResult    MessageType = "outcome_result"
	MsgShowOverlay      MessageType = "show_overlay"
	MsgProceed          MessageType = "proceed_with_purchase"
	MsgResetDetection   MessageType = "reset_detection"
	MsgError            MessageType = "error"
)

// Envelope wraps every message on the wire. ID correlates a response with
// its request.
type Envelope struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PurchaseDetectedPayload carries a detection event from the page.
type PurchaseDetectedPayload struct {
	Product    model.ProductInfo `json:"product"`
	Site       string            `json:"site"`
	Confidence int               `json:"confidence"`
}

// PurchaseOutcomePayload carries the user's resolution of a prompt.
type PurchaseOutcomePayload struct {
	EventID               string        `json:"eventId"`
	Outcome               model.Outcome `json:"outcome"`
	ReflectionTimeSeconds int           `json:"reflectionTimeSeconds"`
}

// ErrorPayload carries a protocol-level failure back to the page.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewEnvelope builds an envelope with a marshaled payload.
func NewEnvelope(msgType MessageType, id string, payload any) (Envelope, error) {
	env := Envelope{Type: msgType, ID: id}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}
	return env, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}
	return nil
}
