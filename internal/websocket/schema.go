package websocket

import (
	"github.com/stemsi/akademi-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventReady             Event = "ready"
	EventError             Event = "error"
	EventPong              Event = "pong"
	EventCertificateIssued Event = "certificate_issued"
)

// ReadyResponse is sent once the event subscription is live.
type ReadyResponse struct {
	Event Event `json:"event"`
}

// CertificateIssuedResponse announces a newly issued certificate.
type CertificateIssuedResponse struct {
	Event       Event              `json:"event"`
	Certificate *model.Certificate `json:"certificate"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
