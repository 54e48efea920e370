package events

import (
	"time"

	"github.com/Inovico-app/inovy-sub006/internal/detect"
	"github.com/Inovico-app/inovy-sub006/internal/guardrails"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeViolation represents a recorded guardrails violation
	EventTypeViolation EventType = "violation"
	// EventTypeDetection represents a sensitive-entity detection run
	EventTypeDetection EventType = "detection"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// ViolationEvent carries a guardrails violation to dashboard clients. The
// message text itself is never broadcast, only the audit metadata.
type ViolationEvent struct {
	Violation guardrails.Violation `json:"violation"`
	Allowed   bool                 `json:"allowed"`
}

// DetectionEvent summarizes a detection run. Matched text is omitted so the
// dashboard channel never carries the sensitive content it reports on.
type DetectionEvent struct {
	RequestID      string              `json:"request_id"`
	EntityTypes    []detect.EntityType `json:"entity_types"`
	TotalFindings  int                 `json:"total_findings"`
	MeanConfidence float64             `json:"mean_confidence"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalEvaluations int64  `json:"total_evaluations"`
	TotalViolations  int64  `json:"total_violations"`
	ConnectedClients int    `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
}
