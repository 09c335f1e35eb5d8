package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"go.trai.ch/zerr"
)

// RecordKind names the type of a locally created record.
type RecordKind string

const (
	// KindProgressReport is a daily progress report.
	KindProgressReport RecordKind = "progress-report"
	// KindAttendanceEvent is a worker check-in or check-out.
	KindAttendanceEvent RecordKind = "attendance-event"
	// KindMaterialRequest is a request for site materials.
	KindMaterialRequest RecordKind = "material-request"
)

// RecordKinds lists every kind in batch order.
var RecordKinds = []RecordKind{KindProgressReport, KindAttendanceEvent, KindMaterialRequest}

// Validate reports whether k is a kind accepted by the batch endpoint.
func (k RecordKind) Validate() error {
	for _, known := range RecordKinds {
		if k == known {
			return nil
		}
	}
	return zerr.With(zerr.Wrap(ErrUnknownRecordKind, "cannot queue record"), "kind", string(k))
}

// DeliveryState is the lifecycle state of a queued record.
type DeliveryState string

const (
	// StatePending records wait for the next sync run.
	StatePending DeliveryState = "pending"
	// StateInFlight records are part of a batch awaiting the server's answer.
	StateInFlight DeliveryState = "in-flight"
	// StateDelivered records were acknowledged by the server. Terminal.
	StateDelivered DeliveryState = "delivered"
	// StateFailed records exhausted their retry budget. They stay until discarded or re-submitted.
	StateFailed DeliveryState = "failed"
)

// DeliveryStates lists every state.
var DeliveryStates = []DeliveryState{StatePending, StateInFlight, StateDelivered, StateFailed}

// ParseDeliveryState converts s into a DeliveryState.
func ParseDeliveryState(s string) (DeliveryState, error) {
	for _, st := range DeliveryStates {
		if string(st) == s {
			return st, nil
		}
	}
	return "", zerr.With(zerr.New("unknown delivery state"), "state", s)
}

var transitions = map[DeliveryState][]DeliveryState{
	StatePending:  {StateInFlight},
	StateInFlight: {StateDelivered, StatePending, StateFailed},
	StateFailed:   {StatePending},
}

// CanTransition reports whether a record may move from one state to another.
// Nothing leaves StateDelivered.
func CanTransition(from, to DeliveryState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// QueuedRecord is a locally created record awaiting delivery.
type QueuedRecord struct {
	ID         string          `json:"id"`
	Kind       RecordKind      `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	State      DeliveryState   `json:"state"`
	Attempts   int             `json:"attempts"`
	LastError  string          `json:"lastError,omitempty"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// ValidatePayload checks that a payload is a single JSON object.
func ValidatePayload(payload json.RawMessage) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return zerr.Wrap(ErrInvalidPayload, "cannot queue record")
	}
	return nil
}

// WithClientID returns the payload with its "clientId" field set to id.
// The server uses clientId as the idempotency key.
func WithClientID(payload json.RawMessage, id string) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, zerr.Wrap(err, "failed to decode record payload")
	}
	encodedID, err := json.Marshal(id)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode client id")
	}
	fields["clientId"] = encodedID
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode record payload")
	}
	return out, nil
}
