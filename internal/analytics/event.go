package analytics

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TopicAdmissionDecided carries one event per published admission decision.
const TopicAdmissionDecided = "admission.decided"

// ErrInvalidEvent is returned by Validate for events that cannot be stored.
var ErrInvalidEvent = errors.New("invalid admission event")

// AdmissionEvent records the outcome of one admission decision.
type AdmissionEvent struct {
	ID         uuid.UUID `json:"id"`
	Key        string    `json:"key"`
	Strategy   string    `json:"strategy"`
	Allowed    bool      `json:"allowed"`
	Method     string    `json:"method,omitempty"`
	Path       string    `json:"path,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewAdmissionEvent builds an event with a fresh random ID.
func NewAdmissionEvent(key, strategy string, allowed bool, occurredAt time.Time) *AdmissionEvent {
	return &AdmissionEvent{
		ID:         uuid.New(),
		Key:        key,
		Strategy:   strategy,
		Allowed:    allowed,
		OccurredAt: occurredAt.UTC(),
	}
}

// WithRequest attaches the HTTP method and path that triggered the decision.
func (e *AdmissionEvent) WithRequest(method, path string) *AdmissionEvent {
	e.Method = method
	e.Path = path

	return e
}

// Validate reports whether the event has the fields the stores depend on.
func (e *AdmissionEvent) Validate() error {
	switch {
	case e.ID == uuid.Nil:
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	case e.Key == "":
		return fmt.Errorf("%w: missing key", ErrInvalidEvent)
	case e.Strategy == "":
		return fmt.Errorf("%w: missing strategy", ErrInvalidEvent)
	case e.OccurredAt.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}

	return nil
}
