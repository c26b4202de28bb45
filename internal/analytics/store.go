package analytics

import "context"

// Store defines the interface for persisting admission events.
type Store interface {
	SaveAdmission(ctx context.Context, event *AdmissionEvent) error
}
