package handlers

import "time"

// AdmissionRequest is the request body for an admission check.
type AdmissionRequest struct {
	Body struct {
		Key       string     `doc:"Client IP to admit; defaults to the caller's address" example:"203.0.113.7"          json:"key,omitempty"       required:"false"`
		Timestamp *time.Time `doc:"Decision time; defaults to now"                       example:"2024-01-01T12:00:00Z" json:"timestamp,omitempty" required:"false"`
	}
}

// AdmissionResponse reports the decision for one admission check.
type AdmissionResponse struct {
	Body struct {
		Allowed  bool   `doc:"Whether the request was admitted"   json:"allowed"`
		Key      string `doc:"The key the decision was made for"  example:"203.0.113.7" json:"key"`
		Strategy string `doc:"Concurrency strategy that decided"  example:"perkey"      json:"strategy"`
	}
}
