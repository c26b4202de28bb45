package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the admission routes. exempt is attached as
// operation metadata so the global admission middleware skips the endpoint.
func RegisterRoutes(api huma.API, admissionHandler *AdmissionHandler, exempt map[string]any) {
	// POST /admissions - Ask for an admission decision
	huma.Register(api, huma.Operation{
		Method:      http.MethodPost,
		Path:        "/admissions",
		Summary:     "Check admission",
		Description: "Records a request for the key and reports whether it fits the sliding-window quota.",
		Tags:        []string{"Admissions"},
		Metadata:    exempt,
	}, admissionHandler.Check)
}
