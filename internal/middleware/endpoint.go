package middleware

import "github.com/danielgtaylor/huma/v2"

// MetadataKey is the key used to store admission config in operation metadata.
const MetadataKey = "admission"

// EndpointConfig defines per-endpoint admission configuration.
// This can be attached to Huma operations via the Metadata field.
type EndpointConfig struct {
	// Disabled skips admission control entirely for this endpoint.
	Disabled bool
}

// GetEndpointConfig extracts the EndpointConfig from operation metadata, if present.
func GetEndpointConfig(ctx huma.Context) *EndpointConfig {
	op := ctx.Operation()
	if op == nil || op.Metadata == nil {
		return nil
	}

	cfg, ok := op.Metadata[MetadataKey].(EndpointConfig)
	if !ok {
		return nil
	}

	return &cfg
}

// Exempt returns operation metadata that disables admission control.
func Exempt() map[string]any {
	return map[string]any{MetadataKey: EndpointConfig{Disabled: true}}
}
