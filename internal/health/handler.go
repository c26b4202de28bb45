package health

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/redis/go-redis/v9"
)

const (
	statusOK       = "ok"
	statusDegraded = "degraded"

	depHealthy   = "healthy"
	depUnhealthy = "unhealthy"
	depDisabled  = "disabled"
)

// Checker defines the interface for checking service health.
type Checker interface {
	Ping(ctx context.Context) error
}

// RedisChecker adapts redis.Client to Checker interface.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Ping checks Redis connectivity.
func (r *RedisChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Dependency is a named backend whose reachability is reported. A nil
// Checker marks the dependency as disabled.
type Dependency struct {
	Name    string
	Checker Checker
}

// Handler handles health check operations.
type Handler struct {
	strategy string
	deps     []Dependency
	timeout  time.Duration
}

// NewHandler creates a new health handler reporting the active strategy and
// the state of each dependency.
func NewHandler(strategy string, deps ...Dependency) *Handler {
	return &Handler{
		strategy: strategy,
		deps:     deps,
		timeout:  2 * time.Second,
	}
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status       string            `json:"status"`
		Strategy     string            `json:"strategy"`
		Dependencies map[string]string `json:"dependencies"`
	}
}

// Check performs a health check of the application and its dependencies.
// Admission itself is in-process and always available, so failing
// dependencies only degrade the status.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = statusOK
	resp.Body.Strategy = h.strategy
	resp.Body.Dependencies = make(map[string]string, len(h.deps))

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	for _, dep := range h.deps {
		switch {
		case dep.Checker == nil:
			resp.Body.Dependencies[dep.Name] = depDisabled
		case dep.Checker.Ping(ctx) != nil:
			resp.Body.Dependencies[dep.Name] = depUnhealthy
			resp.Body.Status = statusDegraded
		default:
			resp.Body.Dependencies[dep.Name] = depHealthy
		}
	}

	return resp, nil
}

// RegisterRoutes registers health check routes with the given operation metadata.
func RegisterRoutes(api huma.API, h *Handler, metadata map[string]any) {
	huma.Register(api, huma.Operation{
		Method:   http.MethodGet,
		Path:     "/health",
		Summary:  "Health check",
		Tags:     []string{"Health"},
		Metadata: metadata,
	}, h.Check)
}
