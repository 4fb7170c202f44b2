package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed piece of infrastructure such as a
// dispatcher and its transport.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	// Stop releases resources. It must be safe to call after a failed Start.
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description summarizes a component for startup output.
type Description struct {
	// Name defaults to the component's Name().
	Name string
	// Type categorizes the component, e.g. "http-dispatcher".
	Type string
	// Details is a one-liner such as the base URL.
	Details string
}

// Describable is optionally implemented by components to self-report.
type Describable interface {
	Describe() Description
}
