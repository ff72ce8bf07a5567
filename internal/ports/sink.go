package ports

import "github.com/FilipeMaia/scopeflow/internal/domain"

// Sink consumes one capture per loop iteration. Publish is invoked
// synchronously from the acquisition loop and must bound its own blocking;
// errors are reported through Observability and never abort the run.
type Sink interface {
	Publish(c *domain.Capture) error
	Name() string
}
