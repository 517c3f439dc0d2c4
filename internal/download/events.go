package download

import "context"

type EventKind int

const (
	RunStarted EventKind = iota
	ProgressChanged
	RunCompleted
	NeedsPermission
)

func (k EventKind) String() string {
	switch k {
	case RunStarted:
		return "run_started"
	case ProgressChanged:
		return "progress_changed"
	case RunCompleted:
		return "run_completed"
	case NeedsPermission:
		return "needs_permission"
	default:
		return "unknown"
	}
}

// Event is a domain event emitted by the engine worker, in order.
type Event struct {
	Kind    EventKind
	RunID   string
	Request Request
	// Path is the output file, known once the run got that far.
	Path string

	// Percent is set for ProgressChanged.
	Percent int
	// Bytes and Total describe the transfer so far; Total is -1 when unknown.
	Bytes int64
	Total int64

	// Success and Err are set for RunCompleted.
	Success bool
	Err     error

	// Observed is set for NeedsPermission: true when at least one observer
	// was registered and has already been signalled.
	Observed bool
}

// EventHandler consumes engine events. Handle runs on the worker goroutine.
type EventHandler interface {
	Handle(ctx context.Context, ev Event)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, ev Event)

func (f EventHandlerFunc) Handle(ctx context.Context, ev Event) { f(ctx, ev) }
