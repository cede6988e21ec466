package pipeline

import "errors"

// ============================================================================
// Standard Pipeline Errors
// ============================================================================

var (
	// ErrTransient marks a collaborator failure that is expected to clear up
	// on its own (network error, 5xx, rate limiting). Content sources and
	// uploaders wrap their errors with it so the pipeline can classify them.
	//
	//   return fmt.Errorf("line: status %d: %w", code, pipeline.ErrTransient)
	ErrTransient = errors.New("transient failure")

	// ErrCycleBusy is returned when a cycle is triggered while a previous
	// execution of the same cycle is still running.
	ErrCycleBusy = errors.New("cycle already running")

	// ErrUnsupportedKind indicates a content reference with a media kind the
	// pipeline is not configured to accept.
	ErrUnsupportedKind = errors.New("unsupported media kind")

	// ErrUnsupportedProvider indicates a content reference whose content is
	// not hosted by the messaging source (for example an external URL).
	ErrUnsupportedProvider = errors.New("unsupported content provider")

	// ErrDuplicate indicates the reference was already accepted recently.
	ErrDuplicate = errors.New("duplicate content reference")

	// ErrNoDestination indicates no destination album could be resolved.
	ErrNoDestination = errors.New("no destination configured")

	// ErrInvalidItem indicates an upload item missing its name or body.
	ErrInvalidItem = errors.New("invalid upload item")

	// ErrPipelineClosed indicates an operation on a closed pipeline.
	ErrPipelineClosed = errors.New("pipeline is closed")
)

// IsTransient reports whether err is marked as transient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
