package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Request Correlation
	// ========================================================================
	KeyRequestID = "request_id" // API request id
	KeyCycle     = "cycle"      // Pipeline cycle: download, upload, commit

	// ========================================================================
	// Work Items
	// ========================================================================
	KeySourceID    = "source_id"   // Messaging source message id
	KeyKind        = "kind"        // Media kind: image, video
	KeyItem        = "item"        // Upload item name
	KeyDestination = "destination" // Destination album id
	KeyToken       = "token"       // Delivery token (shortened)
	KeyQueueDepth  = "queue_depth" // Queue length after an operation
	KeyCount       = "count"       // Number of items in a batch
	KeySize        = "size"        // Payload size in bytes

	// ========================================================================
	// Outcome
	// ========================================================================
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts
	KeyCode       = "code"        // Remote result code
	KeyReason     = "reason"      // Why an item took a failure path
	KeyLocation   = "location"    // Where fallback content was written
	KeyError      = "error"       // Error message
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyStatus     = "status"      // HTTP status code

	// ========================================================================
	// Storage
	// ========================================================================
	KeyPath      = "path"       // Local file path
	KeyBucket    = "bucket"     // Object storage bucket
	KeyKey       = "key"        // Object key
	KeyStoreType = "store_type" // Backend type: fs, s3, memory, badger
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// RequestID returns a slog.Attr for an API request id
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Cycle returns a slog.Attr for a pipeline cycle name
func Cycle(name string) slog.Attr {
	return slog.String(KeyCycle, name)
}

// Item returns a slog.Attr for an upload item name
func Item(name string) slog.Attr {
	return slog.String(KeyItem, name)
}

// Destination returns a slog.Attr for a destination album id
func Destination(id string) slog.Attr {
	return slog.String(KeyDestination, id)
}

// Attempt returns a slog.Attr for retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// StoreType returns a slog.Attr for a storage backend type
func StoreType(t string) slog.Attr {
	return slog.String(KeyStoreType, t)
}
