package pipeline

import (
	"bytes"
	"encoding/json"
)

// payloadClass is the verdict on a fetched payload.
type payloadClass int

const (
	// payloadContent is deliverable media.
	payloadContent payloadClass = iota
	// payloadError is a structured error body returned in place of media.
	payloadError
)

func (c payloadClass) String() string {
	switch c {
	case payloadContent:
		return "content"
	case payloadError:
		return "error_payload"
	default:
		return "unknown"
	}
}

// classifyPayload decides whether data is media or an error body.
//
// Payloads of at least minSize bytes are media. Smaller payloads are error
// bodies when empty or when they decode as a JSON object; anything else is
// unusually small media.
func classifyPayload(data []byte, minSize int) payloadClass {
	if len(data) >= minSize {
		return payloadContent
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return payloadError
	}
	if trimmed[0] != '{' {
		return payloadContent
	}
	var body map[string]any
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return payloadContent
	}
	return payloadError
}

// RetryPredicate reports whether a batch result code should be retried.
//
// The default threshold follows the photo service's error code space and is
// only meaningful for collaborators that share it.
type RetryPredicate func(code int) bool

// CodeAtLeast retries result codes greater than or equal to threshold.
func CodeAtLeast(threshold int) RetryPredicate {
	return func(code int) bool {
		return code >= threshold
	}
}

// CodeIn retries exactly the listed codes.
func CodeIn(codes ...int) RetryPredicate {
	set := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return func(code int) bool {
		_, ok := set[code]
		return ok
	}
}
