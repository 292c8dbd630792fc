package llm

import "fmt"

// ConfigurationError means no usable backend configuration could be resolved
// (typically: no base URL). It is a hard failure for the turn, never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "llm not configured: " + e.Reason
}

// RemoteError is a non-success HTTP status from the backend. The message is
// the raw response body, since OpenAI-compatible servers put the useful
// detail there rather than in the status line.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("remote returned status %d", e.Status)
}

// ValidationError means the outgoing message list failed structural checks.
// It is raised before any network call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// DecodeError is scoped to a single stream event or a single tool call's
// argument body. It never aborts the surrounding stream; callers either skip
// the event or emit an error-tagged placeholder.
type DecodeError struct {
	Index int
	Raw   string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode tool call %d: %v", e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
