package domain

import "fmt"

// ConfigurationError reports a missing or invalid setting, typically an absent credential.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

// DimensionMismatchError reports vectors of different lengths meeting in one comparison,
// or an embedding whose length differs from the configured model dimension.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// InvalidVectorError reports a vector whose cosine similarity is undefined (zero magnitude).
type InvalidVectorError struct {
	ID string
}

func (e *InvalidVectorError) Error() string {
	if e.ID == "" {
		return "invalid vector: zero magnitude"
	}
	return fmt.Sprintf("invalid vector %q: zero magnitude", e.ID)
}

// RemoteServiceError wraps any failure returned by the embedding, store or generation service.
type RemoteServiceError struct {
	Service string
	Op      string
	Err     error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// Remote builds a RemoteServiceError. It returns nil when err is nil.
func Remote(service, op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteServiceError{Service: service, Op: op, Err: err}
}
