// Package errs holds the error taxonomy shared by the report builder.
package errs

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrConfiguration      = errors.New("configuration error")
	ErrUnsupportedVariant = fmt.Errorf("%w: unsupported report variant", ErrConfiguration)
	ErrNetwork            = errors.New("network error")
	ErrBackend            = errors.New("backend error")
	ErrMalformedResponse  = errors.New("malformed response")
)

// ValidationError names the input fields that are missing or out of range.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validation builds a ValidationError, or returns nil when fields is empty.
func Validation(fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// ConfigurationError reports a programming-contract violation such as an
// unresolvable timezone.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrConfiguration, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NetworkError wraps a transport failure talking to the backend.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrNetwork, e.Op, e.Err)
}

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

func (e *NetworkError) Unwrap() error { return e.Err }

// BackendError is a non-success response from the backend.
type BackendError struct {
	Op     string
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %s: status %d", ErrBackend, e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s: status %d: %s", ErrBackend, e.Op, e.Status, e.Body)
}

func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// MalformedResponseError is a payload whose shape does not match what the
// caller expected.
type MalformedResponseError struct {
	Op  string
	Err error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedResponse, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedResponse, e.Op)
}

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Fields returns the field names of a ValidationError anywhere in err's chain.
func Fields(err error) []string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}

// Truncate shortens s to at most n bytes without splitting a UTF-8
// sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
