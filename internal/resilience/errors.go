package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// ServiceUnavailableError indicates the analysis engine was unreachable,
// timed out, or answered with a gateway error. The job's persisted status is
// left untouched when this surfaces.
type ServiceUnavailableError struct {
	Err        error
	StatusCode int
}

func (e *ServiceUnavailableError) Error() string {
	if e.Err != nil {
		return "analysis engine unavailable: " + e.Err.Error()
	}
	return "analysis engine unavailable"
}

func (e *ServiceUnavailableError) Unwrap() error {
	return e.Err
}

// NewServiceUnavailable wraps an engine-communication failure with an
// optional HTTP status code.
func NewServiceUnavailable(err error, statusCode int) *ServiceUnavailableError {
	return &ServiceUnavailableError{Err: err, StatusCode: statusCode}
}

// DataUnavailableError indicates a job reported complete but its result
// carried no recognizable kit shape. The terminal status still persists;
// only kit materialization is skipped.
type DataUnavailableError struct {
	JobID string
}

func (e *DataUnavailableError) Error() string {
	return "no brand kit data available for job " + e.JobID
}

// NotFoundError indicates a referenced job, profile, or task does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return e.Kind + " not found: " + e.ID
}

// UnauthorizedError indicates the caller does not own the referenced
// profile or job.
type UnauthorizedError struct {
	Kind string
	ID   string
}

func (e *UnauthorizedError) Error() string {
	return "not authorized for " + e.Kind + " " + e.ID
}

// ValidationError indicates malformed caller input, such as a module id
// that fails the syntactic check.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// IsServiceUnavailable reports whether the chain contains a
// ServiceUnavailableError.
func IsServiceUnavailable(err error) bool {
	var se *ServiceUnavailableError
	return errors.As(err, &se)
}

// IsDataUnavailable reports whether the chain contains a
// DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var de *DataUnavailableError
	return errors.As(err, &de)
}

// IsNotFound reports whether the chain contains a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsTransient returns true if the error (or any error in its chain) looks
// like a transient engine-side failure: an explicit ServiceUnavailableError,
// a network timeout, or a common connection-level failure pattern.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if IsServiceUnavailable(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
