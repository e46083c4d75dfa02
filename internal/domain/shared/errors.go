package shared

import "errors"

// Tenancy and persistence precondition errors. These signal caller bugs or
// misconfiguration and must never be retried or silently corrected.
var (
	// ErrTenantContextMissing is returned when an operation requires a bound
	// tenant but none is present in the context.
	ErrTenantContextMissing = errors.New("tenant context missing")

	// ErrTenantMismatch is returned when the caller-supplied tenant does not
	// match the tenant bound in the context.
	ErrTenantMismatch = errors.New("tenant id does not match tenant context")

	// ErrInvalidSchemaIdentifier is returned when a derived schema name fails
	// validation, before any statement touches storage.
	ErrInvalidSchemaIdentifier = errors.New("invalid schema identifier")
)

// ErrOptimisticLockConflict is returned when a versioned write loses a race
// against a concurrent writer. It is retryable with a bounded retry policy.
var ErrOptimisticLockConflict = errors.New("optimistic lock conflict")

// ErrDownstreamUnavailable is returned by resilient clients when a dependency
// is unreachable, its circuit is open, or retries are exhausted. Callers are
// expected to fail soft rather than propagate it as a hard failure.
var ErrDownstreamUnavailable = errors.New("downstream service unavailable")

// ErrEventTypeUnrecognized signals that a consumed message does not carry an
// event type the handler understands. This is normal multiplexing on a shared
// topic: the message is skipped and acknowledged.
var ErrEventTypeUnrecognized = errors.New("event type unrecognized")

// DomainError represents a deterministic business-rule rejection. Handlers
// treat it as terminal: retrying cannot succeed, so it is logged and the
// triggering message acknowledged.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// IsDomainError reports whether err is (or wraps) a DomainError.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// Common domain errors
var (
	ErrNotFound         = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists    = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput     = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState     = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientCapacity = NewDomainError("INSUFFICIENT_CAPACITY", "Location has insufficient capacity")
	ErrInsufficientStock    = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
)
