package dto

import (
	"errors"
	"net/http"

	"github.com/wms/backend/internal/domain/shared"
)

// Common error codes used across handlers
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeUnavailable  = "DOWNSTREAM_UNAVAILABLE"
)

// statusByCode maps domain error codes to HTTP status codes. Codes not
// listed here are business-rule rejections and map to 422.
var statusByCode = map[string]int{
	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeUnauthorized:      http.StatusUnauthorized,
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeConflict:          http.StatusConflict,
	ErrCodeInternal:          http.StatusInternalServerError,
	ErrCodeUnavailable:       http.StatusServiceUnavailable,
	"ALREADY_EXISTS":         http.StatusConflict,
	"TENANT_EXISTS":          http.StatusConflict,
	"LOCATION_CODE_TAKEN":    http.StatusConflict,
	"INVALID_INPUT":          http.StatusBadRequest,
	"INVALID_CODE":           http.StatusBadRequest,
	"INVALID_CAPACITY":       http.StatusBadRequest,
	"INVALID_NAME":           http.StatusBadRequest,
	"INVALID_QUANTITY":       http.StatusBadRequest,
	"INVALID_PRODUCT":        http.StatusBadRequest,
	"INVALID_TENANT_ID":      http.StatusBadRequest,
	"INSUFFICIENT_STOCK":     http.StatusUnprocessableEntity,
	"INSUFFICIENT_CAPACITY":  http.StatusUnprocessableEntity,
	"STOCK_EXPIRED":          http.StatusUnprocessableEntity,
	"LOCATION_INACTIVE":      http.StatusUnprocessableEntity,
	"LOCATION_OCCUPIED":      http.StatusUnprocessableEntity,
	"INVALID_STATE":          http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for a domain error code
func GetHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusUnprocessableEntity
}

// MapError translates an application error into an error code, message and
// HTTP status.
func MapError(err error) (status int, code, message string) {
	switch {
	case err == nil:
		return http.StatusOK, "", ""
	case errors.Is(err, shared.ErrOptimisticLockConflict):
		return http.StatusConflict, ErrCodeConflict, "The resource was modified concurrently, retry with fresh state"
	case errors.Is(err, shared.ErrDownstreamUnavailable):
		return http.StatusServiceUnavailable, ErrCodeUnavailable, "A downstream dependency is unavailable, try again later"
	case errors.Is(err, shared.ErrTenantContextMissing), errors.Is(err, shared.ErrTenantMismatch):
		return http.StatusUnauthorized, ErrCodeUnauthorized, "Tenant identification invalid"
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return GetHTTPStatus(domainErr.Code), domainErr.Code, domainErr.Message
	}
	return http.StatusInternalServerError, ErrCodeInternal, "An internal error occurred"
}
