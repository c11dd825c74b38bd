package errors

import "net/http"

const (
	CodeTransientExternal    = "TRANSIENT_EXTERNAL"
	CodeResourceConflict     = "RESOURCE_CONFLICT"
	CodeSchemaViolation      = "SCHEMA_VIOLATION"
	CodeConfigurationMissing = "CONFIGURATION_MISSING"
)

var (
	// ErrQuotaExceeded is a rate-limit response from an external service.
	ErrQuotaExceeded = New(
		CodeTransientExternal,
		"External service quota exceeded",
		http.StatusTooManyRequests,
	)

	// ErrResourceConflict means the resource already exists; callers treat it as success.
	ErrResourceConflict = New(
		CodeResourceConflict,
		"Resource already exists",
		http.StatusConflict,
	)

	ErrSchemaViolation = New(
		CodeSchemaViolation,
		"Source data violates the expected schema",
		http.StatusUnprocessableEntity,
	)

	ErrConfigurationMissing = New(
		CodeConfigurationMissing,
		"Required configuration is missing",
		http.StatusInternalServerError,
	)

	ErrExternalService = New(
		"EXTERNAL_SERVICE_ERROR",
		"External service request failed",
		http.StatusBadGateway,
	)

	ErrTableNotFound = New(
		"TABLE_NOT_FOUND",
		"Table not found",
		http.StatusNotFound,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
