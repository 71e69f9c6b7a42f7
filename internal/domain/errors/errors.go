package errors

import (
	"net/http"

	"marketplace/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// WithMessage returns a copy carrying a different user-facing message
func (e *BaseError) WithMessage(message string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   message,
		details:   e.details,
	}
}

// Is matches copies made by WithDetails and WithMessage against the original
func (e *BaseError) Is(target error) bool {
	other, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return e.errorCode == other.errorCode && e.httpCode == other.httpCode
}

// Predefined error types
var (
	// User input errors
	ErrInvalidInput = NewBaseError(
		http.StatusBadRequest,
		"INVALID_INPUT",
		"Invalid input",
		"",
	)

	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Request validation failed",
		"",
	)

	ErrOtpShape = NewBaseError(
		http.StatusBadRequest,
		"INVALID_INPUT",
		"OTP must be exactly six digits",
		"",
	)

	ErrPasswordTooShort = NewBaseError(
		http.StatusBadRequest,
		"INVALID_INPUT",
		"Password is too short",
		"",
	)

	ErrPasswordTooLong = NewBaseError(
		http.StatusBadRequest,
		"INVALID_INPUT",
		"Password must be at most 72 bytes",
		"",
	)

	ErrInvalidFullName = NewBaseError(
		http.StatusBadRequest,
		"INVALID_INPUT",
		"Full name must be between 2 and 100 characters",
		"",
	)

	// Registration errors
	ErrAlreadyRegistered = NewBaseError(
		http.StatusBadRequest,
		"ALREADY_REGISTERED",
		"An account already exists for this email or phone",
		"",
	)

	ErrContactMismatch = NewBaseError(
		http.StatusBadRequest,
		"CONTACT_MISMATCH",
		"Contact does not match the pending registration",
		"",
	)

	ErrIncompletePayload = NewBaseError(
		http.StatusBadRequest,
		"INCOMPLETE_PAYLOAD",
		"Full name, password and terms acceptance are required",
		"",
	)

	ErrPendingRegistrationNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"No pending registration for this contact",
		"",
	)

	// OTP errors
	ErrOtpInvalid = NewBaseError(
		http.StatusBadRequest,
		"OTP_INVALID",
		"Invalid OTP",
		"",
	)

	ErrOtpExpired = NewBaseError(
		http.StatusBadRequest,
		"OTP_EXPIRED",
		"OTP has expired, please request a new one",
		"",
	)

	ErrDeliveryFailed = NewBaseError(
		http.StatusInternalServerError,
		"DELIVERY_FAILED",
		"Could not deliver the verification code",
		"",
	)

	ErrWeakRandom = NewBaseError(
		http.StatusInternalServerError,
		"WEAK_RANDOM",
		"Secure random source unavailable",
		"",
	)

	// Authentication errors
	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"Invalid credentials",
		"",
	)

	ErrInvalidToken = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_TOKEN",
		"Invalid or expired token",
		"",
	)

	ErrExpiredToken = NewBaseError(
		http.StatusUnauthorized,
		"EXPIRED_TOKEN",
		"Token has expired",
		"",
	)

	ErrUnauthorized = NewBaseError(
		http.StatusUnauthorized,
		"UNAUTHORIZED",
		"Authentication required",
		"",
	)

	ErrAccountDeactivated = NewBaseError(
		http.StatusForbidden,
		"ACCOUNT_DEACTIVATED",
		"Account is deactivated",
		"",
	)

	ErrVerificationRejected = NewBaseError(
		http.StatusForbidden,
		"VERIFICATION_REJECTED",
		"Provider verification was rejected",
		"",
	)

	ErrPasswordNotSet = NewBaseError(
		http.StatusBadRequest,
		"PASSWORD_NOT_SET",
		"This account signs in with an external provider",
		"",
	)

	ErrPasswordMismatch = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"Current password is incorrect",
		"",
	)

	ErrPasswordUnchanged = NewBaseError(
		http.StatusBadRequest,
		"PASSWORD_UNCHANGED",
		"New password must differ from the current one",
		"",
	)

	ErrSessionLimitExceeded = NewBaseError(
		http.StatusTooManyRequests,
		"SESSION_LIMIT_EXCEEDED",
		"Maximum number of active sessions reached",
		"",
	)

	ErrTooManyRequests = NewBaseError(
		http.StatusTooManyRequests,
		"TOO_MANY_REQUESTS",
		"Too many attempts, please try again later",
		"",
	)

	// OAuth errors
	ErrOAuthTokenInvalid = NewBaseError(
		http.StatusUnauthorized,
		"OAUTH_TOKEN_INVALID",
		"Invalid ID token",
		"",
	)

	ErrOAuthNotConfigured = NewBaseError(
		http.StatusBadRequest,
		"OAUTH_NOT_CONFIGURED",
		"Federated sign-in is not enabled",
		"",
	)

	// Administrators errors
	ErrAdministratorNotFound = NewBaseError(
		http.StatusNotFound,
		"ADMINISTRATOR_NOT_FOUND",
		"Administrator not found",
		"",
	)

	ErrAdministratorEmailTaken = NewBaseError(
		http.StatusBadRequest,
		"ALREADY_REGISTERED",
		"An administrator with this email already exists",
		"",
	)

	ErrSelfActionForbidden = NewBaseError(
		http.StatusForbidden,
		"FORBIDDEN",
		"Administrators cannot delete, deactivate or demote themselves",
		"",
	)

	ErrAccountNotFound = NewBaseError(
		http.StatusNotFound,
		"ACCOUNT_NOT_FOUND",
		"Account not found",
		"",
	)

	// Transaction errors
	ErrTransactionFailed = NewBaseError(
		http.StatusInternalServerError,
		"TRANSACTION_FAILED",
		"Database transaction failed",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"Internal server error",
		"",
	)

	ErrForbidden = NewBaseError(
		http.StatusForbidden,
		"FORBIDDEN",
		"Access denied",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"Resource not found",
		"",
	)

	ErrConflict = NewBaseError(
		http.StatusConflict,
		"CONFLICT",
		"Resource conflict",
		"",
	)
)

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "Database execution failed"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}
