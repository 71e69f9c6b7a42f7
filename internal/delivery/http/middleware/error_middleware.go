package middleware

import (
	"log/slog"
	"net/http"

	"marketplace/config"
	deliverycontext "marketplace/internal/delivery/context"
	"marketplace/internal/delivery/http/response"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/errors"

	"github.com/labstack/echo/v4"
)

// ErrorMiddleware renders every error returned by a handler as the response envelope.
type ErrorMiddleware struct {
	logger      *slog.Logger
	showDetails bool
}

// NewErrorMiddleware creates a new error handling middleware. Details are
// exposed outside production only.
func NewErrorMiddleware(logger *slog.Logger, cfg *config.Config) *ErrorMiddleware {
	return &ErrorMiddleware{
		logger:      logger,
		showDetails: !cfg.IsProduction(),
	}
}

// HandleHTTPError handles errors as Echo's HTTPErrorHandler
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	logger := deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger)

	if appErr, ok := errors.AsType[domainerrors.AppError](err); ok {
		if appErr.HTTPCode() >= http.StatusInternalServerError {
			logger.Error("Request failed", slog.Any("error", err), slog.String("code", appErr.ErrorCode()))
		}
		_ = response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), m.details(appErr.Details()))

		return
	}

	if httpErr, ok := errors.AsType[*echo.HTTPError](err); ok {
		message := http.StatusText(httpErr.Code)
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
		_ = response.Error(c, httpErr.Code, httpStatusCode(httpErr.Code), message, "")

		return
	}

	// Anything else is a bug or an infrastructure failure: log it, reveal nothing.
	logger.Error("Unhandled error",
		slog.Any("error", err),
		slog.String("path", c.Request().URL.Path),
		slog.String("method", c.Request().Method),
	)

	_ = response.Error(c, http.StatusInternalServerError, domainerrors.ErrInternalError.ErrorCode(),
		"Internal server error, please try again later", m.details(err.Error()))
}

func (m *ErrorMiddleware) details(details string) string {
	if !m.showDetails {
		return ""
	}

	return details
}

func httpStatusCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return domainerrors.ErrNotFound.ErrorCode()
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusUnauthorized:
		return domainerrors.ErrUnauthorized.ErrorCode()
	case http.StatusBadRequest:
		return domainerrors.ErrInvalidInput.ErrorCode()
	default:
		return "HTTP_ERROR"
	}
}
