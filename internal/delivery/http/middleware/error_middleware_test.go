package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace/config"
	"marketplace/internal/delivery/http/response"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/errors"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newErrorMiddleware(env string) *ErrorMiddleware {
	cfg := &config.Config{}
	cfg.Env.Env = env

	return NewErrorMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
}

func TestHandleHTTPError(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
		wantDetails string
	}{
		{
			name:        "wrapped domain error",
			env:         "dev",
			err:         errors.Wrap(domainerrors.ErrOtpExpired, "verify"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "OTP_EXPIRED",
			wantMessage: domainerrors.ErrOtpExpired.Message(),
		},
		{
			name:        "details shown outside production",
			env:         "dev",
			err:         domainerrors.ErrInvalidInput.WithDetails("email: must be a valid email"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "INVALID_INPUT",
			wantMessage: domainerrors.ErrInvalidInput.Message(),
			wantDetails: "email: must be a valid email",
		},
		{
			name:        "details hidden in production",
			env:         "production",
			err:         domainerrors.ErrInvalidInput.WithDetails("email: must be a valid email"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "INVALID_INPUT",
			wantMessage: domainerrors.ErrInvalidInput.Message(),
		},
		{
			name:        "echo not found",
			env:         "dev",
			err:         echo.ErrNotFound,
			wantStatus:  http.StatusNotFound,
			wantCode:    "NOT_FOUND",
			wantMessage: "Not Found",
		},
		{
			name:        "echo body limit",
			env:         "dev",
			err:         echo.ErrStatusRequestEntityTooLarge,
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantCode:    "PAYLOAD_TOO_LARGE",
			wantMessage: "Request Entity Too Large",
		},
		{
			name:        "unknown error in production",
			env:         "prod",
			err:         errors.New("pq: connection reset"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL_ERROR",
			wantMessage: "Internal server error, please try again later",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			newErrorMiddleware(tt.env).HandleHTTPError(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body response.Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantMessage, body.Message)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantDetails, body.Error.Details)
		})
	}
}

func TestHandleHTTPError_CommittedResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, c.String(http.StatusAccepted, "done"))

	newErrorMiddleware("dev").HandleHTTPError(domainerrors.ErrForbidden, c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "done", rec.Body.String())
}
