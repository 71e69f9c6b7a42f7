// Package handler contains the HTTP handlers for the identity endpoints.
package handler

import (
	"strings"

	deliverycontext "marketplace/internal/delivery/context"
	"marketplace/internal/delivery/http/response"
	"marketplace/internal/domain/entity"
	domainerrors "marketplace/internal/domain/errors"
	"marketplace/internal/errors"
	"marketplace/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const maxUserAgentLength = 255

// HealthCheck answers liveness probes.
func HealthCheck(c echo.Context) error {
	return response.OK(c, map[string]string{"status": "ok"}, "Service is healthy")
}

// bind decodes the request into req and runs the struct validator.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errors.WithStack(domainerrors.ErrInvalidInput.WithMessage("Invalid request body").WithDetails(err.Error()))
	}
	if err := c.Validate(req); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// deviceInfo captures the calling client for the refresh-token record.
func deviceInfo(c echo.Context) entity.DeviceInfo {
	userAgent := c.Request().UserAgent()
	if len(userAgent) > maxUserAgentLength {
		userAgent = userAgent[:maxUserAgentLength]
	}

	return entity.DeviceInfo{UserAgent: userAgent, IP: c.RealIP()}
}

// principalID returns the ID set by the auth middleware.
func principalID(c echo.Context) (uuid.UUID, error) {
	principal, ok := deliverycontext.GetPrincipal(c)
	if !ok {
		return uuid.Nil, errors.WithStack(domainerrors.ErrUnauthorized)
	}

	return principal.ID, nil
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		return uuid.Nil, errors.WithStack(domainerrors.ErrInvalidInput.WithMessage("Invalid " + name))
	}

	return id, nil
}

// sessionResponse renders a signed-in principal. Registrations answer 201.
func sessionResponse(c echo.Context, status int, session *usecase.AuthSession, message string) error {
	return response.Success(c, status, session, message)
}

// --- Shared request bodies ---

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type contactRequest struct {
	Email string `json:"email" validate:"omitempty,email,max=255"`
	Phone string `json:"phone" validate:"omitempty,phone"`
}

func (r contactRequest) present() error {
	if strings.TrimSpace(r.Email) == "" && strings.TrimSpace(r.Phone) == "" {
		return errors.WithStack(domainerrors.ErrInvalidInput.WithMessage("Email or phone is required"))
	}

	return nil
}
