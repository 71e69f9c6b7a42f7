package handler

import (
	"net/http"
	"strings"

	"marketplace/internal/delivery/http/response"
	"marketplace/internal/domain/entity"
	"marketplace/internal/errors"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
)

// AccountHandler serves sign-in, session and password endpoints for
// end-user accounts. The /auth and /providers route families share it and
// differ only in the role they expect at login.
type AccountHandler struct {
	auth      usecase.AccountAuthUsecase
	passwords usecase.PasswordUsecase
}

// NewAccountHandler is the constructor for AccountHandler, injected by Fx.
func NewAccountHandler(auth usecase.AccountAuthUsecase, passwords usecase.PasswordUsecase) *AccountHandler {
	return &AccountHandler{auth: auth, passwords: passwords}
}

type loginRequest struct {
	contactRequest
	Password string `json:"password" validate:"required,max=72"`
}

type googleLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
	Role    string `json:"role" validate:"omitempty,eq=user"`
}

type forgotPasswordRequest struct {
	contactRequest
}

type verifyResetRequest struct {
	contactRequest
	Otp string `json:"otp" validate:"required"`
}

type resetPasswordRequest struct {
	ResetToken  string `json:"resetToken" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,max=72"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,max=72"`
}

// Login returns the login handler for the given account role.
func (h *AccountHandler) Login(role entity.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		if err := req.present(); err != nil {
			return err
		}

		session, err := h.auth.Login(c.Request().Context(), &usecase.AccountLoginInput{
			Email:        req.Email,
			Phone:        req.Phone,
			Password:     req.Password,
			ExpectedRole: role,
			Device:       deviceInfo(c),
		})
		if err != nil {
			return errors.WithStack(err)
		}

		return sessionResponse(c, http.StatusOK, session, "Login successful")
	}
}

// GoogleLogin handles POST /auth/google with a client-obtained ID token.
func (h *AccountHandler) GoogleLogin(c echo.Context) error {
	var req googleLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := h.auth.GoogleLogin(c.Request().Context(), &usecase.GoogleLoginInput{
		IDToken: req.IDToken,
		Device:  deviceInfo(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return sessionResponse(c, http.StatusOK, session, "Login successful")
}

// Refresh handles POST /auth/refresh.
func (h *AccountHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	tokens, err := h.auth.Refresh(c.Request().Context(), &usecase.RefreshInput{
		RefreshToken: strings.TrimSpace(req.RefreshToken),
		Device:       deviceInfo(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, tokens, "Token refreshed successfully")
}

// Logout revokes the presented refresh token. An empty body still succeeds.
func (h *AccountHandler) Logout(c echo.Context) error {
	id, err := principalID(c)
	if err != nil {
		return err
	}

	var req logoutRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.auth.Logout(c.Request().Context(), &usecase.LogoutInput{
		PrincipalID:  id,
		RefreshToken: strings.TrimSpace(req.RefreshToken),
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, nil, "Logout successful")
}

// LogoutAll revokes every live session of the account.
func (h *AccountHandler) LogoutAll(c echo.Context) error {
	id, err := principalID(c)
	if err != nil {
		return err
	}

	revoked, err := h.auth.LogoutAll(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, map[string]int64{"revokedSessions": revoked}, "Logged out from all devices")
}

// Me returns the authenticated account.
func (h *AccountHandler) Me(c echo.Context) error {
	id, err := principalID(c)
	if err != nil {
		return err
	}

	summary, err := h.auth.Me(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, summary, "")
}

// ForgotPassword answers identically whether or not the contact is known.
func (h *AccountHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := req.present(); err != nil {
		return err
	}

	if err := h.passwords.RequestReset(c.Request().Context(), &usecase.ResetRequestInput{
		Email: req.Email,
		Phone: req.Phone,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, nil, "If the account exists, a reset code has been sent")
}

// VerifyResetOtp exchanges a reset code for a reset token.
func (h *AccountHandler) VerifyResetOtp(c echo.Context) error {
	var req verifyResetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := req.present(); err != nil {
		return err
	}

	output, err := h.passwords.VerifyReset(c.Request().Context(), &usecase.VerifyResetInput{
		Email: req.Email,
		Phone: req.Phone,
		Otp:   strings.TrimSpace(req.Otp),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, output, "Reset code verified")
}

// ResetPassword applies a new password with a reset token.
func (h *AccountHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.passwords.ApplyReset(c.Request().Context(), &usecase.ApplyResetInput{
		ResetToken:  strings.TrimSpace(req.ResetToken),
		NewPassword: req.NewPassword,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, nil, "Password has been reset")
}

// ChangePassword handles an authenticated password change.
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	id, err := principalID(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.passwords.ChangePassword(c.Request().Context(), &usecase.ChangePasswordInput{
		AccountID:       id,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, nil, "Password changed successfully")
}
