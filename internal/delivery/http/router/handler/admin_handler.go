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

// AdminHandler serves administrator sign-in, administrator management and
// the read-only account lookup.
type AdminHandler struct {
	auth     usecase.AdminAuthUsecase
	admins   usecase.AdministratorUsecase
	accounts usecase.AccountQueryUsecase
}

// NewAdminHandler is the constructor for AdminHandler, injected by Fx.
func NewAdminHandler(
	auth usecase.AdminAuthUsecase,
	admins usecase.AdministratorUsecase,
	accounts usecase.AccountQueryUsecase,
) *AdminHandler {
	return &AdminHandler{auth: auth, admins: admins, accounts: accounts}
}

type adminLoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

type createAdministratorRequest struct {
	FullName    string   `json:"fullName" validate:"required,max=100"`
	Email       string   `json:"email" validate:"required,email,max=255"`
	Password    string   `json:"password" validate:"required,max=72"`
	Role        string   `json:"role" validate:"omitempty,oneof=super-admin admin"`
	Permissions []string `json:"permissions"`
}

type updateAdministratorRequest struct {
	FullName    *string   `json:"fullName" validate:"omitempty,max=100"`
	Email       *string   `json:"email" validate:"omitempty,email,max=255"`
	Password    *string   `json:"password" validate:"omitempty,max=72"`
	Role        *string   `json:"role" validate:"omitempty,oneof=super-admin admin"`
	Permissions *[]string `json:"permissions"`
}

// Login handles POST /admin/login.
func (h *AdminHandler) Login(c echo.Context) error {
	var req adminLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Login(c.Request().Context(), &usecase.AdminLoginInput{
		Email:    req.Email,
		Password: req.Password,
		Device:   deviceInfo(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return sessionResponse(c, http.StatusOK, session, "Login successful")
}

// Refresh handles POST /admin/refresh-token.
func (h *AdminHandler) Refresh(c echo.Context) error {
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

// Logout revokes the presented administrator refresh token.
func (h *AdminHandler) Logout(c echo.Context) error {
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

// Me handles GET /admin/me.
func (h *AdminHandler) Me(c echo.Context) error {
	id, err := principalID(c)
	if err != nil {
		return err
	}

	admin, err := h.auth.Me(c.Request().Context(), id)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, admin, "")
}

// ListAdministrators handles GET /admin/administrators.
func (h *AdminHandler) ListAdministrators(c echo.Context) error {
	actorID, err := principalID(c)
	if err != nil {
		return err
	}

	admins, err := h.admins.List(c.Request().Context(), actorID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, admins, "")
}

// CreateAdministrator handles POST /admin/administrators.
func (h *AdminHandler) CreateAdministrator(c echo.Context) error {
	actorID, err := principalID(c)
	if err != nil {
		return err
	}

	var req createAdministratorRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	admin, err := h.admins.Create(c.Request().Context(), &usecase.CreateAdministratorInput{
		ActorID:     actorID,
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		Role:        entity.AdminRole(req.Role),
		Permissions: req.Permissions,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Created(c, admin, "Administrator created")
}

// GetAdministrator handles GET /admin/administrators/:id.
func (h *AdminHandler) GetAdministrator(c echo.Context) error {
	actorID, err := principalID(c)
	if err != nil {
		return err
	}
	targetID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	admin, err := h.admins.Get(c.Request().Context(), actorID, targetID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, admin, "")
}

// UpdateAdministrator handles PATCH /admin/administrators/:id.
func (h *AdminHandler) UpdateAdministrator(c echo.Context) error {
	actorID, err := principalID(c)
	if err != nil {
		return err
	}
	targetID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var req updateAdministratorRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	input := &usecase.UpdateAdministratorInput{
		ActorID:     actorID,
		TargetID:    targetID,
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		Permissions: req.Permissions,
	}
	if req.Role != nil {
		role := entity.AdminRole(*req.Role)
		input.Role = &role
	}

	admin, err := h.admins.Update(c.Request().Context(), input)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, admin, "Administrator updated")
}

// DeleteAdministrator handles DELETE /admin/administrators/:id.
func (h *AdminHandler) DeleteAdministrator(c echo.Context) error {
	actorID, err := principalID(c)
	if err != nil {
		return err
	}
	targetID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.admins.Delete(c.Request().Context(), actorID, targetID); err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, nil, "Administrator deleted")
}

// ToggleAdministrator handles PATCH /admin/administrators/:id/toggle-active.
func (h *AdminHandler) ToggleAdministrator(c echo.Context) error {
	actorID, err := principalID(c)
	if err != nil {
		return err
	}
	targetID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	admin, err := h.admins.ToggleActive(c.Request().Context(), actorID, targetID)
	if err != nil {
		return errors.WithStack(err)
	}

	message := "Administrator deactivated"
	if admin.Active {
		message = "Administrator activated"
	}

	return response.OK(c, admin, message)
}

// GetAccount handles GET /admin/accounts/:id.
func (h *AdminHandler) GetAccount(c echo.Context) error {
	accountID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	account, err := h.accounts.Get(c.Request().Context(), accountID)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.OK(c, account, "")
}
