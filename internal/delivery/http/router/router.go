// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"marketplace/internal/delivery/http/middleware"
	"marketplace/internal/delivery/http/router/handler"
	"marketplace/internal/domain/entity"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	RegistrationHandler *handler.RegistrationHandler
	AccountHandler      *handler.AccountHandler
	AdminHandler        *handler.AdminHandler
	AuthMiddleware      *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	registration   *handler.RegistrationHandler
	account        *handler.AccountHandler
	admin          *handler.AdminHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		registration:   params.RegistrationHandler,
		account:        params.AccountHandler,
		admin:          params.AdminHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)

	requireAccount := r.authMiddleware.RequireAccount

	// End-user accounts
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/register/request-otp", r.registration.RequestUserOtp)
		authGroup.POST("/register/verify-otp", r.registration.VerifyUserOtp)
		authGroup.POST("/register/complete", r.registration.CompleteRegistration)

		authGroup.POST("/login", r.account.Login(entity.RoleUser))
		authGroup.POST("/google", r.account.GoogleLogin)
		authGroup.POST("/refresh", r.account.Refresh)
		authGroup.POST("/logout", r.account.Logout, requireAccount)
		authGroup.POST("/logout-all", r.account.LogoutAll, requireAccount)
		authGroup.GET("/me", r.account.Me, requireAccount)

		authGroup.POST("/forgot-password", r.account.ForgotPassword)
		authGroup.POST("/verify-otp", r.account.VerifyResetOtp)
		authGroup.POST("/reset-password", r.account.ResetPassword)
		authGroup.POST("/change-password", r.account.ChangePassword, requireAccount)
	}

	// Service providers share the account gateway with their own login role
	providerGroup := e.Group("/providers")
	{
		providerGroup.POST("/register", r.registration.RegisterProvider)
		providerGroup.POST("/register/verify-otp", r.registration.VerifyProviderOtp)

		providerGroup.POST("/login", r.account.Login(entity.RoleProvider))
		providerGroup.POST("/logout", r.account.Logout, requireAccount)
		providerGroup.POST("/logout-all", r.account.LogoutAll, requireAccount)

		providerGroup.POST("/forgot-password", r.account.ForgotPassword)
		providerGroup.POST("/verify-otp", r.account.VerifyResetOtp)
		providerGroup.POST("/reset-password", r.account.ResetPassword)
		providerGroup.POST("/change-password", r.account.ChangePassword, requireAccount)
	}

	// Administrators
	adminGroup := e.Group("/admin")
	{
		adminGroup.POST("/login", r.admin.Login)
		adminGroup.POST("/refresh-token", r.admin.Refresh)
	}

	authenticated := adminGroup.Group("", r.authMiddleware.RequireAdministrator)
	{
		authenticated.GET("/me", r.admin.Me)
		authenticated.POST("/logout", r.admin.Logout)
		authenticated.GET("/accounts/:id", r.admin.GetAccount,
			r.authMiddleware.RequirePermission(entity.PermissionManageUsers))
	}

	administrators := authenticated.Group("/administrators", r.authMiddleware.RequireSuperAdmin)
	{
		administrators.GET("", r.admin.ListAdministrators)
		administrators.POST("", r.admin.CreateAdministrator)
		administrators.GET("/:id", r.admin.GetAdministrator)
		administrators.PATCH("/:id", r.admin.UpdateAdministrator)
		administrators.DELETE("/:id", r.admin.DeleteAdministrator)
		administrators.PATCH("/:id/toggle-active", r.admin.ToggleAdministrator)
	}
}
