package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new user account and returns a bearer token.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	if !result.IsAuthenticated {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: result.Message})
	}
	return c.JSON(http.StatusOK, toAuthResponse(result))
}

// Login authenticates a user and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/auth/Login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	if !result.IsAuthenticated {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: result.Message})
	}
	return c.JSON(http.StatusOK, toAuthResponse(result))
}

// AssignRole grants an existing role to an existing user.
//
// @Summary      Assign a role
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      assignRoleRequest  true  "User id and role name"
// @Success      200   {object}  assignRoleRequest
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/auth/Addrole [post]
func (h *AuthHandler) AssignRole(c echo.Context) error {
	var req assignRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := h.authService.AssignRole(c.Request().Context(), ports.AssignRoleInput{
		UserID: req.UserID,
		Role:   req.Role,
	})
	if err != nil {
		return err
	}
	if msg != "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
	}
	return c.JSON(http.StatusOK, req)
}

// Me returns the claims of the presented bearer token.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  meResponse
// @Failure      401   {object}  errorResponse
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMeResponse(claims))
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}
