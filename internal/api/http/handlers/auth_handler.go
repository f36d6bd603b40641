package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/TronoSfera/Law-sub001/internal/api/dto"
	"github.com/TronoSfera/Law-sub001/internal/service"
)

// AuthHandler serves staff login and account creation.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Login POST /auth/staff/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, token, exp, err := h.service.LoginStaff(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		AccessToken: token,
		ExpiresAt:   exp,
		User:        adminUserResponse(user),
	}})
}

// CreateStaff POST /admin/staff.
func (h *AuthHandler) CreateStaff(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateStaffRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.service.CreateStaff(c.UserContext(), actor, service.CreateStaffInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": adminUserResponse(user)})
}
