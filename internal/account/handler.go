package account

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/skyroute/skyroute-api/internal/validate"
	"github.com/skyroute/skyroute-api/internal/verification"
)

// Handler exposes the account endpoints under /auth.
type Handler struct {
	service *Service
}

// NewHandler constructs an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Password string `json:"password" validate:"required,min=4"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
}

type loginRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type findIDRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type findPWRequest struct {
	UserID      string `json:"userId" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=4"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
}

// Register creates an account after checking the email verification code.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	err := h.service.Register(c.UserContext(), RegisterInput{
		UserID:   req.UserID,
		Password: req.Password,
		Name:     req.Name,
		Email:    req.Email,
		Code:     req.Code,
	})
	switch {
	case errors.Is(err, verification.ErrInvalidCode):
		return fiber.NewError(http.StatusBadRequest, "Invalid verification code")
	case errors.Is(err, ErrDuplicateID):
		return fiber.NewError(http.StatusBadRequest, "ID already exists")
	case errors.Is(err, ErrWeakPassword):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

// Login verifies credentials and returns the display name.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	name, err := h.service.Login(c.UserContext(), req.UserID, req.Password)
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "User not found")
	case errors.Is(err, ErrInvalidPassword):
		return fiber.NewError(http.StatusUnauthorized, "Invalid password")
	case err != nil:
		return err
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "name": name})
}

// FindID recovers an account identifier from name and email.
func (h *Handler) FindID(c *fiber.Ctx) error {
	var req findIDRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	userID, err := h.service.FindID(c.UserContext(), req.Name, req.Email)
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "No matching account")
	case err != nil:
		return err
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"userId": userID})
}

// FindPW resets the password after re-validating a verification code sent to
// the account's stored email.
func (h *Handler) FindPW(c *fiber.Ctx) error {
	var req findPWRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	err := h.service.ResetPassword(c.UserContext(), req.UserID, req.NewPassword, req.Code)
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "User not found")
	case errors.Is(err, verification.ErrInvalidCode):
		return fiber.NewError(http.StatusBadRequest, "Invalid verification code")
	case errors.Is(err, ErrWeakPassword):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}
