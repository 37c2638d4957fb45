package verification

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/skyroute/skyroute-api/internal/validate"
)

// Handler exposes the verification endpoint under /auth.
type Handler struct {
	service *Service
}

// NewHandler constructs a verification HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Type  string `json:"type" validate:"omitempty,oneof=register reset"`
	// The reset flow also submits the user id; it is accepted and ignored.
	UserID string `json:"userId"`
}

// Verify issues a fresh code for the email, invalidating any prior one.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if err := h.service.Issue(c.UserContext(), req.Email, req.Type); err != nil {
		if errors.Is(err, ErrEmailRequired) {
			return fiber.NewError(http.StatusBadRequest, "Email is required")
		}
		return err
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Code sent"})
}
