package tts

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/skyroute/skyroute-api/internal/validate"
)

// Handler exposes the /tts endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs the TTS HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type synthesizeRequest struct {
	Text  string `json:"text" validate:"required"`
	Voice string `json:"voice"`
	Lang  string `json:"lang"`
}

// Synthesize proxies the request upstream and streams back audio/mpeg bytes.
func (h *Handler) Synthesize(c *fiber.Ctx) error {
	var req synthesizeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	audio, err := h.service.Synthesize(c.UserContext(), req.Text, ResolveVoice(req.Voice, req.Lang))
	switch {
	case errors.Is(err, ErrTextRequired):
		return fiber.NewError(http.StatusBadRequest, "Text is required")
	case errors.Is(err, ErrUnavailable):
		return fiber.NewError(http.StatusInternalServerError, "Speech synthesis failed")
	case err != nil:
		return err
	}

	c.Set(fiber.HeaderContentType, "audio/mpeg")
	return c.Status(http.StatusOK).Send(audio)
}
