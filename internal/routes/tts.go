package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/skyroute/skyroute-api/internal/tts"
)

// RegisterTTSRoutes wires the speech synthesis proxy endpoint.
func RegisterTTSRoutes(r fiber.Router, handler *tts.Handler) {
	r.Post("/tts", handler.Synthesize)
}
