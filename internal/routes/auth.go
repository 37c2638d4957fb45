package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/skyroute/skyroute-api/internal/account"
	"github.com/skyroute/skyroute-api/internal/verification"
)

// RegisterAuthRoutes wires the account and verification endpoints. The code
// request endpoint is rate limited; everything else is an unthrottled single
// round-trip to the store.
func RegisterAuthRoutes(r fiber.Router, accounts *account.Handler, verify *verification.Handler, rateLimiter fiber.Handler) {
	auth := r.Group("/auth")

	auth.Post("/verify", rateLimiter, verify.Verify)
	auth.Post("/register", accounts.Register)
	auth.Post("/login", accounts.Login)
	auth.Post("/find-id", accounts.FindID)
	auth.Post("/find-pw", accounts.FindPW)
}
