package middleware

import (
	"context"

	"setoran-pa/internal/core/domain"
	"setoran-pa/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ProfileSource reads the profile of the stored session
type ProfileSource interface {
	Profile(ctx context.Context) (domain.Profile, error)
}

// RequireSession rejects requests while no credentials are stored. It guards
// routes that never reach the backend, such as the pending selection.
// Expired tokens pass.
func RequireSession(session ProfileSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := session.Profile(c.UserContext()); err != nil {
			return response.FromError(c, err)
		}
		return c.Next()
	}
}
