package middleware

import (
	"inkwell/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// TokenParser verifies a raw bearer token.
type TokenParser interface {
	Parse(raw string) (auth.Identity, error)
}

// AuthGate verifies an optional bearer token and attaches the resulting identity.
// It never rejects a request: an absent or invalid token yields an anonymous caller
// and handlers decide whether authentication is required. WebSocket upgrades may
// pass the token in the "token" query parameter instead of the header.
func AuthGate(tokens TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := auth.Anonymous()

		raw, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			raw = c.Query("token")
		}
		if raw != "" {
			if parsed, err := tokens.Parse(raw); err == nil {
				id = parsed
			}
		}

		if id.Authenticated {
			c.Locals("userID", id.UserID)
		}
		c.Locals("isAuth", id.Authenticated)
		c.SetUserContext(auth.WithIdentity(c.UserContext(), id))

		return c.Next()
	}
}

// Identity returns the caller attached by AuthGate.
func Identity(c *fiber.Ctx) auth.Identity {
	return auth.IdentityFromContext(c.UserContext())
}
