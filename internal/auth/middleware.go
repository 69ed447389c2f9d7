package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

const profileKey = "auth_profile"

// Middleware validates bearer tokens and loads the caller's profile.
type Middleware struct {
	verifier *Verifier
}

// NewMiddleware constructs middleware.
func NewMiddleware(verifier *Verifier) *Middleware {
	return &Middleware{verifier: verifier}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	profile, err := m.verifier.VerifyToken(c.Context(), parts[1])
	if err != nil {
		if err == ErrInvalidToken {
			return apperrors.NewUnauthorized("invalid token")
		}
		return apperrors.MapError(err)
	}

	c.Locals(profileKey, profile)
	return c.Next()
}

// ProfileFromContext retrieves the authenticated profile.
func ProfileFromContext(c *fiber.Ctx) (*domain.Profile, bool) {
	val := c.Locals(profileKey)
	if val == nil {
		return nil, false
	}
	profile, ok := val.(*domain.Profile)
	return profile, ok
}

// PrincipalFromContext retrieves the authorization view of the caller.
func PrincipalFromContext(c *fiber.Ctx) (domain.Principal, bool) {
	profile, ok := ProfileFromContext(c)
	if !ok {
		return domain.Principal{}, false
	}
	return profile.Principal(), true
}
