package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-routing-service/internal/domain"
	apperrors "github.com/spec-kit/case-routing-service/pkg/util"
)

// RequireTier ensures the principal's access tier meets the given minimum.
func RequireTier(min domain.AccessTier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Tier.AtLeast(min) {
			return apperrors.NewForbidden("insufficient tier")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a principal is present regardless of tier.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
