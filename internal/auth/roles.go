package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// RequireActive rejects requests whose principal is missing or deactivated.
func RequireActive() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || !principal.IsActive {
			return apperrors.NewUnauthenticated()
		}
		return c.Next()
	}
}

// RequireSuperuser ensures the principal carries the superuser flag.
func RequireSuperuser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated()
		}
		if !principal.IsSuperuser {
			return apperrors.NewForbidden("superuser privileges required")
		}
		return c.Next()
	}
}
