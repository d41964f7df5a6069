package middleware

import (
	"errors"

	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/shared"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type TokenVerifier interface {
	ExtractTokenFromHeader(authHeader string) (string, error)
	VerifyJWTToken(token string) (*dto.AuthUser, error)
}

type RoleChecker interface {
	HasRole(userID, role string) (bool, error)
}

// CurrentUser returns the identity stored by RequiredAuth, or nil.
func CurrentUser(c *fiber.Ctx) *dto.AuthUser {
	user, _ := c.Locals(shared.AuthUser).(*dto.AuthUser)
	return user
}

func RequiredAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := verifier.ExtractTokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return shared.NewUnauthorizedError(err, "Unauthorized")
		}

		user, err := verifier.VerifyJWTToken(token)
		if err != nil {
			if errors.Is(err, shared.ErrServiceUnavailable) {
				return err
			}
			return shared.NewUnauthorizedError(err, "Unauthorized")
		}

		c.Locals(shared.AuthUser, user)
		c.Locals(shared.UserID, user.ID)
		c.Locals(shared.UserEmail, user.Email)
		return c.Next()
	}
}

// RequireRole must run after RequiredAuth.
func RequireRole(roles RoleChecker, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return shared.NewUnauthorizedError(nil, "Unauthorized")
		}

		ok, err := roles.HasRole(user.ID, role)
		if err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("Role lookup failed")
			return shared.NewInternalError(err, "Internal Server Error")
		}
		if !ok {
			return shared.NewForbiddenError(nil, "Forbidden")
		}

		c.Locals(shared.UserRole, role)
		return c.Next()
	}
}
