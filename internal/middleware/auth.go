// Package middleware provides HTTP middleware for the wallet API.
package middleware

import (
	"strings"

	"aurum/internal/models"
	"aurum/internal/services/auth"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware validates JWT bearer tokens and attaches the user claims to
// the request context.
type AuthMiddleware struct {
	authService auth.Service
}

func NewAuthMiddleware(authService auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Handler rejects requests without a valid bearer token.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
	}

	claims, err := m.authService.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}

	c.Locals("claims", claims)
	return c.Next()
}

// AdminOnly gates the administrative routes. It assumes Handler ran first.
func (m *AuthMiddleware) AdminOnly(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims.Role != models.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin access required"})
	}
	return c.Next()
}
