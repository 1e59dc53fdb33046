// Package handlers exposes the wallet engine over HTTP. Handlers stay thin:
// parse, delegate, map errors. All balance semantics live in the services.
package handlers

import (
	"errors"

	"aurum/internal/models"
	"aurum/internal/services/auth"
	"aurum/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService auth.Service
}

func NewAuthHandler(authService auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	if input.Email == "" || input.Password == "" {
		return response.BadRequest(c, "email and password are required")
	}

	user, err := h.authService.Register(c.Context(), input.Email, input.Password, models.RoleUser)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{"id": user.ID, "email": user.Email},
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	user, token, err := h.authService.Login(c.Context(), input.Email, input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return response.Unauthorized(c)
		}
		return response.ServerError(c, "login failed")
	}
	return response.Success(c, fiber.Map{
		"token": token,
		"user":  fiber.Map{"id": user.ID, "email": user.Email, "role": user.Role},
	})
}
