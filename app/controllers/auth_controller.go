package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/auth"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/security"
)

// AuthController handles email verification and account creation.
type AuthController struct {
	svc      *auth.Service
	validate *validator.Validate
}

// NewAuthController wires the auth endpoints.
func NewAuthController(svc *auth.Service) *AuthController {
	return &AuthController{svc: svc, validate: validator.New()}
}

type requestCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleRequestCode sends a one-time verification code to an email address.
func (ac *AuthController) HandleRequestCode(c *fiber.Ctx) error {
	var req requestCodeRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument"})
	}
	if err := ac.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument", "message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := ac.svc.RequestVerificationCode(ctx, req.Email)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"sent": true})
	case errors.Is(err, auth.ErrTooManyAttempts):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "resource_exhausted"})
	default:
		log.Errorf("verification code request failed: %s", security.Redact(err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}
}

type verifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

// HandleVerifyCode checks and consumes a one-time code.
func (ac *AuthController) HandleVerifyCode(c *fiber.Ctx) error {
	var req verifyCodeRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument"})
	}
	if err := ac.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument", "message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := ac.svc.VerifyCode(ctx, req.Email, req.Code)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"verified": true})
	case errors.Is(err, auth.ErrCodeExpired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "code_expired"})
	case errors.Is(err, auth.ErrInvalidCode):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_code"})
	case errors.Is(err, auth.ErrTooManyAttempts):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too_many_attempts"})
	default:
		log.Errorf("code verification failed: %s", security.Redact(err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// HandleRegister creates an account for a previously verified email.
func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument"})
	}
	if err := ac.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_argument", "message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := ac.svc.Register(ctx, req.Name, req.Email, req.Password)
	switch {
	case err == nil:
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"user":     result.User,
			"apiToken": result.APIToken,
		})
	case errors.Is(err, auth.ErrEmailNotVerified):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "email_not_verified"})
	case errors.Is(err, auth.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email_taken"})
	default:
		log.Errorf("registration failed: %s", security.Redact(err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}
}
