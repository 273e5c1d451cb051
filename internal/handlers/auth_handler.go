package handlers

import (
	"context"
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/makalov0/M-money-web-backoffice--sub000/internal/models"
	"github.com/makalov0/M-money-web-backoffice--sub000/internal/services"
	"github.com/makalov0/M-money-web-backoffice--sub000/pkg/utils"
)

type staffAuthReader interface {
	GetByEmail(ctx context.Context, email string) (*models.StaffUser, error)
}

type AuthHandler struct {
	staff     staffAuthReader
	audit     *services.AuditService
	jwtSecret string
}

func NewAuthHandler(staff staffAuthReader, audit *services.AuditService, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		staff:     staff,
		audit:     audit,
		jwtSecret: jwtSecret,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	parsedEmail, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and password are required"})
	}
	email := strings.ToLower(parsedEmail.Address)

	staff, err := h.staff.GetByEmail(c.Context(), email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to look up account"})
	}

	if !utils.CheckPassword(req.Password, staff.PasswordHash) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}
	if staff.Status != models.StaffActive {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Account is inactive"})
	}

	token, err := utils.GenerateToken(strconv.FormatInt(staff.ID, 10), string(staff.Role), h.jwtSecret)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to issue token"})
	}

	h.audit.Record(c.Context(), string(staff.Role), strconv.FormatInt(staff.ID, 10), "auth.login", email)

	return c.JSON(fiber.Map{
		"token": token,
		"user":  staff,
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	role, _ := c.Locals("role").(string)
	return c.JSON(fiber.Map{
		"user_id": userID,
		"role":    role,
	})
}
