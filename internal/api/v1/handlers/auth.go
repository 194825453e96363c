package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"taskflow/internal/config"
	"taskflow/internal/models"
	"taskflow/pkg/logger"
	"taskflow/pkg/totp"
)

// Auth handlers

// issueToken membuat JWT berisi user_id dengan masa berlaku 1 jam.
func issueToken(userID int) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour * 1).Unix(),
	})
	return token.SignedString(config.SecretKey)
}

func Register(c *fiber.Ctx) error {
	// struct RegisterRequest menerima inputan dari user
	type RegisterRequest struct {
		Username string `json:"username" validate:"required,excludesall=@?"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}

	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in register", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	// Validasi dengan validator
	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during register", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	// validasi email harus ada @ dan .
	if !strings.Contains(req.Email, "@") || !strings.Contains(req.Email, ".") {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid email format",
			"success": false,
			"status":  400,
		})
	}

	userID, err := config.Store.CreateAccount(c.Context(), req.Username, req.Password, req.Email, false)
	if err != nil {
		return fail(c, err)
	}

	// Email konfirmasi bersifat fire-and-forget: kegagalan kirim tidak
	// membatalkan pembuatan akun, cukup di-log.
	body := fmt.Sprintf("Hello %s,\n\nYour account has been created successfully.\nThank you for signing up to TaskFlow!", req.Username)
	if err := config.Mailer.Send(req.Email, "Account confirmation", body); err != nil {
		logger.ErrorLogger.Error("Error sending confirmation email", zap.Error(err))
	}

	logger.AuditLogger.Info("User registered successfully", zap.Int("userID", userID))
	return c.Status(201).JSON(fiber.Map{
		"message": "User created successfully",
		"success": true,
		"status":  201,
		"data": fiber.Map{
			"id": userID,
		},
	})
}

// Login tahap pertama: verifikasi password (Argon2), lalu kirim kode
// TOTP ke email user. Token JWT baru diberikan setelah kode terverifikasi
// di VerifyLogin.
func Login(c *fiber.Ctx) error {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in login", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during login", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	// Fail closed: email tak dikenal, akun Google tanpa password,
	// dan hash tidak cocok semuanya jadi 401 yang sama.
	if !config.Store.VerifyCredentials(c.Context(), req.Email, req.Password) {
		logger.SecurityLogger.Warn("Invalid credentials", zap.String("email", req.Email))
		return c.Status(401).JSON(fiber.Map{
			"message": "Invalid credentials",
			"success": false,
			"status":  401,
		})
	}

	secret, err := config.Store.GetOrCreateTotpSecret(c.Context(), req.Email)
	if err != nil {
		return fail(c, err)
	}

	code, err := totp.CurrentCode(secret)
	if err != nil {
		logger.ErrorLogger.Error("Error generating TOTP code", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Internal server error",
			"success": false,
			"status":  500,
		})
	}

	body := fmt.Sprintf("Your TaskFlow verification code is: %s", code)
	if err := config.Mailer.Send(req.Email, "Your TOTP code", body); err != nil {
		logger.ErrorLogger.Error("Error sending TOTP email", zap.Error(err))
	}

	logger.AuditLogger.Info("Password verified, TOTP code sent", zap.String("email", req.Email))
	return c.JSON(fiber.Map{
		"message": "Verification code sent",
		"success": true,
		"status":  200,
	})
}

// VerifyLogin tahap kedua: cocokkan kode TOTP lalu terbitkan JWT
// dan set presence ONLINE.
func VerifyLogin(c *fiber.Ctx) error {
	type VerifyRequest struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required,len=6"`
	}

	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in verify login", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during verify login", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	user, err := config.Store.GetUserByEmail(c.Context(), req.Email)
	if err != nil || !user.TotpSecret.Valid || !totp.Verify(user.TotpSecret.String, req.Code) {
		logger.SecurityLogger.Warn("Invalid TOTP code", zap.String("email", req.Email))
		return c.Status(401).JSON(fiber.Map{
			"message": "Invalid verification code",
			"success": false,
			"status":  401,
		})
	}

	tokenString, err := issueToken(user.ID)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error generating token",
			"success": false,
			"status":  500,
		})
	}

	if err := config.Store.SetStatus(c.Context(), user.ID, models.StatusOnline); err != nil {
		logger.ErrorLogger.Error("Error setting status online", zap.Error(err))
	}
	invalidatePresenceCache()

	logger.AuditLogger.Info("Login success", zap.Int("user_id", user.ID))
	return c.JSON(fiber.Map{
		"message": "Login success",
		"success": true,
		"status":  200,
		"data": fiber.Map{
			"user_id": user.ID,
			"token":   tokenString,
		},
	})
}

// GoogleCallback menerima one-time code dari Google, menukarnya dengan
// identitas terverifikasi, lalu login atau membuat akun (idempotent).
func GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return c.Status(400).JSON(fiber.Map{
			"message": "Missing authorization code",
			"success": false,
			"status":  400,
		})
	}

	identity, err := config.Google.Exchange(c.Context(), code)
	if err != nil {
		logger.SecurityLogger.Warn("Google token verification failed", zap.Error(err))
		return c.Status(401).JSON(fiber.Map{
			"message": "Google sign-in failed",
			"success": false,
			"status":  401,
		})
	}

	userID, created, err := config.Store.LinkOrCreateGoogleIdentity(c.Context(), identity.Email, identity.Name)
	if err != nil {
		return fail(c, err)
	}

	if created {
		body := fmt.Sprintf("Hello %s,\n\nYour account has been created successfully.\nThank you for signing up to TaskFlow!", identity.Name)
		if err := config.Mailer.Send(identity.Email, "Account confirmation", body); err != nil {
			logger.ErrorLogger.Error("Error sending confirmation email", zap.Error(err))
		}
	}

	tokenString, err := issueToken(userID)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error generating token",
			"success": false,
			"status":  500,
		})
	}

	if err := config.Store.SetStatus(c.Context(), userID, models.StatusOnline); err != nil {
		logger.ErrorLogger.Error("Error setting status online", zap.Error(err))
	}
	invalidatePresenceCache()

	logger.AuditLogger.Info("Google login success", zap.Int("user_id", userID), zap.Bool("created", created))
	return c.JSON(fiber.Map{
		"message": "Login success",
		"success": true,
		"status":  200,
		"data": fiber.Map{
			"user_id": userID,
			"token":   tokenString,
		},
	})
}

// Logout menutup sesi: presence kembali OFFLINE.
func Logout(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	if err := config.Store.SetStatus(c.Context(), userID, models.StatusOffline); err != nil {
		return fail(c, err)
	}
	invalidatePresenceCache()

	logger.AuditLogger.Info("Logout success", zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Logout success",
		"success": true,
		"status":  200,
	})
}
