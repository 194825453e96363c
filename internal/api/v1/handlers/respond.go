package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskflow/internal/apperr"
	"taskflow/pkg/logger"
)

// fail menerjemahkan error dari store/kolaborator ke response HTTP.
// Validasi dan otorisasi mendapat pesan spesifik; kegagalan persistence
// dan layanan eksternal di-log detailnya tapi hanya mengembalikan pesan
// generik ke klien.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case apperr.Is(err, apperr.KindValidation):
		return c.Status(400).JSON(fiber.Map{
			"message": err.Error(),
			"success": false,
			"status":  400,
		})
	case apperr.Is(err, apperr.KindNotAuthorized):
		// Pesan otorisasi boleh spesifik (operasi + ambang yang kurang),
		// yang dirahasiakan hanya detail persistence.
		logger.SecurityLogger.Warn("Forbidden", zap.Error(err), zap.String("url", c.OriginalURL()))
		return c.Status(403).JSON(fiber.Map{
			"message": err.Error(),
			"success": false,
			"status":  403,
		})
	case apperr.Is(err, apperr.KindNotFound):
		return c.Status(404).JSON(fiber.Map{
			"message": "Not found",
			"success": false,
			"status":  404,
		})
	case apperr.Is(err, apperr.KindDuplicate):
		return c.Status(409).JSON(fiber.Map{
			"message": "Already exists",
			"success": false,
			"status":  409,
		})
	default:
		logger.ErrorLogger.Error("Internal error", zap.Error(err), zap.String("url", c.OriginalURL()))
		return c.Status(500).JSON(fiber.Map{
			"message": "Internal server error",
			"success": false,
			"status":  500,
		})
	}
}
