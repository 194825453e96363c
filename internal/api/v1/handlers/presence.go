package handlers

import (
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskflow/internal/config"
	"taskflow/internal/models"
	"taskflow/pkg/logger"
)

// presenceCacheKey menampung snapshot presence semua user. TTL pendek
// (30 detik, sama dengan interval poll klien) supaya perubahan status
// cepat terlihat tanpa membebani database.
const presenceCacheKey = "presence:snapshot"

func invalidatePresenceCache() {
	if config.RedisClient == nil {
		return
	}
	if err := config.RedisClient.Del(config.Ctx, presenceCacheKey).Err(); err != nil {
		logger.ErrorLogger.Error("Redis error invalidating presence cache", zap.Error(err))
	}
}

// GetPresence mengembalikan status presence semua user (read-through
// cache). Klien mem-poll endpoint ini dari project view.
func GetPresence(c *fiber.Ctx) error {
	cached, err := config.RedisClient.Get(config.Ctx, presenceCacheKey).Result()
	if err == nil {
		var statuses []models.Presence
		if err := json.Unmarshal([]byte(cached), &statuses); err == nil {
			return c.JSON(fiber.Map{
				"message": "Presence retrieved successfully (cache)",
				"success": true,
				"status":  200,
				"data":    statuses,
			})
		}
	} else if err != redis.Nil {
		logger.ErrorLogger.Error("Redis error on presence lookup", zap.Error(err))
	}

	statuses, err := config.Store.GetAllStatuses(c.Context())
	if err != nil {
		return fail(c, err)
	}

	if payload, err := json.Marshal(statuses); err == nil {
		if err := config.RedisClient.SetEX(config.Ctx, presenceCacheKey, payload, 30*time.Second).Err(); err != nil {
			logger.ErrorLogger.Error("Redis error caching presence", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{
		"message": "Presence retrieved successfully",
		"success": true,
		"status":  200,
		"data":    statuses,
	})
}

// SetPresence mengubah status presence user sendiri (OFFLINE/ONLINE/IDLE).
// Dipakai klien untuk deteksi idle; last write wins.
func SetPresence(c *fiber.Ctx) error {
	type PresenceRequest struct {
		Status *int `json:"status" validate:"required"`
	}

	var req PresenceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}
	if err := config.Validate.Struct(req); err != nil || *req.Status < 0 || *req.Status > 2 {
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"success": false,
			"status":  400,
		})
	}

	userID := c.Locals("userID").(int)
	if err := config.Store.SetStatus(c.Context(), userID, models.PresenceStatus(*req.Status)); err != nil {
		return fail(c, err)
	}
	invalidatePresenceCache()

	return c.JSON(fiber.Map{
		"message": "Presence updated successfully",
		"success": true,
		"status":  200,
	})
}
