package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskflow/internal/config"
	"taskflow/internal/models"
	"taskflow/pkg/logger"
)

// GetAllUsers mengembalikan seluruh user, dipakai picker undangan.
func GetAllUsers(c *fiber.Ctx) error {
	users, err := config.Store.ListUsers(c.Context())
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Users retrieved successfully",
		"success": true,
		"status":  200,
		"data":    users,
	})
}

// GetUser read-through cache: coba redis dulu, fallback ke database,
// lalu simpan hasilnya dengan TTL 1 jam.
func GetUser(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid user id",
			"success": false,
			"status":  400,
		})
	}

	cacheKey := fmt.Sprintf("user:%d", userID)
	cached, err := config.RedisClient.Get(config.Ctx, cacheKey).Result()
	if err == nil {
		var user models.User
		if err := json.Unmarshal([]byte(cached), &user); err == nil {
			return c.JSON(fiber.Map{
				"message": "User retrieved successfully (cache)",
				"success": true,
				"status":  200,
				"data":    user,
			})
		}
	} else if err != redis.Nil {
		logger.ErrorLogger.Error("Redis error on user lookup", zap.Error(err))
	}

	user, err := config.Store.GetUserByID(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}

	if payload, err := json.Marshal(user); err == nil {
		if err := config.RedisClient.SetEX(config.Ctx, cacheKey, payload, time.Hour).Err(); err != nil {
			logger.ErrorLogger.Error("Redis error caching user", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{
		"message": "User retrieved successfully",
		"success": true,
		"status":  200,
		"data":    user,
	})
}

// DeleteUser hanya boleh menghapus akun sendiri.
func DeleteUser(c *fiber.Ctx) error {
	targetID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid user id",
			"success": false,
			"status":  400,
		})
	}

	actingID := c.Locals("userID").(int)
	if actingID != targetID {
		logger.SecurityLogger.Warn("User tried to delete another account",
			zap.Int("acting_id", actingID), zap.Int("target_id", targetID))
		return c.Status(403).JSON(fiber.Map{
			"message": "Forbidden",
			"success": false,
			"status":  403,
		})
	}

	if err := config.Store.DeleteUser(c.Context(), targetID); err != nil {
		return fail(c, err)
	}

	if err := config.RedisClient.Del(config.Ctx, fmt.Sprintf("user:%d", targetID)).Err(); err != nil {
		logger.ErrorLogger.Error("Redis error deleting user cache", zap.Error(err))
	}
	invalidatePresenceCache()

	logger.AuditLogger.Info("User deleted", zap.Int("user_id", targetID))
	return c.JSON(fiber.Map{
		"message": "User deleted successfully",
		"success": true,
		"status":  200,
	})
}
