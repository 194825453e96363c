package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskflow/internal/config"
	"taskflow/internal/models"
	"taskflow/pkg/logger"
)

// Project handlers. Semua operasi project-scoped diotorisasi di store
// lewat membership ACCEPTED + ambang permission, handler hanya parsing
// dan translasi error.

func CreateProject(c *fiber.Ctx) error {
	type CreateProjectRequest struct {
		Name string `json:"name" validate:"required,min=1,max=100"`
	}

	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	userID := c.Locals("userID").(int)
	projectID, err := config.Store.CreateProject(c.Context(), req.Name, userID)
	if err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Project created",
		zap.Int("project_id", projectID), zap.Int("creator_id", userID))
	return c.Status(201).JSON(fiber.Map{
		"message": "Project created successfully",
		"success": true,
		"status":  201,
		"data": fiber.Map{
			"id": projectID,
		},
	})
}

// ListProjects: proyek dengan undangan yang sudah diterima saja.
func ListProjects(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)
	projects, err := config.Store.ListActiveProjects(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Projects retrieved successfully",
		"success": true,
		"status":  200,
		"data":    projects,
	})
}

// ListInvitations: undangan PENDING milik user.
func ListInvitations(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)
	invitations, err := config.Store.ListPendingInvitations(c.Context(), userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Invitations retrieved successfully",
		"success": true,
		"status":  200,
		"data":    invitations,
	})
}

// Invite mengundang user (by username) ke proyek dengan level
// permission tertentu. Email notifikasi fire-and-forget.
func Invite(c *fiber.Ctx) error {
	type InviteRequest struct {
		Username   string `json:"username" validate:"required"`
		Permission *int   `json:"permission" validate:"required"`
	}

	projectID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid project id",
			"success": false,
			"status":  400,
		})
	}

	var req InviteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil || *req.Permission < 0 || *req.Permission > 2 {
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"success": false,
			"status":  400,
		})
	}

	inviterID := c.Locals("userID").(int)
	inviteeID, err := config.Store.Invite(c.Context(), projectID, inviterID, req.Username, models.Permission(*req.Permission))
	if err != nil {
		return fail(c, err)
	}

	// Notifikasi email tidak menggagalkan undangan.
	if invitee, err := config.Store.GetUserByID(c.Context(), inviteeID); err == nil {
		body := fmt.Sprintf("Hello %s,\n\nYou have been invited to a TaskFlow project.\nOpen the app to accept or refuse the invitation.", invitee.Username)
		if err := config.Mailer.Send(invitee.Email, "Project invitation", body); err != nil {
			logger.ErrorLogger.Error("Error sending invitation email", zap.Error(err))
		}
	}

	logger.AuditLogger.Info("Invitation sent",
		zap.Int("project_id", projectID), zap.Int("inviter_id", inviterID), zap.Int("invitee_id", inviteeID))
	return c.Status(201).JSON(fiber.Map{
		"message": "Invitation sent successfully",
		"success": true,
		"status":  201,
	})
}

// RespondInvitation menjawab undangan milik user sendiri.
func RespondInvitation(c *fiber.Ctx) error {
	type RespondRequest struct {
		Accept *bool `json:"accept" validate:"required"`
	}

	projectID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid project id",
			"success": false,
			"status":  400,
		})
	}

	var req RespondRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"success": false,
			"status":  400,
		})
	}

	userID := c.Locals("userID").(int)
	if err := config.Store.RespondToInvitation(c.Context(), projectID, userID, *req.Accept); err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Invitation answered",
		zap.Int("project_id", projectID), zap.Int("user_id", userID), zap.Bool("accepted", *req.Accept))
	return c.JSON(fiber.Map{
		"message": "Invitation answered successfully",
		"success": true,
		"status":  200,
	})
}

// SetMemberPermission mengubah level permission anggota lain (ADMIN only).
func SetMemberPermission(c *fiber.Ctx) error {
	type SetPermissionRequest struct {
		Permission *int `json:"permission" validate:"required"`
	}

	projectID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid project id",
			"success": false,
			"status":  400,
		})
	}
	targetID, err := c.ParamsInt("userId")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid user id",
			"success": false,
			"status":  400,
		})
	}

	var req SetPermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil || *req.Permission < 0 || *req.Permission > 2 {
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"success": false,
			"status":  400,
		})
	}

	actingID := c.Locals("userID").(int)
	err = config.Store.SetPermission(c.Context(), projectID, actingID, targetID, models.Permission(*req.Permission))
	if err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Permission updated",
		zap.Int("project_id", projectID), zap.Int("target_id", targetID), zap.Int("permission", *req.Permission))
	return c.JSON(fiber.Map{
		"message": "Permission updated successfully",
		"success": true,
		"status":  200,
	})
}

// ListMembers menampilkan anggota proyek, termasuk yang masih PENDING.
func ListMembers(c *fiber.Ctx) error {
	projectID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid project id",
			"success": false,
			"status":  400,
		})
	}

	userID := c.Locals("userID").(int)
	members, err := config.Store.ListProjectMembers(c.Context(), projectID, userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Members retrieved successfully",
		"success": true,
		"status":  200,
		"data":    members,
	})
}

// DeleteProject menghapus proyek beserta seluruh isinya (ADMIN only).
func DeleteProject(c *fiber.Ctx) error {
	projectID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid project id",
			"success": false,
			"status":  400,
		})
	}

	userID := c.Locals("userID").(int)
	if err := config.Store.DeleteProject(c.Context(), projectID, userID); err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Project deleted",
		zap.Int("project_id", projectID), zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Project deleted successfully",
		"success": true,
		"status":  200,
	})
}
