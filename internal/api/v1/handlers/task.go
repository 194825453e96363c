package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"taskflow/internal/config"
	"taskflow/internal/models"
	"taskflow/internal/store"
	"taskflow/pkg/logger"
)

// taskRequest adalah body untuk create task/subtask dan edit task info.
// Deadline memakai format RFC3339.
type taskRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Description string   `json:"description"`
	Priority    *int     `json:"priority" validate:"required"`
	Deadline    string   `json:"deadline" validate:"required"`
	Assignees   []string `json:"assignees"`
}

// parseTaskRequest parsing + validasi body jadi store.TaskInput.
func parseTaskRequest(c *fiber.Ctx) (store.TaskInput, bool) {
	var req taskRequest
	if err := c.BodyParser(&req); err != nil {
		return store.TaskInput{}, false
	}
	if err := config.Validate.Struct(req); err != nil {
		return store.TaskInput{}, false
	}
	if *req.Priority < 0 || *req.Priority > 2 {
		return store.TaskInput{}, false
	}
	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		return store.TaskInput{}, false
	}
	return store.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    models.Priority(*req.Priority),
		Deadline:    deadline,
		Assignees:   req.Assignees,
	}, true
}

func badRequest(c *fiber.Ctx) error {
	return c.Status(400).JSON(fiber.Map{
		"message": "Bad request",
		"success": false,
		"status":  400,
	})
}

// CreateTask membuat task baru di sebuah proyek. Assignee yang di-skip
// (tidak dikenal / bukan anggota ACCEPTED) dilaporkan di response.
func CreateTask(c *fiber.Ctx) error {
	projectID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c)
	}

	input, ok := parseTaskRequest(c)
	if !ok {
		return badRequest(c)
	}

	userID := c.Locals("userID").(int)
	taskID, skipped, err := config.Store.AddTask(c.Context(), projectID, userID, input)
	if err != nil {
		return fail(c, err)
	}

	if len(skipped) > 0 {
		logger.AuditLogger.Warn("Some assignees were skipped",
			zap.Int("task_id", taskID), zap.Strings("skipped", skipped))
	}
	logger.AuditLogger.Info("Task created",
		zap.Int("task_id", taskID), zap.Int("project_id", projectID), zap.Int("creator_id", userID))
	return c.Status(201).JSON(fiber.Map{
		"message": "Task created successfully",
		"success": true,
		"status":  201,
		"data": fiber.Map{
			"id":                taskID,
			"skipped_assignees": skipped,
		},
	})
}

// ListProjectTasks menampilkan semua task di proyek (butuh READ).
func ListProjectTasks(c *fiber.Ctx) error {
	projectID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c)
	}

	userID := c.Locals("userID").(int)
	tasks, err := config.Store.ListTasks(c.Context(), projectID, userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Tasks retrieved successfully",
		"success": true,
		"status":  200,
		"data":    tasks,
	})
}

// GetTask mengambil satu task lengkap dengan assignees-nya.
func GetTask(c *fiber.Ctx) error {
	taskID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c)
	}

	userID := c.Locals("userID").(int)
	task, err := config.Store.GetTask(c.Context(), taskID, userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Task retrieved successfully",
		"success": true,
		"status":  200,
		"data":    task,
	})
}

// CreateSubtask membuat subtask di bawah sebuah task.
func CreateSubtask(c *fiber.Ctx) error {
	taskID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c)
	}

	input, ok := parseTaskRequest(c)
	if !ok {
		return badRequest(c)
	}

	userID := c.Locals("userID").(int)
	subtaskID, skipped, err := config.Store.AddSubtask(c.Context(), taskID, userID, input)
	if err != nil {
		return fail(c, err)
	}

	if len(skipped) > 0 {
		logger.AuditLogger.Warn("Some assignees were skipped",
			zap.Int("subtask_id", subtaskID), zap.Strings("skipped", skipped))
	}
	logger.AuditLogger.Info("Subtask created",
		zap.Int("subtask_id", subtaskID), zap.Int("task_id", taskID), zap.Int("creator_id", userID))
	return c.Status(201).JSON(fiber.Map{
		"message": "Subtask created successfully",
		"success": true,
		"status":  201,
		"data": fiber.Map{
			"id":                subtaskID,
			"skipped_assignees": skipped,
		},
	})
}

// ListSubtasks menampilkan subtask milik sebuah task.
func ListSubtasks(c *fiber.Ctx) error {
	taskID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c)
	}

	userID := c.Locals("userID").(int)
	subtasks, err := config.Store.ListSubtasks(c.Context(), taskID, userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Subtasks retrieved successfully",
		"success": true,
		"status":  200,
		"data":    subtasks,
	})
}

// UpdateTaskInfo mengganti seluruh isi task info (title, description,
// priority, deadline, assignees). Task dan subtask sama-sama diedit
// lewat task info id-nya.
func UpdateTaskInfo(c *fiber.Ctx) error {
	taskInfoID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c)
	}

	input, ok := parseTaskRequest(c)
	if !ok {
		return badRequest(c)
	}

	userID := c.Locals("userID").(int)
	skipped, err := config.Store.EditTaskInfo(c.Context(), taskInfoID, userID, input)
	if err != nil {
		return fail(c, err)
	}

	if len(skipped) > 0 {
		logger.AuditLogger.Warn("Some assignees were skipped",
			zap.Int("task_info_id", taskInfoID), zap.Strings("skipped", skipped))
	}
	logger.AuditLogger.Info("Task info updated",
		zap.Int("task_info_id", taskInfoID), zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Task updated successfully",
		"success": true,
		"status":  200,
		"data": fiber.Map{
			"skipped_assignees": skipped,
		},
	})
}

// UpdateTaskStatus mengubah status OPEN/DONE. Pointer supaya nilai 0
// (OPEN) tetap lolos validasi required.
func UpdateTaskStatus(c *fiber.Ctx) error {
	type StatusRequest struct {
		Status *int `json:"status" validate:"required"`
	}

	taskInfoID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c)
	}

	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	if err := config.Validate.Struct(req); err != nil || (*req.Status != 0 && *req.Status != 1) {
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"success": false,
			"status":  400,
		})
	}

	userID := c.Locals("userID").(int)
	err = config.Store.SetTaskStatus(c.Context(), taskInfoID, userID, models.TaskStatus(*req.Status))
	if err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Task status updated",
		zap.Int("task_info_id", taskInfoID), zap.Int("status", *req.Status))
	return c.JSON(fiber.Map{
		"message": "Task status updated successfully",
		"success": true,
		"status":  200,
	})
}

// DeleteTask menghapus task beserta subtask dan task info-nya.
func DeleteTask(c *fiber.Ctx) error {
	taskID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c)
	}

	userID := c.Locals("userID").(int)
	if err := config.Store.DeleteTask(c.Context(), taskID, userID); err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Task deleted",
		zap.Int("task_id", taskID), zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Task deleted successfully",
		"success": true,
		"status":  200,
	})
}

// DeleteSubtask menghapus satu subtask.
func DeleteSubtask(c *fiber.Ctx) error {
	subtaskID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c)
	}

	userID := c.Locals("userID").(int)
	if err := config.Store.DeleteSubtask(c.Context(), subtaskID, userID); err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Subtask deleted",
		zap.Int("subtask_id", subtaskID), zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Subtask deleted successfully",
		"success": true,
		"status":  200,
	})
}
