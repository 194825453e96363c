package v1

import (
	"taskflow/internal/api/v1/handlers"
	"taskflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// Auth
	api.Post("/register", handlers.Register)
	api.Post("/login", handlers.Login)
	api.Post("/login/verify", handlers.VerifyLogin)
	api.Get("/auth/google/callback", handlers.GoogleCallback)
	api.Post("/logout", middleware.UseToken, handlers.Logout)

	// User
	userRoutes := api.Group("/users", middleware.UseToken)
	userRoutes.Get("/", handlers.GetAllUsers)
	userRoutes.Get("/:id", handlers.GetUser)
	userRoutes.Delete("/:id", handlers.DeleteUser)

	// Project
	projectRoutes := api.Group("/projects", middleware.UseToken)
	projectRoutes.Post("/", handlers.CreateProject)
	projectRoutes.Get("/", handlers.ListProjects)
	projectRoutes.Get("/invitations", handlers.ListInvitations)
	projectRoutes.Post("/:id/invitations", handlers.Invite)
	projectRoutes.Put("/:id/invitations", handlers.RespondInvitation)
	projectRoutes.Get("/:id/members", handlers.ListMembers)
	projectRoutes.Put("/:id/members/:userId/permission", handlers.SetMemberPermission)
	projectRoutes.Post("/:id/tasks", handlers.CreateTask)
	projectRoutes.Get("/:id/tasks", handlers.ListProjectTasks)
	projectRoutes.Delete("/:id", handlers.DeleteProject)

	// Task
	taskRoutes := api.Group("/tasks", middleware.UseToken)
	taskRoutes.Get("/:id", handlers.GetTask)
	taskRoutes.Post("/:id/subtasks", handlers.CreateSubtask)
	taskRoutes.Get("/:id/subtasks", handlers.ListSubtasks)
	taskRoutes.Delete("/:id", handlers.DeleteTask)

	// Task info (shared antara task dan subtask)
	taskInfoRoutes := api.Group("/task-infos", middleware.UseToken)
	taskInfoRoutes.Put("/:id", handlers.UpdateTaskInfo)
	taskInfoRoutes.Put("/:id/status", handlers.UpdateTaskStatus)

	// Subtask
	subtaskRoutes := api.Group("/subtasks", middleware.UseToken)
	subtaskRoutes.Delete("/:id", handlers.DeleteSubtask)

	// Presence
	presenceRoutes := api.Group("/presence", middleware.UseToken)
	presenceRoutes.Get("/", handlers.GetPresence)
	presenceRoutes.Put("/", handlers.SetPresence)
}
