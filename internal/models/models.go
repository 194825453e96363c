package models

import (
	"database/sql"
	"time"
)

// Permission membentuk urutan total READ < WRITE < ADMIN.
// Setiap operasi proyek dicek dengan >= terhadap ambang batasnya.
type Permission int

const (
	PermissionRead  Permission = 0
	PermissionWrite Permission = 1
	PermissionAdmin Permission = 2
)

func (p Permission) String() string {
	switch p {
	case PermissionRead:
		return "read"
	case PermissionWrite:
		return "write"
	case PermissionAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// InvitationState adalah siklus hidup membership sebelum dianggap aktif.
type InvitationState int

const (
	InvitationPending  InvitationState = 0
	InvitationRefused  InvitationState = 1
	InvitationAccepted InvitationState = 2
)

// TaskStatus: OPEN <-> DONE, dua arah, tanpa terminal state.
type TaskStatus int

const (
	TaskOpen TaskStatus = 0
	TaskDone TaskStatus = 1
)

type Priority int

const (
	PriorityLow    Priority = 0
	PriorityMedium Priority = 1
	PriorityHigh   Priority = 2
)

// PresenceStatus ditulis pada login/logout dan di-poll oleh project view.
type PresenceStatus int

const (
	StatusOffline PresenceStatus = 0
	StatusOnline  PresenceStatus = 1
	StatusIdle    PresenceStatus = 2
)

type User struct {
	ID              int            `json:"id"`
	Username        string         `json:"username"`
	Email           string         `json:"email"`
	PasswordHash    sql.NullString `json:"-"`
	IsGoogleAccount bool           `json:"is_google_account"`
	TotpSecret      sql.NullString `json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type Project struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Membership menghubungkan user ke project dengan level permission
// dan status undangan. Satu baris per pasangan (project, user).
type Membership struct {
	ProjectID       int             `json:"project_id"`
	UserID          int             `json:"user_id"`
	Permission      Permission      `json:"permission"`
	InvitationState InvitationState `json:"invitation_state"`
}

// ProjectSummary adalah baris daftar proyek milik satu user.
type ProjectSummary struct {
	ID              int             `json:"id"`
	Name            string          `json:"name"`
	Permission      Permission      `json:"permission"`
	InvitationState InvitationState `json:"invitation_state"`
}

// Member adalah baris daftar anggota dari satu proyek.
type Member struct {
	UserID          int             `json:"user_id"`
	Username        string          `json:"username"`
	Permission      Permission      `json:"permission"`
	InvitationState InvitationState `json:"invitation_state"`
}

// TaskInfo adalah record konten bersama yang dirujuk oleh tepat satu
// Task atau Subtask. Edit dialamatkan ke ID-nya sendiri.
type TaskInfo struct {
	ID          int        `json:"id"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Deadline    time.Time  `json:"deadline"`
	Covered     bool       `json:"covered"`
	TaskGroupID int        `json:"task_group_id"`
}

type Task struct {
	ID        int      `json:"id"`
	ProjectID int      `json:"project_id"`
	CreatorID int      `json:"creator_id"`
	Info      TaskInfo `json:"info"`
	Assignees []string `json:"assignees"`
}

type Subtask struct {
	ID        int      `json:"id"`
	TaskID    int      `json:"task_id"`
	Info      TaskInfo `json:"info"`
	Assignees []string `json:"assignees"`
}

type Presence struct {
	UserID int            `json:"user_id"`
	Status PresenceStatus `json:"status"`
}
