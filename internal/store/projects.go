package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"taskflow/internal/apperr"
	"taskflow/internal/models"
)

// CreateProject membuat proyek baru; pembuatnya langsung jadi anggota
// pertama dengan ADMIN/ACCEPTED. Keduanya dalam satu transaksi, jadi
// tidak mungkin ada proyek yatim tanpa admin. Keunikan nama dijaga
// oleh unique index, bukan oleh check-then-act.
func (s *Store) CreateProject(ctx context.Context, name string, creatorID int) (int, error) {
	var projectID int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			"INSERT INTO projects (name) VALUES ($1) RETURNING id", name).Scan(&projectID)
		if err != nil {
			if isUniqueViolation(err, "") {
				return apperr.Duplicate("project name")
			}
			return apperr.Persistence("insert project", err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO memberships (project_id, user_id, permission, invitation_state) VALUES ($1, $2, $3, $4)",
			projectID, creatorID, models.PermissionAdmin, models.InvitationAccepted)
		if err != nil {
			return apperr.Persistence("insert creator membership", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return projectID, nil
}

// ResolvePermission adalah lookup tunggal yang jadi gerbang semua
// operasi project-scoped. NotFound berarti bukan anggota, apa pun
// status undangannya.
func (s *Store) ResolvePermission(ctx context.Context, projectID, userID int) (models.Membership, error) {
	m := models.Membership{ProjectID: projectID, UserID: userID}
	err := s.db.QueryRowContext(ctx,
		"SELECT permission, invitation_state FROM memberships WHERE project_id = $1 AND user_id = $2",
		projectID, userID,
	).Scan(&m.Permission, &m.InvitationState)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, apperr.NotFound("membership")
		}
		return m, apperr.Persistence("select membership", err)
	}
	return m, nil
}

// Invite membuat membership PENDING untuk invitee. Hanya ADMIN yang
// boleh mengundang; level permission undangan bebas. Username invitee
// baru di-resolve setelah gerbang ADMIN lolos, supaya non-admin tidak
// bisa memakai endpoint ini untuk menebak username yang terdaftar.
func (s *Store) Invite(ctx context.Context, projectID, inviterID int, inviteeUsername string, permission models.Permission) (int, error) {
	if err := s.authorize(ctx, projectID, inviterID, models.PermissionAdmin); err != nil {
		return 0, err
	}

	inviteeID, err := s.GetUserIDByUsername(ctx, inviteeUsername)
	if err != nil {
		return 0, err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO memberships (project_id, user_id, permission, invitation_state) VALUES ($1, $2, $3, $4)",
		projectID, inviteeID, permission, models.InvitationPending)
	if err != nil {
		if isUniqueViolation(err, "") {
			return 0, apperr.Duplicate("membership")
		}
		return 0, apperr.Persistence("insert membership", err)
	}
	return inviteeID, nil
}

// RespondToInvitation memindahkan PENDING ke ACCEPTED atau REFUSED.
// Baris yang bukan PENDING tidak disentuh (no-op diam, defensif).
func (s *Store) RespondToInvitation(ctx context.Context, projectID, userID int, accept bool) error {
	state := models.InvitationRefused
	if accept {
		state = models.InvitationAccepted
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE memberships SET invitation_state = $1 WHERE project_id = $2 AND user_id = $3 AND invitation_state = $4",
		state, projectID, userID, models.InvitationPending)
	if err != nil {
		return apperr.Persistence("update invitation state", err)
	}
	return nil
}

// SetPermission mengubah level permission anggota lain; butuh ADMIN.
func (s *Store) SetPermission(ctx context.Context, projectID, actingUserID, targetUserID int, permission models.Permission) error {
	if err := s.authorize(ctx, projectID, actingUserID, models.PermissionAdmin); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		"UPDATE memberships SET permission = $1 WHERE project_id = $2 AND user_id = $3",
		permission, projectID, targetUserID)
	if err != nil {
		return apperr.Persistence("update permission", err)
	}
	return nil
}

func (s *Store) listProjectsByState(ctx context.Context, userID int, state models.InvitationState) ([]models.ProjectSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT p.id, p.name, m.permission, m.invitation_state
        FROM projects p
        JOIN memberships m ON p.id = m.project_id
        WHERE m.user_id = $1 AND m.invitation_state = $2
        ORDER BY p.id`,
		userID, state)
	if err != nil {
		return nil, apperr.Persistence("select projects", err)
	}
	defer rows.Close()

	projects := []models.ProjectSummary{}
	for rows.Next() {
		var p models.ProjectSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.Permission, &p.InvitationState); err != nil {
			return nil, apperr.Persistence("scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate projects", err)
	}
	return projects, nil
}

// ListActiveProjects: membership dengan ACCEPTED saja.
func (s *Store) ListActiveProjects(ctx context.Context, userID int) ([]models.ProjectSummary, error) {
	return s.listProjectsByState(ctx, userID, models.InvitationAccepted)
}

// ListPendingInvitations: undangan yang belum dijawab.
func (s *Store) ListPendingInvitations(ctx context.Context, userID int) ([]models.ProjectSummary, error) {
	return s.listProjectsByState(ctx, userID, models.InvitationPending)
}

// ListProjectMembers menampilkan anggota proyek; anggota ACCEPTED
// mana pun boleh melihat (ambang READ).
func (s *Store) ListProjectMembers(ctx context.Context, projectID, actingUserID int) ([]models.Member, error) {
	if err := s.authorize(ctx, projectID, actingUserID, models.PermissionRead); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT u.id, u.username, m.permission, m.invitation_state
        FROM users u
        JOIN memberships m ON u.id = m.user_id
        WHERE m.project_id = $1
        ORDER BY u.id`,
		projectID)
	if err != nil {
		return nil, apperr.Persistence("select members", err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.Permission, &m.InvitationState); err != nil {
			return nil, apperr.Persistence("scan member", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate members", err)
	}
	return members, nil
}

// DeleteProject menghapus proyek beserta seluruh isinya: keanggotaan
// task group, subtask, task, task info, task group, membership, lalu
// baris proyek itu sendiri. Satu transaksi; butuh ADMIN.
func (s *Store) DeleteProject(ctx context.Context, projectID, actingUserID int) error {
	if err := s.authorize(ctx, projectID, actingUserID, models.PermissionAdmin); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		infoIDs, groupIDs, err := collectProjectTaskRefs(ctx, tx, projectID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM task_group_members WHERE task_group_id = ANY($1)", pq.Array(groupIDs)); err != nil {
			return apperr.Persistence("delete task group memberships", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM subtasks WHERE task_id IN (SELECT id FROM tasks WHERE project_id = $1)", projectID); err != nil {
			return apperr.Persistence("delete subtasks", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM tasks WHERE project_id = $1", projectID); err != nil {
			return apperr.Persistence("delete tasks", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM task_infos WHERE id = ANY($1)", pq.Array(infoIDs)); err != nil {
			return apperr.Persistence("delete task infos", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM task_groups WHERE id = ANY($1)", pq.Array(groupIDs)); err != nil {
			return apperr.Persistence("delete task groups", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM memberships WHERE project_id = $1", projectID); err != nil {
			return apperr.Persistence("delete memberships", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM projects WHERE id = $1", projectID); err != nil {
			return apperr.Persistence("delete project", err)
		}
		return nil
	})
}

// collectProjectTaskRefs mengumpulkan semua task_info id dan task_group
// id yang dirujuk oleh task dan subtask di dalam satu proyek.
func collectProjectTaskRefs(ctx context.Context, tx *sql.Tx, projectID int) ([]int64, []int64, error) {
	rows, err := tx.QueryContext(ctx, `
        SELECT ti.id, ti.task_group_id
        FROM task_infos ti
        WHERE ti.id IN (
            SELECT task_info_id FROM tasks WHERE project_id = $1
            UNION
            SELECT s.task_info_id FROM subtasks s
            JOIN tasks t ON s.task_id = t.id
            WHERE t.project_id = $1
        )`,
		projectID)
	if err != nil {
		return nil, nil, apperr.Persistence("select task refs", err)
	}
	defer rows.Close()

	infoIDs := []int64{}
	groupIDs := []int64{}
	for rows.Next() {
		var infoID, groupID int64
		if err := rows.Scan(&infoID, &groupID); err != nil {
			return nil, nil, apperr.Persistence("scan task refs", err)
		}
		infoIDs = append(infoIDs, infoID)
		groupIDs = append(groupIDs, groupID)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperr.Persistence("iterate task refs", err)
	}
	return infoIDs, groupIDs, nil
}
