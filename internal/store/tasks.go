package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"taskflow/internal/apperr"
	"taskflow/internal/models"
)

// TaskInput adalah isi sebuah task atau subtask baru. Assignees berisi
// username; nama yang tidak bisa di-resolve atau bukan anggota ACCEPTED
// dari proyek pemilik akan di-skip dan dilaporkan, tidak diam-diam.
type TaskInput struct {
	Title       string
	Description string
	Priority    models.Priority
	Deadline    time.Time
	Assignees   []string
}

// AddTask membuat task group + task info (OPEN, covered=false) + baris
// task + keanggotaan group, semuanya satu transaksi. Butuh WRITE.
func (s *Store) AddTask(ctx context.Context, projectID, actingUserID int, in TaskInput) (int, []string, error) {
	if err := s.authorize(ctx, projectID, actingUserID, models.PermissionWrite); err != nil {
		return 0, nil, err
	}

	var taskID int
	var skipped []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		groupID, infoID, err := insertTaskInfo(ctx, tx, in)
		if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx,
			"INSERT INTO tasks (project_id, task_info_id, creator_id) VALUES ($1, $2, $3) RETURNING id",
			projectID, infoID, actingUserID).Scan(&taskID)
		if err != nil {
			return apperr.Persistence("insert task", err)
		}

		skipped, err = insertAssignees(ctx, tx, groupID, projectID, in.Assignees)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return taskID, skipped, nil
}

// AddSubtask sama seperti AddTask tapi menempel di bawah task induk.
// Gerbangnya WRITE pada proyek pemilik task induk.
func (s *Store) AddSubtask(ctx context.Context, parentTaskID, actingUserID int, in TaskInput) (int, []string, error) {
	projectID, err := s.projectIDForTask(ctx, parentTaskID)
	if err != nil {
		return 0, nil, err
	}
	if err := s.authorize(ctx, projectID, actingUserID, models.PermissionWrite); err != nil {
		return 0, nil, err
	}

	var subtaskID int
	var skipped []string
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		groupID, infoID, err := insertTaskInfo(ctx, tx, in)
		if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx,
			"INSERT INTO subtasks (task_id, task_info_id) VALUES ($1, $2) RETURNING id",
			parentTaskID, infoID).Scan(&subtaskID)
		if err != nil {
			return apperr.Persistence("insert subtask", err)
		}

		skipped, err = insertAssignees(ctx, tx, groupID, projectID, in.Assignees)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return subtaskID, skipped, nil
}

// ListTasks mengembalikan semua task sebuah proyek beserta assignee-nya.
// Anggota ACCEPTED mana pun boleh membaca.
func (s *Store) ListTasks(ctx context.Context, projectID, actingUserID int) ([]models.Task, error) {
	if err := s.authorize(ctx, projectID, actingUserID, models.PermissionRead); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT t.id, t.project_id, t.creator_id,
               ti.id, ti.status, ti.priority, ti.title, ti.description, ti.deadline, ti.covered, ti.task_group_id
        FROM tasks t
        JOIN task_infos ti ON t.task_info_id = ti.id
        WHERE t.project_id = $1
        ORDER BY t.id`,
		projectID)
	if err != nil {
		return nil, apperr.Persistence("select tasks", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		if err := scanTaskRow(rows, &t); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate tasks", err)
	}

	for i := range tasks {
		assignees, err := s.assigneesForGroup(ctx, tasks[i].Info.TaskGroupID)
		if err != nil {
			return nil, err
		}
		tasks[i].Assignees = assignees
	}
	return tasks, nil
}

// GetTask mengambil satu task dengan info dan assignee-nya.
func (s *Store) GetTask(ctx context.Context, taskID, actingUserID int) (models.Task, error) {
	var t models.Task
	var deadline sql.NullTime
	err := s.db.QueryRowContext(ctx, `
        SELECT t.id, t.project_id, t.creator_id,
               ti.id, ti.status, ti.priority, ti.title, ti.description, ti.deadline, ti.covered, ti.task_group_id
        FROM tasks t
        JOIN task_infos ti ON t.task_info_id = ti.id
        WHERE t.id = $1`,
		taskID,
	).Scan(&t.ID, &t.ProjectID, &t.CreatorID,
		&t.Info.ID, &t.Info.Status, &t.Info.Priority, &t.Info.Title, &t.Info.Description, &deadline, &t.Info.Covered, &t.Info.TaskGroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, apperr.NotFound("task")
		}
		return t, apperr.Persistence("select task", err)
	}
	if deadline.Valid {
		t.Info.Deadline = deadline.Time
	}

	if err := s.authorize(ctx, t.ProjectID, actingUserID, models.PermissionRead); err != nil {
		return models.Task{}, err
	}

	t.Assignees, err = s.assigneesForGroup(ctx, t.Info.TaskGroupID)
	if err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// ListSubtasks mengembalikan subtask dari satu task induk.
func (s *Store) ListSubtasks(ctx context.Context, taskID, actingUserID int) ([]models.Subtask, error) {
	projectID, err := s.projectIDForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, projectID, actingUserID, models.PermissionRead); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT st.id, st.task_id,
               ti.id, ti.status, ti.priority, ti.title, ti.description, ti.deadline, ti.covered, ti.task_group_id
        FROM subtasks st
        JOIN task_infos ti ON st.task_info_id = ti.id
        WHERE st.task_id = $1
        ORDER BY st.id`,
		taskID)
	if err != nil {
		return nil, apperr.Persistence("select subtasks", err)
	}
	defer rows.Close()

	subtasks := []models.Subtask{}
	for rows.Next() {
		var st models.Subtask
		var deadline sql.NullTime
		if err := rows.Scan(&st.ID, &st.TaskID,
			&st.Info.ID, &st.Info.Status, &st.Info.Priority, &st.Info.Title, &st.Info.Description, &deadline, &st.Info.Covered, &st.Info.TaskGroupID); err != nil {
			return nil, apperr.Persistence("scan subtask", err)
		}
		if deadline.Valid {
			st.Info.Deadline = deadline.Time
		}
		subtasks = append(subtasks, st)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate subtasks", err)
	}

	for i := range subtasks {
		assignees, err := s.assigneesForGroup(ctx, subtasks[i].Info.TaskGroupID)
		if err != nil {
			return nil, err
		}
		subtasks[i].Assignees = assignees
	}
	return subtasks, nil
}

// EditTaskInfo memperbarui field-field task info, dialamatkan lewat
// ID-nya sendiri (berlaku untuk task maupun subtask). Tiap update
// dinyatakan sukses jika ada baris yang cocok dengan ID-nya. Daftar
// assignee diganti penuh: hapus semua lalu insert ulang, didedup.
func (s *Store) EditTaskInfo(ctx context.Context, taskInfoID, actingUserID int, in TaskInput) ([]string, error) {
	projectID, err := s.projectIDForTaskInfo(ctx, taskInfoID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, projectID, actingUserID, models.PermissionWrite); err != nil {
		return nil, err
	}

	var skipped []string
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		updates := []struct {
			op    string
			query string
			arg   interface{}
		}{
			{"update title", "UPDATE task_infos SET title = $1 WHERE id = $2", in.Title},
			{"update description", "UPDATE task_infos SET description = $1 WHERE id = $2", in.Description},
			{"update priority", "UPDATE task_infos SET priority = $1 WHERE id = $2", int(in.Priority)},
			{"update deadline", "UPDATE task_infos SET deadline = $1 WHERE id = $2", in.Deadline},
		}
		for _, u := range updates {
			res, err := tx.ExecContext(ctx, u.query, u.arg, taskInfoID)
			if err != nil {
				return apperr.Persistence(u.op, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return apperr.NotFound("task info")
			}
		}

		var groupID int
		err := tx.QueryRowContext(ctx,
			"SELECT task_group_id FROM task_infos WHERE id = $1", taskInfoID).Scan(&groupID)
		if err != nil {
			return apperr.Persistence("select task group", err)
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM task_group_members WHERE task_group_id = $1", groupID); err != nil {
			return apperr.Persistence("clear task group memberships", err)
		}
		skipped, err = insertAssignees(ctx, tx, groupID, projectID, in.Assignees)
		return err
	})
	if err != nil {
		return nil, err
	}
	return skipped, nil
}

// SetTaskStatus memindahkan OPEN <-> DONE. Dua arah selalu boleh
// selama aktornya punya WRITE; tidak ada terminal state.
func (s *Store) SetTaskStatus(ctx context.Context, taskInfoID, actingUserID int, status models.TaskStatus) error {
	projectID, err := s.projectIDForTaskInfo(ctx, taskInfoID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, projectID, actingUserID, models.PermissionWrite); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE task_infos SET status = $1 WHERE id = $2", status, taskInfoID)
	if err != nil {
		return apperr.Persistence("update task status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("task info")
	}
	return nil
}

// DeleteTask menghapus task, subtask-nya, dan semua task info /
// task group / keanggotaan group yang dirujuk. Satu transaksi, tanpa
// baris yatim.
func (s *Store) DeleteTask(ctx context.Context, taskID, actingUserID int) error {
	projectID, err := s.projectIDForTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, projectID, actingUserID, models.PermissionWrite); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
            SELECT ti.id, ti.task_group_id
            FROM task_infos ti
            WHERE ti.id IN (
                SELECT task_info_id FROM tasks WHERE id = $1
                UNION
                SELECT task_info_id FROM subtasks WHERE task_id = $1
            )`,
			taskID)
		if err != nil {
			return apperr.Persistence("select task refs", err)
		}
		infoIDs, groupIDs, err := scanRefRows(rows)
		if err != nil {
			return err
		}

		if err := deleteTaskRefs(ctx, tx, infoIDs, groupIDs, func() error {
			if _, err := tx.ExecContext(ctx, "DELETE FROM subtasks WHERE task_id = $1", taskID); err != nil {
				return apperr.Persistence("delete subtasks", err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", taskID); err != nil {
				return apperr.Persistence("delete task", err)
			}
			return nil
		}); err != nil {
			return err
		}
		return nil
	})
}

// DeleteSubtask menghapus satu subtask beserta info dan group-nya.
func (s *Store) DeleteSubtask(ctx context.Context, subtaskID, actingUserID int) error {
	var taskID int
	err := s.db.QueryRowContext(ctx,
		"SELECT task_id FROM subtasks WHERE id = $1", subtaskID).Scan(&taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("subtask")
		}
		return apperr.Persistence("select subtask", err)
	}

	projectID, err := s.projectIDForTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, projectID, actingUserID, models.PermissionWrite); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
            SELECT ti.id, ti.task_group_id
            FROM task_infos ti
            WHERE ti.id IN (SELECT task_info_id FROM subtasks WHERE id = $1)`,
			subtaskID)
		if err != nil {
			return apperr.Persistence("select subtask refs", err)
		}
		infoIDs, groupIDs, err := scanRefRows(rows)
		if err != nil {
			return err
		}

		return deleteTaskRefs(ctx, tx, infoIDs, groupIDs, func() error {
			if _, err := tx.ExecContext(ctx, "DELETE FROM subtasks WHERE id = $1", subtaskID); err != nil {
				return apperr.Persistence("delete subtask", err)
			}
			return nil
		})
	})
}

// ----- helper internal ----- //

// insertTaskInfo membuat task group kosong lalu task info yang
// menunjuk ke group itu. Status awal selalu OPEN, covered false.
func insertTaskInfo(ctx context.Context, tx *sql.Tx, in TaskInput) (groupID, infoID int, err error) {
	err = tx.QueryRowContext(ctx,
		"INSERT INTO task_groups DEFAULT VALUES RETURNING id").Scan(&groupID)
	if err != nil {
		return 0, 0, apperr.Persistence("insert task group", err)
	}

	err = tx.QueryRowContext(ctx,
		"INSERT INTO task_infos (status, priority, title, description, deadline, covered, task_group_id) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id",
		models.TaskOpen, in.Priority, in.Title, in.Description, in.Deadline, false, groupID).Scan(&infoID)
	if err != nil {
		return 0, 0, apperr.Persistence("insert task info", err)
	}
	return groupID, infoID, nil
}

// insertAssignees me-resolve username menjadi keanggotaan task group.
// Username yang tidak dikenal, duplikat, atau tanpa membership ACCEPTED
// di proyek pemilik dilewati dan dikembalikan sebagai skipped.
func insertAssignees(ctx context.Context, tx *sql.Tx, groupID, projectID int, usernames []string) ([]string, error) {
	skipped := []string{}
	seen := map[string]bool{}
	for _, username := range usernames {
		if username == "" || seen[username] {
			continue
		}
		seen[username] = true

		var userID int
		var state models.InvitationState
		err := tx.QueryRowContext(ctx, `
            SELECT u.id, m.invitation_state
            FROM users u
            JOIN memberships m ON m.user_id = u.id AND m.project_id = $2
            WHERE u.username = $1`,
			username, projectID).Scan(&userID, &state)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				skipped = append(skipped, username)
				continue
			}
			return nil, apperr.Persistence("resolve assignee", err)
		}
		if state != models.InvitationAccepted {
			skipped = append(skipped, username)
			continue
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO task_group_members (task_group_id, user_id) VALUES ($1, $2)",
			groupID, userID); err != nil {
			return nil, apperr.Persistence("insert task group membership", err)
		}
	}
	return skipped, nil
}

func scanTaskRow(rows *sql.Rows, t *models.Task) error {
	var deadline sql.NullTime
	if err := rows.Scan(&t.ID, &t.ProjectID, &t.CreatorID,
		&t.Info.ID, &t.Info.Status, &t.Info.Priority, &t.Info.Title, &t.Info.Description, &deadline, &t.Info.Covered, &t.Info.TaskGroupID); err != nil {
		return apperr.Persistence("scan task", err)
	}
	if deadline.Valid {
		t.Info.Deadline = deadline.Time
	}
	return nil
}

func (s *Store) assigneesForGroup(ctx context.Context, groupID int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT u.username
        FROM users u
        JOIN task_group_members tgm ON u.id = tgm.user_id
        WHERE tgm.task_group_id = $1
        ORDER BY u.username`,
		groupID)
	if err != nil {
		return nil, apperr.Persistence("select assignees", err)
	}
	defer rows.Close()

	assignees := []string{}
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, apperr.Persistence("scan assignee", err)
		}
		assignees = append(assignees, username)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate assignees", err)
	}
	return assignees, nil
}

func (s *Store) projectIDForTask(ctx context.Context, taskID int) (int, error) {
	var projectID int
	err := s.db.QueryRowContext(ctx,
		"SELECT project_id FROM tasks WHERE id = $1", taskID).Scan(&projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperr.NotFound("task")
		}
		return 0, apperr.Persistence("select task project", err)
	}
	return projectID, nil
}

// projectIDForTaskInfo mencari proyek pemilik sebuah task info, baik
// lewat task maupun lewat subtask yang merujuknya.
func (s *Store) projectIDForTaskInfo(ctx context.Context, taskInfoID int) (int, error) {
	var projectID int
	err := s.db.QueryRowContext(ctx, `
        SELECT t.project_id FROM tasks t WHERE t.task_info_id = $1
        UNION
        SELECT t2.project_id FROM subtasks s
        JOIN tasks t2 ON s.task_id = t2.id
        WHERE s.task_info_id = $1`,
		taskInfoID).Scan(&projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperr.NotFound("task info")
		}
		return 0, apperr.Persistence("select task info project", err)
	}
	return projectID, nil
}

func scanRefRows(rows *sql.Rows) ([]int64, []int64, error) {
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

// deleteTaskRefs menghapus keanggotaan group, menjalankan deleteRows
// (baris task/subtask-nya sendiri), lalu membuang info dan group.
// Urutannya mengikuti foreign key.
func deleteTaskRefs(ctx context.Context, tx *sql.Tx, infoIDs, groupIDs []int64, deleteRows func() error) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM task_group_members WHERE task_group_id = ANY($1)", pq.Array(groupIDs)); err != nil {
		return apperr.Persistence("delete task group memberships", err)
	}
	if err := deleteRows(); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM task_infos WHERE id = ANY($1)", pq.Array(infoIDs)); err != nil {
		return apperr.Persistence("delete task infos", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM task_groups WHERE id = ANY($1)", pq.Array(groupIDs)); err != nil {
		return apperr.Persistence("delete task groups", err)
	}
	return nil
}
