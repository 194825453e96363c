package store

import (
	"context"

	"taskflow/internal/apperr"
	"taskflow/internal/models"
)

// SetStatus menimpa status presence user tanpa syarat. Dipanggil saat
// login (ONLINE), logout (OFFLINE), dan deteksi idle. Last write wins.
func (s *Store) SetStatus(ctx context.Context, userID int, status models.PresenceStatus) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO statuses (user_id, status) VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE SET status = EXCLUDED.status`,
		userID, status)
	if err != nil {
		return apperr.Persistence("upsert status", err)
	}
	return nil
}

// GetAllStatuses membaca presence semua user sekaligus. Project view
// mem-poll fungsi ini tiap interval, bukan menerima push.
func (s *Store) GetAllStatuses(ctx context.Context) ([]models.Presence, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, status FROM statuses ORDER BY user_id")
	if err != nil {
		return nil, apperr.Persistence("select statuses", err)
	}
	defer rows.Close()

	statuses := []models.Presence{}
	for rows.Next() {
		var p models.Presence
		if err := rows.Scan(&p.UserID, &p.Status); err != nil {
			return nil, apperr.Persistence("scan status", err)
		}
		statuses = append(statuses, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate statuses", err)
	}
	return statuses, nil
}
