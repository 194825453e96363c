package store

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"taskflow/internal/apperr"
	"taskflow/internal/models"
	"taskflow/pkg/crypto"
	"taskflow/pkg/logger"
	"taskflow/pkg/totp"
)

// CreateAccount membuat user baru beserta baris presence OFFLINE-nya
// dalam satu transaksi. Password di-hash dengan Argon2id; akun Google
// disimpan tanpa credential.
func (s *Store) CreateAccount(ctx context.Context, username, password, email string, isGoogle bool) (int, error) {
	var hash sql.NullString
	if !isGoogle {
		h, err := crypto.HashPassword(password)
		if err != nil {
			return 0, apperr.External("hash password", err)
		}
		hash = sql.NullString{String: h, Valid: true}
	}

	var userID int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			"INSERT INTO users (username, email, password, is_google_account) VALUES ($1, $2, $3, $4) RETURNING id",
			username, email, hash, isGoogle,
		).Scan(&userID)
		if err != nil {
			if isUniqueViolation(err, "users_username_key") {
				return apperr.Duplicate("username")
			}
			if isUniqueViolation(err, "users_email_key") {
				return apperr.Duplicate("email")
			}
			return apperr.Persistence("insert user", err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO statuses (user_id, status) VALUES ($1, $2)",
			userID, models.StatusOffline)
		if err != nil {
			return apperr.Persistence("insert status", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// VerifyCredentials memeriksa email + password. Selalu fail closed:
// email tidak dikenal, akun tanpa password (Google), atau hash tidak
// cocok semuanya menghasilkan false. Kalau hash lama memakai parameter
// usang, hash di-upgrade diam-diam; kegagalan upgrade tidak boleh
// menggagalkan login.
func (s *Store) VerifyCredentials(ctx context.Context, email, password string) bool {
	var hash sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT password FROM users WHERE email = $1", email).Scan(&hash)
	if err != nil || !hash.Valid || hash.String == "" {
		return false
	}

	ok, err := crypto.VerifyPassword(hash.String, password)
	if err != nil || !ok {
		return false
	}

	if crypto.NeedsRehash(hash.String) {
		if newHash, err := crypto.HashPassword(password); err == nil {
			if _, err := s.db.ExecContext(ctx,
				"UPDATE users SET password = $1, updated_at = CURRENT_TIMESTAMP WHERE email = $2",
				newHash, email); err != nil {
				logger.ErrorLogger.Error("Opportunistic rehash failed", zap.Error(err))
			}
		}
	}
	return true
}

// LinkOrCreateGoogleIdentity idempotent: email yang sudah terdaftar
// diperlakukan sebagai login, selain itu akun Google baru dibuat.
// Mengembalikan userID dan true jika akun baru dibuat.
func (s *Store) LinkOrCreateGoogleIdentity(ctx context.Context, email, name string) (int, bool, error) {
	var userID int
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM users WHERE email = $1", email).Scan(&userID)
	if err == nil {
		return userID, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, apperr.Persistence("select user by email", err)
	}

	userID, err = s.CreateAccount(ctx, name, "", email, true)
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

// GetOrCreateTotpSecret mengembalikan secret TOTP user. Secret yang
// sudah ada tidak pernah di-regenerate.
func (s *Store) GetOrCreateTotpSecret(ctx context.Context, email string) (string, error) {
	var secret sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT totp_secret FROM users WHERE email = $1", email).Scan(&secret)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.NotFound("user")
		}
		return "", apperr.Persistence("select totp secret", err)
	}
	if secret.Valid && secret.String != "" {
		return secret.String, nil
	}

	newSecret, err := totp.GenerateSecret(email)
	if err != nil {
		return "", apperr.External("generate totp secret", err)
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE users SET totp_secret = $1 WHERE email = $2", newSecret, email)
	if err != nil {
		return "", apperr.Persistence("update totp secret", err)
	}
	return newSecret, nil
}

// GetUserByEmail mengambil satu user berdasarkan email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password, is_google_account, totp_secret, created_at, updated_at FROM users WHERE email = $1",
		email,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsGoogleAccount, &u.TotpSecret, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, apperr.NotFound("user")
		}
		return u, apperr.Persistence("select user", err)
	}
	return u, nil
}

// GetUserByID mengambil satu user berdasarkan ID.
func (s *Store) GetUserByID(ctx context.Context, userID int) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password, is_google_account, totp_secret, created_at, updated_at FROM users WHERE id = $1",
		userID,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsGoogleAccount, &u.TotpSecret, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, apperr.NotFound("user")
		}
		return u, apperr.Persistence("select user", err)
	}
	return u, nil
}

// GetUserIDByUsername me-resolve username menjadi user ID.
func (s *Store) GetUserIDByUsername(ctx context.Context, username string) (int, error) {
	var userID int
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM users WHERE username = $1", username).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperr.NotFound("user")
		}
		return 0, apperr.Persistence("select user id", err)
	}
	return userID, nil
}

// ListUsers mengembalikan semua user, dipakai antara lain oleh
// picker undangan di klien.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, username, email, password, is_google_account, totp_secret, created_at, updated_at FROM users ORDER BY id")
	if err != nil {
		return nil, apperr.Persistence("select users", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsGoogleAccount, &u.TotpSecret, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, apperr.Persistence("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("iterate users", err)
	}
	return users, nil
}

// DeleteUser menghapus user beserta status, membership proyek dan
// keanggotaan task group miliknya dalam satu transaksi.
func (s *Store) DeleteUser(ctx context.Context, userID int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		steps := []struct {
			op    string
			query string
		}{
			{"delete task group memberships", "DELETE FROM task_group_members WHERE user_id = $1"},
			{"delete memberships", "DELETE FROM memberships WHERE user_id = $1"},
			{"delete status", "DELETE FROM statuses WHERE user_id = $1"},
			{"delete user", "DELETE FROM users WHERE id = $1"},
		}
		for _, st := range steps {
			if _, err := tx.ExecContext(ctx, st.query, userID); err != nil {
				return apperr.Persistence(st.op, err)
			}
		}
		return nil
	})
}
