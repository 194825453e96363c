package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"taskflow/internal/apperr"
	"taskflow/internal/models"
)

// Store mengeksekusi semua operasi inti TaskFlow terhadap PostgreSQL.
// Koneksi disuntikkan lewat New, tidak ada state global.
// Semua operasi bisa dipanggil langsung tanpa lewat HTTP layer.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB mengembalikan handle database, dipakai oleh bootstrap dan test.
func (s *Store) DB() *sql.DB { return s.db }

// withTx membungkus satu operasi logis dalam satu transaksi:
// commit jika fn sukses, rollback jika tidak. Ini menutup celah partial
// state yang muncul kalau tiap query di-commit sendiri-sendiri.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Persistence("begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Persistence("commit transaction", err)
	}
	return nil
}

// isUniqueViolation memeriksa apakah err adalah pelanggaran unique
// constraint postgres (kode 23505), opsional pada constraint tertentu.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// authorize adalah gerbang untuk setiap operasi project-scoped.
// Anggota harus ACCEPTED dan permission-nya >= min. Dipanggil sebelum
// mutasi apa pun dijalankan (fail fast, tanpa side effect parsial).
func (s *Store) authorize(ctx context.Context, projectID, userID int, min models.Permission) error {
	m, err := s.ResolvePermission(ctx, projectID, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.NotAuthorized(fmt.Sprintf("user %d is not a member of project %d", userID, projectID))
		}
		return err
	}
	if m.InvitationState != models.InvitationAccepted {
		return apperr.NotAuthorized(fmt.Sprintf("user %d has not accepted project %d", userID, projectID))
	}
	if m.Permission < min {
		return apperr.NotAuthorized(fmt.Sprintf("user %d needs %s on project %d", userID, min, projectID))
	}
	return nil
}
