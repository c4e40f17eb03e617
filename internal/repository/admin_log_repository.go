package repository

import (
	"context"
	"database/sql"
)

// AdminLogRepo records administrative mutations. Every entry names the
// acting admin explicitly; there is no implicit system actor.
type AdminLogRepo struct{ DB *sql.DB }

func NewAdminLogRepo(db *sql.DB) *AdminLogRepo { return &AdminLogRepo{DB: db} }

// InsertTx appends a log row inside the same transaction as the mutation it
// describes, so the action and its audit record commit together.
func (r *AdminLogRepo) InsertTx(ctx context.Context, tx *sql.Tx, adminID uint64, actionType, details, targetType string, targetID uint64) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO admin_logs (admin_id, action_type, action_details, target_type, target_id) VALUES (?,?,?,?,?)",
		adminID, actionType, details, targetType, targetID)
	return err
}
