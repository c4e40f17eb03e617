package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/DataBase-Project-2025-2/library-management-system/internal/model"
	"github.com/DataBase-Project-2025-2/library-management-system/internal/utils"
)

// MemberRepo persists library members.
type MemberRepo struct{ DB *sql.DB }

func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{DB: db} }

const memberColumns = "id, student_id, name, email, password_hash, role, created_at, updated_at"

// Create inserts a member and returns its ID. Duplicate student ids and
// emails map to their sentinel errors via the unique-key violation.
func (r *MemberRepo) Create(ctx context.Context, studentID, name, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO members (student_id, name, email, password_hash, role) VALUES (?,?,?,?,?)",
		studentID, name, email, hash, role)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "1062") {
			if strings.Contains(msg, "student") {
				return 0, ErrStudentIDExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a member by normalized email.
func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (model.Member, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var m model.Member
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE email=? LIMIT 1",
		email).Scan(&m.ID, &m.StudentID, &m.Name, &m.Email, &m.PasswordHash, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// GetByID fetches a member by id.
func (r *MemberRepo) GetByID(ctx context.Context, id uint64) (model.Member, error) {
	var m model.Member
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE id=? LIMIT 1",
		id).Scan(&m.ID, &m.StudentID, &m.Name, &m.Email, &m.PasswordHash, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}
