package repository

import (
	"context"

	"github.com/makalov0/M-money-web-backoffice--sub000/internal/models"
)

type StaffRepository struct {
	db DBTX
}

func NewStaffRepository(db DBTX) *StaffRepository {
	return &StaffRepository{db: db}
}

const staffColumns = `id, email, password_hash, role, status, display_name, created_at, updated_at`

func (r *StaffRepository) scanStaff(row interface{ Scan(dest ...any) error }) (*models.StaffUser, error) {
	var staff models.StaffUser
	err := row.Scan(
		&staff.ID,
		&staff.Email,
		&staff.PasswordHash,
		&staff.Role,
		&staff.Status,
		&staff.DisplayName,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *StaffRepository) GetByID(ctx context.Context, id int64) (*models.StaffUser, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_users WHERE id = $1`
	return r.scanStaff(r.db.QueryRow(ctx, query, id))
}

func (r *StaffRepository) GetByEmail(ctx context.Context, email string) (*models.StaffUser, error) {
	query := `SELECT ` + staffColumns + ` FROM staff_users WHERE email = $1`
	return r.scanStaff(r.db.QueryRow(ctx, query, email))
}

// PickAvailableEmployee returns the active employee least recently assigned,
// using updated_at (falling back to created_at) as the recency marker.
// Returns pgx.ErrNoRows when no employee is active.
func (r *StaffRepository) PickAvailableEmployee(ctx context.Context) (*models.StaffUser, error) {
	query := `
		SELECT ` + staffColumns + `
		FROM staff_users
		WHERE role = 'EMPLOYEE' AND status = 'active'
		ORDER BY COALESCE(updated_at, created_at) ASC, id ASC
		LIMIT 1
	`
	return r.scanStaff(r.db.QueryRow(ctx, query))
}

// Touch bumps updated_at so the next PickAvailableEmployee rotates away from
// this employee.
func (r *StaffRepository) Touch(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE staff_users
		SET updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}
