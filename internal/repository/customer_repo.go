package repository

import (
	"context"

	"github.com/makalov0/M-money-web-backoffice--sub000/internal/models"
)

type CustomerRepository struct {
	db DBTX
}

func NewCustomerRepository(db DBTX) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Ensure inserts the customer on first contact and is a no-op upsert after
// that. Optional fields omitted on later calls never null out stored values.
func (r *CustomerRepository) Ensure(
	ctx context.Context,
	sessionID string,
	phone, firstName, lastName *string,
) (*models.Customer, error) {
	query := `
		INSERT INTO customers (session_id, phone, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET
			phone = COALESCE(EXCLUDED.phone, customers.phone),
			first_name = COALESCE(EXCLUDED.first_name, customers.first_name),
			last_name = COALESCE(EXCLUDED.last_name, customers.last_name),
			updated_at = NOW()
		RETURNING id, session_id, phone, first_name, last_name, created_at, updated_at
	`

	var customer models.Customer
	err := r.db.QueryRow(ctx, query, sessionID, phone, firstName, lastName).Scan(
		&customer.ID,
		&customer.SessionID,
		&customer.Phone,
		&customer.FirstName,
		&customer.LastName,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &customer, nil
}

func (r *CustomerRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Customer, error) {
	query := `
		SELECT id, session_id, phone, first_name, last_name, created_at, updated_at
		FROM customers
		WHERE session_id = $1
	`

	var customer models.Customer
	err := r.db.QueryRow(ctx, query, sessionID).Scan(
		&customer.ID,
		&customer.SessionID,
		&customer.Phone,
		&customer.FirstName,
		&customer.LastName,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &customer, nil
}
