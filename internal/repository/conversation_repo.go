package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/makalov0/M-money-web-backoffice--sub000/internal/models"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationDetailSelect = `
	SELECT
		c.id, c.customer_id, c.employee_id, c.status,
		c.last_message, c.last_message_at, c.created_at, c.updated_at,
		cu.session_id, cu.phone, cu.first_name, cu.last_name,
		e.display_name
	FROM conversations c
	JOIN customers cu ON cu.id = c.customer_id
	JOIN staff_users e ON e.id = c.employee_id
`

func scanConversationDetail(row pgx.Row) (*models.ConversationDetail, error) {
	var detail models.ConversationDetail
	err := row.Scan(
		&detail.ID,
		&detail.CustomerID,
		&detail.EmployeeID,
		&detail.Status,
		&detail.LastMessage,
		&detail.LastMessageAt,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&detail.CustomerSessionID,
		&detail.CustomerPhone,
		&detail.CustomerFirstName,
		&detail.CustomerLastName,
		&detail.EmployeeDisplayName,
	)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// CreateOpen inserts a new open conversation. The partial unique index on
// (customer_id) WHERE status = 'open' makes concurrent creates for the same
// customer collide; the loser gets pgx.ErrNoRows and must re-select.
func (r *ConversationRepository) CreateOpen(
	ctx context.Context,
	customerID int64,
	employeeID int64,
) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (customer_id, employee_id, status)
		VALUES ($1, $2, 'open')
		ON CONFLICT (customer_id) WHERE status = 'open' DO NOTHING
		RETURNING id, customer_id, employee_id, status,
			last_message, last_message_at, created_at, updated_at
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, customerID, employeeID).Scan(
		&conversation.ID,
		&conversation.CustomerID,
		&conversation.EmployeeID,
		&conversation.Status,
		&conversation.LastMessage,
		&conversation.LastMessageAt,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) LatestOpenForCustomer(
	ctx context.Context,
	customerID int64,
) (*models.Conversation, error) {
	query := `
		SELECT id, customer_id, employee_id, status,
			last_message, last_message_at, created_at, updated_at
		FROM conversations
		WHERE customer_id = $1 AND status = 'open'
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&conversation.ID,
		&conversation.CustomerID,
		&conversation.EmployeeID,
		&conversation.Status,
		&conversation.LastMessage,
		&conversation.LastMessageAt,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) DetailByID(ctx context.Context, id int64) (*models.ConversationDetail, error) {
	query := conversationDetailSelect + ` WHERE c.id = $1`
	return scanConversationDetail(r.db.QueryRow(ctx, query, id))
}

// List returns conversations ordered by most recent activity. A nil
// employeeID means no scoping (the admin view); otherwise only that
// employee's assignments are visible.
func (r *ConversationRepository) List(
	ctx context.Context,
	employeeID *int64,
	limit int,
	offset int,
) ([]models.ConversationDetail, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM conversations
		WHERE $1::bigint IS NULL OR employee_id = $1
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, employeeID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := conversationDetailSelect + `
		WHERE $1::bigint IS NULL OR c.employee_id = $1
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC, c.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, employeeID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	details := make([]models.ConversationDetail, 0)
	for rows.Next() {
		detail, err := scanConversationDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		details = append(details, *detail)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return details, total, nil
}

// RefreshLastMessage recomputes the denormalized summary from the most
// recent remaining message, or clears it when none remain. Image messages
// render as the supplied placeholder.
func (r *ConversationRepository) RefreshLastMessage(
	ctx context.Context,
	conversationID int64,
	imagePlaceholder string,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations SET
			last_message = (
				SELECT CASE WHEN message_type = 'image' THEN $2 ELSE message_text END
				FROM messages
				WHERE conversation_id = $1
				ORDER BY created_at DESC, id DESC
				LIMIT 1
			),
			last_message_at = (
				SELECT created_at
				FROM messages
				WHERE conversation_id = $1
				ORDER BY created_at DESC, id DESC
				LIMIT 1
			),
			updated_at = NOW()
		WHERE id = $1
	`, conversationID, imagePlaceholder)
	return err
}

func (r *ConversationRepository) Close(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET status = 'closed', updated_at = NOW()
		WHERE id = $1 AND status = 'open'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes the conversation row; the messages FK cascades, so the
// history goes with it in the same statement.
func (r *ConversationRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
