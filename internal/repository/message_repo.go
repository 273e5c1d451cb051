package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/makalov0/M-money-web-backoffice--sub000/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, conversation_id, sender_role, sender_id, message_type, message_text, created_at`

func scanMessage(row pgx.Row) (*models.ChatMessage, error) {
	var message models.ChatMessage
	err := row.Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderRole,
		&message.SenderID,
		&message.MessageType,
		&message.MessageText,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// Create inserts the message and updates the owning conversation's
// denormalized summary in one statement. summaryText is the rendered form
// for the summary (the literal text, or the image placeholder).
func (r *MessageRepository) Create(
	ctx context.Context,
	conversationID int64,
	senderRole models.Role,
	senderID *int64,
	messageType models.MessageType,
	messageText string,
	summaryText string,
) (*models.ChatMessage, error) {
	query := `
		WITH inserted AS (
			INSERT INTO messages (conversation_id, sender_role, sender_id, message_type, message_text)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING ` + messageColumns + `
		), summary AS (
			UPDATE conversations c
			SET last_message = $6,
				last_message_at = inserted.created_at,
				updated_at = NOW()
			FROM inserted
			WHERE c.id = inserted.conversation_id
		)
		SELECT ` + messageColumns + ` FROM inserted
	`

	return scanMessage(r.db.QueryRow(
		ctx, query,
		conversationID, senderRole, senderID, messageType, messageText, summaryText,
	))
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*models.ChatMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	return scanMessage(r.db.QueryRow(ctx, query, id))
}

// UpdateText replaces the message text in place. created_at is untouched and
// the conversation summary is not refreshed here; an edit to a non-latest
// message must not perturb the summary, so the caller decides when to refresh.
func (r *MessageRepository) UpdateText(ctx context.Context, id int64, text string) (*models.ChatMessage, error) {
	query := `
		UPDATE messages
		SET message_text = $2
		WHERE id = $1
		RETURNING ` + messageColumns + `
	`
	return scanMessage(r.db.QueryRow(ctx, query, id, text))
}

// Delete hard-deletes the row and reports which conversation it belonged to.
func (r *MessageRepository) Delete(ctx context.Context, id int64) (int64, error) {
	var conversationID int64
	err := r.db.QueryRow(ctx, `
		DELETE FROM messages
		WHERE id = $1
		RETURNING conversation_id
	`, id).Scan(&conversationID)
	if err != nil {
		return 0, err
	}
	return conversationID, nil
}

// ListByConversation returns messages in chronological display order.
func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID int64,
	limit int,
	offset int,
) ([]models.ChatMessage, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_id = $1
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		messages = append(messages, *message)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}
