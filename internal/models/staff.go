package models

import "time"

const (
	StaffActive   = "active"
	StaffInactive = "inactive"
)

// StaffUser is owned by the auth collaborator; the chat core only reads it
// for assignment and role checks.
type StaffUser struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Status       string    `json:"status"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AuditEvent is an insert-only record of security-relevant actions.
type AuditEvent struct {
	ID        int64     `json:"id"`
	ActorRole string    `json:"actor_role"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}
