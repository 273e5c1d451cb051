package models

import "time"

// Role identifies the class of a chat participant. Customers never
// authenticate; staff roles come from a verified token.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleEmployee Role = "EMPLOYEE"
	RoleAdmin    Role = "ADMIN"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleCustomer, RoleEmployee, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

func (r Role) IsStaff() bool {
	return r == RoleEmployee || r == RoleAdmin
}

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// ParseMessageType treats an empty string as a text message, matching the
// inbound event payloads where message_type is optional.
func ParseMessageType(s string) (MessageType, bool) {
	if s == "" {
		return MessageTypeText, true
	}
	switch MessageType(s) {
	case MessageTypeText, MessageTypeImage:
		return MessageType(s), true
	}
	return "", false
}

// ImageSummaryPlaceholder is what an image message renders as in a
// conversation's denormalized last_message field, instead of the raw URL.
const ImageSummaryPlaceholder = "[image]"

const (
	ConversationOpen   = "open"
	ConversationClosed = "closed"
)

// Customer is an anonymous end user, keyed by a self-chosen session id.
type Customer struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Phone     *string   `json:"phone,omitempty"`
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Conversation struct {
	ID            int64      `json:"id"`
	CustomerID    int64      `json:"customer_id"`
	EmployeeID    int64      `json:"employee_id"`
	Status        string     `json:"status"`
	LastMessage   *string    `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ConversationDetail is a conversation with the joined participant fields
// every chat consumer needs for display.
type ConversationDetail struct {
	Conversation
	CustomerSessionID   string  `json:"customer_session_id"`
	CustomerPhone       *string `json:"customer_phone,omitempty"`
	CustomerFirstName   *string `json:"customer_first_name,omitempty"`
	CustomerLastName    *string `json:"customer_last_name,omitempty"`
	EmployeeDisplayName string  `json:"employee_display_name"`
}

type ChatMessage struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversation_id"`
	SenderRole     Role        `json:"sender_role"`
	SenderID       *int64      `json:"sender_id,omitempty"`
	MessageType    MessageType `json:"message_type"`
	MessageText    string      `json:"message_text"`
	CreatedAt      time.Time   `json:"created_at"`
}
