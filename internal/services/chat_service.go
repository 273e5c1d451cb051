package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/makalov0/M-money-web-backoffice--sub000/internal/models"
)

// Actor is the resolved identity a request or realtime event runs as.
type Actor struct {
	ID   int64
	Role models.Role
}

type customerStore interface {
	Ensure(ctx context.Context, sessionID string, phone, firstName, lastName *string) (*models.Customer, error)
}

type staffDirectory interface {
	GetByID(ctx context.Context, id int64) (*models.StaffUser, error)
	PickAvailableEmployee(ctx context.Context) (*models.StaffUser, error)
	Touch(ctx context.Context, id int64) error
}

type conversationStore interface {
	CreateOpen(ctx context.Context, customerID, employeeID int64) (*models.Conversation, error)
	LatestOpenForCustomer(ctx context.Context, customerID int64) (*models.Conversation, error)
	DetailByID(ctx context.Context, id int64) (*models.ConversationDetail, error)
	List(ctx context.Context, employeeID *int64, limit, offset int) ([]models.ConversationDetail, int, error)
	RefreshLastMessage(ctx context.Context, conversationID int64, imagePlaceholder string) error
	Close(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type messageStore interface {
	Create(ctx context.Context, conversationID int64, senderRole models.Role, senderID *int64,
		messageType models.MessageType, messageText, summaryText string) (*models.ChatMessage, error)
	GetByID(ctx context.Context, id int64) (*models.ChatMessage, error)
	UpdateText(ctx context.Context, id int64, text string) (*models.ChatMessage, error)
	Delete(ctx context.Context, id int64) (int64, error)
	ListByConversation(ctx context.Context, conversationID int64, limit, offset int) ([]models.ChatMessage, int, error)
}

type ChatService struct {
	customers     customerStore
	staff         staffDirectory
	conversations conversationStore
	messages      messageStore
}

// ChatDelivery is what a successful chat mutation hands back for fan-out:
// the conversation with joined participant fields, and the message involved.
type ChatDelivery struct {
	Conversation *models.ConversationDetail
	Message      *models.ChatMessage
}

func NewChatService(
	customers customerStore,
	staff staffDirectory,
	conversations conversationStore,
	messages messageStore,
) *ChatService {
	return &ChatService{
		customers:     customers,
		staff:         staff,
		conversations: conversations,
		messages:      messages,
	}
}

type CustomerMessageInput struct {
	SessionID   string
	Phone       *string
	FirstName   *string
	LastName    *string
	MessageType models.MessageType
	MessageText string
}

// SendCustomerMessage is the anonymous inbound path: it lazily creates the
// customer and their open conversation, then persists the message.
func (s *ChatService) SendCustomerMessage(ctx context.Context, input CustomerMessageInput) (*ChatDelivery, error) {
	sessionID := strings.TrimSpace(input.SessionID)
	text := strings.TrimSpace(input.MessageText)
	if sessionID == "" || text == "" {
		return nil, ErrInvalidInput
	}

	customer, err := s.customers.Ensure(ctx, sessionID, input.Phone, input.FirstName, input.LastName)
	if err != nil {
		return nil, err
	}

	conversation, err := s.ensureConversation(ctx, customer.ID)
	if err != nil {
		return nil, err
	}

	return s.insertAndDeliver(ctx, conversation.ID, models.RoleCustomer, nil, input.MessageType, text)
}

// SendStaffMessage handles employee_message and admin_message. An admin may
// write into any conversation; an employee only into their own assignment.
func (s *ChatService) SendStaffMessage(
	ctx context.Context,
	actor Actor,
	conversationID int64,
	messageType models.MessageType,
	messageText string,
) (*ChatDelivery, error) {
	text := strings.TrimSpace(messageText)
	if conversationID <= 0 || text == "" {
		return nil, ErrInvalidInput
	}

	detail, err := s.conversationForStaff(ctx, actor, conversationID)
	if err != nil {
		return nil, err
	}

	senderID := actor.ID
	return s.insertAndDeliver(ctx, detail.ID, actor.Role, &senderID, messageType, text)
}

// EditMessage replaces a message's text; the summary is recomputed afterwards
// because the edited row may or may not be the latest one.
func (s *ChatService) EditMessage(ctx context.Context, actor Actor, messageID int64, newText string) (*ChatDelivery, error) {
	text := strings.TrimSpace(newText)
	if messageID <= 0 || text == "" {
		return nil, ErrInvalidInput
	}

	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if _, err := s.conversationForStaff(ctx, actor, message.ConversationID); err != nil {
		return nil, err
	}

	updated, err := s.messages.UpdateText(ctx, messageID, text)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if err := s.conversations.RefreshLastMessage(ctx, updated.ConversationID, models.ImageSummaryPlaceholder); err != nil {
		return nil, err
	}

	detail, err := s.conversations.DetailByID(ctx, updated.ConversationID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	return &ChatDelivery{Conversation: detail, Message: updated}, nil
}

// DeleteMessage hard-deletes the row and recomputes the summary. The returned
// delivery carries a snapshot of the deleted message.
func (s *ChatService) DeleteMessage(ctx context.Context, actor Actor, messageID int64) (*ChatDelivery, error) {
	if messageID <= 0 {
		return nil, ErrInvalidInput
	}

	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if _, err := s.conversationForStaff(ctx, actor, message.ConversationID); err != nil {
		return nil, err
	}

	conversationID, err := s.messages.Delete(ctx, messageID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if err := s.conversations.RefreshLastMessage(ctx, conversationID, models.ImageSummaryPlaceholder); err != nil {
		return nil, err
	}

	detail, err := s.conversations.DetailByID(ctx, conversationID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	return &ChatDelivery{Conversation: detail, Message: message}, nil
}

func (s *ChatService) ListConversations(
	ctx context.Context,
	actor Actor,
	limit int,
	offset int,
) ([]models.ConversationDetail, int, error) {
	if !actor.Role.IsStaff() {
		return nil, 0, ErrForbidden
	}
	if limit <= 0 || offset < 0 {
		return nil, 0, ErrInvalidInput
	}

	var employeeID *int64
	if actor.Role == models.RoleEmployee {
		id := actor.ID
		employeeID = &id
	}

	return s.conversations.List(ctx, employeeID, limit, offset)
}

func (s *ChatService) ListMessages(
	ctx context.Context,
	actor Actor,
	conversationID int64,
	limit int,
	offset int,
) ([]models.ChatMessage, int, error) {
	if conversationID <= 0 || limit <= 0 || offset < 0 {
		return nil, 0, ErrInvalidInput
	}
	if _, err := s.conversationForStaff(ctx, actor, conversationID); err != nil {
		return nil, 0, err
	}

	return s.messages.ListByConversation(ctx, conversationID, limit, offset)
}

func (s *ChatService) GetConversation(ctx context.Context, actor Actor, conversationID int64) (*models.ConversationDetail, error) {
	return s.conversationForStaff(ctx, actor, conversationID)
}

// DeleteConversation cascades message deletion and removes the row.
func (s *ChatService) DeleteConversation(ctx context.Context, actor Actor, conversationID int64) error {
	if _, err := s.conversationForStaff(ctx, actor, conversationID); err != nil {
		return err
	}
	return notFoundOr(s.conversations.Delete(ctx, conversationID))
}

// CloseConversation ends an open conversation; the customer's next message
// will start a fresh one.
func (s *ChatService) CloseConversation(ctx context.Context, actor Actor, conversationID int64) error {
	if _, err := s.conversationForStaff(ctx, actor, conversationID); err != nil {
		return err
	}
	return notFoundOr(s.conversations.Close(ctx, conversationID))
}

// ensureConversation returns the customer's open conversation, creating one
// if needed. Creation picks the active employee least recently assigned and
// bumps them afterwards so selection round-robins. The insert races against
// concurrent ensures on the partial unique index; the loser re-selects.
func (s *ChatService) ensureConversation(ctx context.Context, customerID int64) (*models.Conversation, error) {
	conversation, err := s.conversations.LatestOpenForCustomer(ctx, customerID)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	employee, err := s.staff.PickAvailableEmployee(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoEmployeeAvailable
		}
		return nil, err
	}

	conversation, err = s.conversations.CreateOpen(ctx, customerID, employee.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the create race; someone else just opened one.
			return s.conversations.LatestOpenForCustomer(ctx, customerID)
		}
		return nil, err
	}

	// The touch only drives assignment rotation; the conversation already
	// exists, so a failure here must not cost the customer their message.
	if err := s.staff.Touch(ctx, employee.ID); err != nil {
		log.Printf("chat assignment touch employee %d: %v", employee.ID, err)
	}

	return conversation, nil
}

func (s *ChatService) insertAndDeliver(
	ctx context.Context,
	conversationID int64,
	senderRole models.Role,
	senderID *int64,
	messageType models.MessageType,
	text string,
) (*ChatDelivery, error) {
	message, err := s.messages.Create(
		ctx, conversationID, senderRole, senderID,
		messageType, text, summaryText(messageType, text),
	)
	if err != nil {
		return nil, err
	}

	detail, err := s.conversations.DetailByID(ctx, conversationID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	return &ChatDelivery{Conversation: detail, Message: message}, nil
}

// conversationForStaff loads the conversation and enforces assignment-based
// visibility: admins see everything, employees only their own assignments.
func (s *ChatService) conversationForStaff(ctx context.Context, actor Actor, conversationID int64) (*models.ConversationDetail, error) {
	if !actor.Role.IsStaff() {
		return nil, ErrForbidden
	}

	detail, err := s.conversations.DetailByID(ctx, conversationID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if actor.Role == models.RoleEmployee && detail.EmployeeID != actor.ID {
		return nil, ErrForbidden
	}

	return detail, nil
}

func summaryText(messageType models.MessageType, text string) string {
	if messageType == models.MessageTypeImage {
		return models.ImageSummaryPlaceholder
	}
	return text
}

func notFoundOr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
