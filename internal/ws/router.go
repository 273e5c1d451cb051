package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/makalov0/M-money-web-backoffice--sub000/internal/models"
	"github.com/makalov0/M-money-web-backoffice--sub000/internal/services"
)

// Inbound event names.
const (
	EventJoinCustomer    = "join_customer"
	EventJoinAdmin       = "join_admin"
	EventJoinEmployee    = "join_employee"
	EventCustomerMessage = "customer_message"
	EventEmployeeMessage = "employee_message"
	EventAdminMessage    = "admin_message"
	EventEditMessage     = "edit_message"
	EventDeleteMessage   = "delete_message"
	EventAdminToEmployee = "admin_to_employee"
	EventEmployeeToAdmin = "employee_to_admin"
)

// Outbound event names.
const (
	EventNewMessage     = "new_message"
	EventEditedMessage  = "edited_message"
	EventDeletedMessage = "deleted_message"
	EventStaffMessage   = "staff_message"
	EventChatError      = "chat_error"
)

// chat_error codes.
const (
	CodeBadPayload          = "bad_payload"
	CodeBadRequest          = "bad_request"
	CodeForbidden           = "forbidden"
	CodeNotFound            = "not_found"
	CodeNoEmployeeAvailable = "no_employee_available"
	CodeInternal            = "internal_error"
)

type inboundEvent struct {
	Type             string  `json:"type"`
	SessionID        string  `json:"session_id"`
	Phone            *string `json:"phone"`
	FirstName        *string `json:"first_name"`
	LastName         *string `json:"last_name"`
	ConversationID   int64   `json:"conversation_id"`
	MessageID        int64   `json:"message_id"`
	MessageType      string  `json:"message_type"`
	MessageText      string  `json:"message_text"`
	ToEmployeeUserID int64   `json:"to_employee_user_id"`
	ToAdminUserID    int64   `json:"to_admin_user_id"`
}

type outboundEvent struct {
	Type         string                     `json:"type"`
	Conversation *models.ConversationDetail `json:"conversation,omitempty"`
	Message      *models.ChatMessage        `json:"message,omitempty"`
	PeerUserID   int64                      `json:"peer_user_id,omitempty"`
	Code         string                     `json:"code,omitempty"`
	Detail       string                     `json:"detail,omitempty"`
}

type chatCore interface {
	SendCustomerMessage(ctx context.Context, input services.CustomerMessageInput) (*services.ChatDelivery, error)
	SendStaffMessage(ctx context.Context, actor services.Actor, conversationID int64,
		messageType models.MessageType, messageText string) (*services.ChatDelivery, error)
	EditMessage(ctx context.Context, actor services.Actor, messageID int64, newText string) (*services.ChatDelivery, error)
	DeleteMessage(ctx context.Context, actor services.Actor, messageID int64) (*services.ChatDelivery, error)
}

type auditor interface {
	Record(ctx context.Context, actorRole, actorID, action, detail string)
}

// Router authorizes each inbound event against the connection's identity,
// drives the chat service, and fans results out to the affected rooms.
// Failures are acked back to the sender as chat_error events rather than
// silently dropped.
type Router struct {
	hub   *Hub
	chat  chatCore
	audit auditor
}

func NewRouter(hub *Hub, chat chatCore, audit auditor) *Router {
	return &Router{hub: hub, chat: chat, audit: audit}
}

func (r *Router) HandleEvent(client *Client, payload []byte) {
	var event inboundEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		r.ackError(client, CodeBadPayload, "malformed event payload")
		return
	}

	ctx := context.Background()

	switch event.Type {
	case EventJoinCustomer:
		r.handleJoinCustomer(client, event)
	case EventJoinAdmin:
		r.handleJoinStaff(ctx, client, models.RoleAdmin)
	case EventJoinEmployee:
		r.handleJoinStaff(ctx, client, models.RoleEmployee)
	case EventCustomerMessage:
		r.handleCustomerMessage(ctx, client, event)
	case EventEmployeeMessage:
		r.handleStaffMessage(ctx, client, event, models.RoleEmployee)
	case EventAdminMessage:
		r.handleStaffMessage(ctx, client, event, models.RoleAdmin)
	case EventEditMessage:
		r.handleEditMessage(ctx, client, event)
	case EventDeleteMessage:
		r.handleDeleteMessage(ctx, client, event)
	case EventAdminToEmployee:
		r.handleStaffToStaff(ctx, client, event, models.RoleAdmin, event.ToEmployeeUserID)
	case EventEmployeeToAdmin:
		r.handleStaffToStaff(ctx, client, event, models.RoleEmployee, event.ToAdminUserID)
	default:
		r.ackError(client, CodeBadRequest, "unknown event type")
	}
}

func (r *Router) handleJoinCustomer(client *Client, event inboundEvent) {
	sessionID := strings.TrimSpace(event.SessionID)
	if sessionID == "" {
		r.ackError(client, CodeBadRequest, "session_id is required")
		return
	}
	if client.identity.Verified {
		r.ackError(client, CodeForbidden, "staff connections cannot join customer rooms")
		return
	}
	r.hub.Join(client, CustomerRoom(sessionID))
}

func (r *Router) handleJoinStaff(ctx context.Context, client *Client, required models.Role) {
	identity := client.identity
	if !identity.Verified || identity.Role != required {
		r.denied(ctx, client, "join_"+strings.ToLower(string(required)))
		return
	}
	if required == models.RoleAdmin {
		r.hub.Join(client, AdminRoom(), UserRoom(identity.UserID))
		return
	}
	r.hub.Join(client, EmployeeRoom(identity.UserID), UserRoom(identity.UserID))
}

func (r *Router) handleCustomerMessage(ctx context.Context, client *Client, event inboundEvent) {
	messageType, ok := models.ParseMessageType(event.MessageType)
	if !ok {
		r.ackError(client, CodeBadRequest, "unknown message_type")
		return
	}

	delivery, err := r.chat.SendCustomerMessage(ctx, services.CustomerMessageInput{
		SessionID:   event.SessionID,
		Phone:       event.Phone,
		FirstName:   event.FirstName,
		LastName:    event.LastName,
		MessageType: messageType,
		MessageText: event.MessageText,
	})
	if err != nil {
		r.ackServiceError(ctx, client, event.Type, err)
		return
	}

	r.broadcastDelivery(EventNewMessage, delivery)
}

func (r *Router) handleStaffMessage(ctx context.Context, client *Client, event inboundEvent, required models.Role) {
	identity := client.identity
	if !identity.Verified || identity.Role != required {
		r.denied(ctx, client, event.Type)
		return
	}
	messageType, ok := models.ParseMessageType(event.MessageType)
	if !ok {
		r.ackError(client, CodeBadRequest, "unknown message_type")
		return
	}

	actor := services.Actor{ID: identity.UserID, Role: identity.Role}
	delivery, err := r.chat.SendStaffMessage(ctx, actor, event.ConversationID, messageType, event.MessageText)
	if err != nil {
		r.ackServiceError(ctx, client, event.Type, err)
		return
	}

	r.broadcastDelivery(EventNewMessage, delivery)
}

func (r *Router) handleEditMessage(ctx context.Context, client *Client, event inboundEvent) {
	identity := client.identity
	if !identity.Verified {
		r.denied(ctx, client, event.Type)
		return
	}

	actor := services.Actor{ID: identity.UserID, Role: identity.Role}
	delivery, err := r.chat.EditMessage(ctx, actor, event.MessageID, event.MessageText)
	if err != nil {
		r.ackServiceError(ctx, client, event.Type, err)
		return
	}

	r.broadcastDelivery(EventEditedMessage, delivery)
}

func (r *Router) handleDeleteMessage(ctx context.Context, client *Client, event inboundEvent) {
	identity := client.identity
	if !identity.Verified {
		r.denied(ctx, client, event.Type)
		return
	}

	actor := services.Actor{ID: identity.UserID, Role: identity.Role}
	delivery, err := r.chat.DeleteMessage(ctx, actor, event.MessageID)
	if err != nil {
		r.ackServiceError(ctx, client, event.Type, err)
		return
	}

	r.broadcastDelivery(EventDeletedMessage, delivery)
}

// handleStaffToStaff relays a direct message between two staff members. The
// message is ephemeral: it exists only on the wire, never in the store.
func (r *Router) handleStaffToStaff(ctx context.Context, client *Client, event inboundEvent, required models.Role, recipientID int64) {
	identity := client.identity
	if !identity.Verified || identity.Role != required {
		r.denied(ctx, client, event.Type)
		return
	}
	text := strings.TrimSpace(event.MessageText)
	if recipientID <= 0 || text == "" {
		r.ackError(client, CodeBadRequest, "recipient and message_text are required")
		return
	}
	messageType, ok := models.ParseMessageType(event.MessageType)
	if !ok {
		r.ackError(client, CodeBadRequest, "unknown message_type")
		return
	}

	senderID := identity.UserID
	message := &models.ChatMessage{
		SenderRole:  identity.Role,
		SenderID:    &senderID,
		MessageType: messageType,
		MessageText: text,
		CreatedAt:   time.Now().UTC(),
	}

	r.sendTo(UserRoom(senderID), outboundEvent{Type: EventStaffMessage, PeerUserID: recipientID, Message: message})
	r.sendTo(UserRoom(recipientID), outboundEvent{Type: EventStaffMessage, PeerUserID: senderID, Message: message})
}

func (r *Router) broadcastDelivery(eventType string, delivery *services.ChatDelivery) {
	payload, err := json.Marshal(outboundEvent{
		Type:         eventType,
		Conversation: delivery.Conversation,
		Message:      delivery.Message,
	})
	if err != nil {
		log.Printf("chat router encode %s: %v", eventType, err)
		return
	}

	r.hub.Broadcast(payload,
		CustomerRoom(delivery.Conversation.CustomerSessionID),
		EmployeeRoom(delivery.Conversation.EmployeeID),
		AdminRoom(),
	)
}

func (r *Router) sendTo(room RoomKey, event outboundEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("chat router encode %s: %v", event.Type, err)
		return
	}
	r.hub.Broadcast(payload, room)
}

func (r *Router) ackServiceError(ctx context.Context, client *Client, action string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		r.ackError(client, CodeBadRequest, "missing or invalid fields")
	case errors.Is(err, services.ErrForbidden):
		r.denied(ctx, client, action)
	case errors.Is(err, services.ErrNotFound):
		r.ackError(client, CodeNotFound, "target not found")
	case errors.Is(err, services.ErrNoEmployeeAvailable):
		r.ackError(client, CodeNoEmployeeAvailable, "no employee is available to take the conversation")
	default:
		log.Printf("chat router %s: %v", action, err)
		r.ackError(client, CodeInternal, "failed to process event")
	}
}

// denied acks a forbidden event and leaves an audit trail; the connection
// itself stays up.
func (r *Router) denied(ctx context.Context, client *Client, action string) {
	identity := client.identity
	actorID := ""
	if identity.Verified {
		actorID = fmt.Sprintf("%d", identity.UserID)
	}
	if r.audit != nil {
		r.audit.Record(ctx, string(identity.Role), actorID, "chat."+action+".denied", "realtime authorization rejected")
	}
	r.ackError(client, CodeForbidden, "not allowed")
}

func (r *Router) ackError(client *Client, code, detail string) {
	payload, err := json.Marshal(outboundEvent{Type: EventChatError, Code: code, Detail: detail})
	if err != nil {
		return
	}
	client.enqueue(payload)
}
