package services

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/makalov0/M-money-web-backoffice--sub000/internal/models"
)

// fakeChatStore backs all four store interfaces with maps, mirroring the SQL
// semantics the repositories implement: COALESCE upserts, the partial unique
// index on open conversations, and summary recomputation.
type fakeChatStore struct {
	customers     map[string]*models.Customer
	staff         map[int64]*models.StaffUser
	conversations map[int64]*models.Conversation
	messages      map[int64]*models.ChatMessage

	nextCustomerID     int64
	nextConversationID int64
	nextMessageID      int64
	clock              time.Time

	touchErr error

	// beforeCreateOpen runs at the top of CreateOpen, to simulate a
	// concurrent ensure sneaking in between lookup and insert.
	beforeCreateOpen func()
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		customers:     make(map[string]*models.Customer),
		staff:         make(map[int64]*models.StaffUser),
		conversations: make(map[int64]*models.Conversation),
		messages:      make(map[int64]*models.ChatMessage),
		clock:         time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeChatStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeChatStore) addEmployee(id int64, status string, updatedAt time.Time) {
	f.staff[id] = &models.StaffUser{
		ID:          id,
		Role:        models.RoleEmployee,
		Status:      status,
		DisplayName: "employee",
		CreatedAt:   updatedAt,
		UpdatedAt:   updatedAt,
	}
}

func (f *fakeChatStore) Ensure(_ context.Context, sessionID string, phone, firstName, lastName *string) (*models.Customer, error) {
	if existing, ok := f.customers[sessionID]; ok {
		if phone != nil {
			existing.Phone = phone
		}
		if firstName != nil {
			existing.FirstName = firstName
		}
		if lastName != nil {
			existing.LastName = lastName
		}
		existing.UpdatedAt = f.tick()
		copied := *existing
		return &copied, nil
	}

	f.nextCustomerID++
	now := f.tick()
	customer := &models.Customer{
		ID:        f.nextCustomerID,
		SessionID: sessionID,
		Phone:     phone,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.customers[sessionID] = customer
	copied := *customer
	return &copied, nil
}

func (f *fakeChatStore) GetByID(_ context.Context, id int64) (*models.StaffUser, error) {
	staff, ok := f.staff[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *staff
	return &copied, nil
}

func (f *fakeChatStore) PickAvailableEmployee(_ context.Context) (*models.StaffUser, error) {
	var pick *models.StaffUser
	for _, staff := range f.staff {
		if staff.Role != models.RoleEmployee || staff.Status != models.StaffActive {
			continue
		}
		if pick == nil ||
			staff.UpdatedAt.Before(pick.UpdatedAt) ||
			(staff.UpdatedAt.Equal(pick.UpdatedAt) && staff.ID < pick.ID) {
			pick = staff
		}
	}
	if pick == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *pick
	return &copied, nil
}

func (f *fakeChatStore) Touch(_ context.Context, id int64) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	staff, ok := f.staff[id]
	if !ok {
		return pgx.ErrNoRows
	}
	staff.UpdatedAt = f.tick()
	return nil
}

func (f *fakeChatStore) CreateOpen(_ context.Context, customerID, employeeID int64) (*models.Conversation, error) {
	if f.beforeCreateOpen != nil {
		hook := f.beforeCreateOpen
		f.beforeCreateOpen = nil
		hook()
	}
	for _, conversation := range f.conversations {
		if conversation.CustomerID == customerID && conversation.Status == models.ConversationOpen {
			return nil, pgx.ErrNoRows
		}
	}

	f.nextConversationID++
	now := f.tick()
	conversation := &models.Conversation{
		ID:         f.nextConversationID,
		CustomerID: customerID,
		EmployeeID: employeeID,
		Status:     models.ConversationOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.conversations[conversation.ID] = conversation
	copied := *conversation
	return &copied, nil
}

func (f *fakeChatStore) LatestOpenForCustomer(_ context.Context, customerID int64) (*models.Conversation, error) {
	var latest *models.Conversation
	for _, conversation := range f.conversations {
		if conversation.CustomerID != customerID || conversation.Status != models.ConversationOpen {
			continue
		}
		if latest == nil || conversation.CreatedAt.After(latest.CreatedAt) ||
			(conversation.CreatedAt.Equal(latest.CreatedAt) && conversation.ID > latest.ID) {
			latest = conversation
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeChatStore) DetailByID(_ context.Context, id int64) (*models.ConversationDetail, error) {
	conversation, ok := f.conversations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}

	detail := &models.ConversationDetail{Conversation: *conversation}
	for _, customer := range f.customers {
		if customer.ID == conversation.CustomerID {
			detail.CustomerSessionID = customer.SessionID
			detail.CustomerPhone = customer.Phone
			detail.CustomerFirstName = customer.FirstName
			detail.CustomerLastName = customer.LastName
		}
	}
	if staff, ok := f.staff[conversation.EmployeeID]; ok {
		detail.EmployeeDisplayName = staff.DisplayName
	}
	return detail, nil
}

func (f *fakeChatStore) List(_ context.Context, employeeID *int64, limit, offset int) ([]models.ConversationDetail, int, error) {
	details := make([]models.ConversationDetail, 0)
	for id, conversation := range f.conversations {
		if employeeID != nil && conversation.EmployeeID != *employeeID {
			continue
		}
		detail, err := f.DetailByID(context.Background(), id)
		if err != nil {
			return nil, 0, err
		}
		details = append(details, *detail)
	}

	activity := func(d models.ConversationDetail) time.Time {
		if d.LastMessageAt != nil {
			return *d.LastMessageAt
		}
		return d.CreatedAt
	}
	sort.Slice(details, func(i, j int) bool {
		ti, tj := activity(details[i]), activity(details[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return details[i].ID > details[j].ID
	})

	total := len(details)
	if offset >= len(details) {
		return []models.ConversationDetail{}, total, nil
	}
	details = details[offset:]
	if limit < len(details) {
		details = details[:limit]
	}
	return details, total, nil
}

func (f *fakeChatStore) RefreshLastMessage(_ context.Context, conversationID int64, imagePlaceholder string) error {
	conversation, ok := f.conversations[conversationID]
	if !ok {
		return nil
	}

	var latest *models.ChatMessage
	for _, message := range f.messages {
		if message.ConversationID != conversationID {
			continue
		}
		if latest == nil || message.CreatedAt.After(latest.CreatedAt) ||
			(message.CreatedAt.Equal(latest.CreatedAt) && message.ID > latest.ID) {
			latest = message
		}
	}

	if latest == nil {
		conversation.LastMessage = nil
		conversation.LastMessageAt = nil
		return nil
	}

	text := latest.MessageText
	if latest.MessageType == models.MessageTypeImage {
		text = imagePlaceholder
	}
	at := latest.CreatedAt
	conversation.LastMessage = &text
	conversation.LastMessageAt = &at
	return nil
}

func (f *fakeChatStore) Close(_ context.Context, id int64) error {
	conversation, ok := f.conversations[id]
	if !ok || conversation.Status != models.ConversationOpen {
		return pgx.ErrNoRows
	}
	conversation.Status = models.ConversationClosed
	return nil
}

func (f *fakeChatStore) Delete(_ context.Context, id int64) error {
	if _, ok := f.conversations[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.conversations, id)
	for messageID, message := range f.messages {
		if message.ConversationID == id {
			delete(f.messages, messageID)
		}
	}
	return nil
}

func (f *fakeChatStore) Create(_ context.Context, conversationID int64, senderRole models.Role, senderID *int64,
	messageType models.MessageType, messageText, summaryText string) (*models.ChatMessage, error) {
	conversation, ok := f.conversations[conversationID]
	if !ok {
		return nil, pgx.ErrNoRows
	}

	f.nextMessageID++
	message := &models.ChatMessage{
		ID:             f.nextMessageID,
		ConversationID: conversationID,
		SenderRole:     senderRole,
		SenderID:       senderID,
		MessageType:    messageType,
		MessageText:    messageText,
		CreatedAt:      f.tick(),
	}
	f.messages[message.ID] = message

	summary := summaryText
	at := message.CreatedAt
	conversation.LastMessage = &summary
	conversation.LastMessageAt = &at
	conversation.UpdatedAt = at

	copied := *message
	return &copied, nil
}

func (f *fakeChatStore) messageByID(_ context.Context, id int64) (*models.ChatMessage, error) {
	message, ok := f.messages[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *message
	return &copied, nil
}

func (f *fakeChatStore) UpdateText(_ context.Context, id int64, text string) (*models.ChatMessage, error) {
	message, ok := f.messages[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	message.MessageText = text
	copied := *message
	return &copied, nil
}

func (f *fakeChatStore) deleteMessage(_ context.Context, id int64) (int64, error) {
	message, ok := f.messages[id]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	delete(f.messages, id)
	return message.ConversationID, nil
}

func (f *fakeChatStore) ListByConversation(_ context.Context, conversationID int64, limit, offset int) ([]models.ChatMessage, int, error) {
	messages := make([]models.ChatMessage, 0)
	for _, message := range f.messages {
		if message.ConversationID == conversationID {
			messages = append(messages, *message)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].ID < messages[j].ID
	})

	total := len(messages)
	if offset >= len(messages) {
		return []models.ChatMessage{}, total, nil
	}
	messages = messages[offset:]
	if limit < len(messages) {
		messages = messages[:limit]
	}
	return messages, total, nil
}

// messageStoreAdapter maps the fake's message methods onto the messageStore
// interface; GetByID and Delete are already taken by the staff and
// conversation sides of the fake.
type messageStoreAdapter struct {
	*fakeChatStore
}

func (a messageStoreAdapter) GetByID(ctx context.Context, id int64) (*models.ChatMessage, error) {
	return a.fakeChatStore.messageByID(ctx, id)
}

func (a messageStoreAdapter) Delete(ctx context.Context, id int64) (int64, error) {
	return a.fakeChatStore.deleteMessage(ctx, id)
}

func newTestService(store *fakeChatStore) *ChatService {
	return NewChatService(store, store, store, messageStoreAdapter{store})
}

func strptr(s string) *string { return &s }

func TestEnsureCustomerKeepsStoredFields(t *testing.T) {
	store := newFakeChatStore()
	store.addEmployee(1, models.StaffActive, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	service := newTestService(store)

	first, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{
		SessionID:   "sess-1",
		Phone:       strptr("99555001"),
		FirstName:   strptr("Aruzhan"),
		MessageText: "hello",
	})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}

	second, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{
		SessionID:   "sess-1",
		MessageText: "are you there?",
	})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}

	if first.Conversation.CustomerID != second.Conversation.CustomerID {
		t.Fatalf("expected same customer, got %d and %d", first.Conversation.CustomerID, second.Conversation.CustomerID)
	}

	customer := store.customers["sess-1"]
	if customer.Phone == nil || *customer.Phone != "99555001" {
		t.Fatalf("expected phone preserved, got %v", customer.Phone)
	}
	if customer.FirstName == nil || *customer.FirstName != "Aruzhan" {
		t.Fatalf("expected first name preserved, got %v", customer.FirstName)
	}
}

func TestSequentialEnsureReturnsSameConversation(t *testing.T) {
	store := newFakeChatStore()
	store.addEmployee(1, models.StaffActive, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	service := newTestService(store)

	first, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "sess-1", MessageText: "one"})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}
	second, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "sess-1", MessageText: "two"})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}

	if first.Conversation.ID != second.Conversation.ID {
		t.Fatalf("expected one open conversation, got %d and %d", first.Conversation.ID, second.Conversation.ID)
	}
	if len(store.conversations) != 1 {
		t.Fatalf("expected 1 conversation row, got %d", len(store.conversations))
	}
}

func TestAssignmentPicksLeastRecentlyAssignedEmployee(t *testing.T) {
	store := newFakeChatStore()
	t0 := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	store.addEmployee(1, models.StaffActive, t0)
	store.addEmployee(2, models.StaffActive, t0.Add(time.Hour))
	service := newTestService(store)

	first, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "a", MessageText: "hi"})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}
	if first.Conversation.EmployeeID != 1 {
		t.Fatalf("expected employee 1 (stalest) assigned, got %d", first.Conversation.EmployeeID)
	}

	// The pick bumps employee 1, so a second customer rotates to employee 2.
	second, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "b", MessageText: "hi"})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}
	if second.Conversation.EmployeeID != 2 {
		t.Fatalf("expected employee 2 after rotation, got %d", second.Conversation.EmployeeID)
	}
}

func TestAssignmentTouchFailureDoesNotBlockSend(t *testing.T) {
	store := newFakeChatStore()
	store.addEmployee(1, models.StaffActive, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	store.touchErr = errors.New("staff_users is locked")
	service := newTestService(store)

	delivery, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "sess-1", MessageText: "hello"})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}
	if delivery.Conversation.EmployeeID != 1 {
		t.Fatalf("expected conversation assigned to employee 1, got %d", delivery.Conversation.EmployeeID)
	}
	if len(store.messages) != 1 {
		t.Fatalf("expected the message to persist, got %d rows", len(store.messages))
	}
}

func TestNoActiveEmployeeFailsHard(t *testing.T) {
	store := newFakeChatStore()
	store.addEmployee(1, models.StaffInactive, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	service := newTestService(store)

	_, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "sess-1", MessageText: "hello"})
	if !errors.Is(err, ErrNoEmployeeAvailable) {
		t.Fatalf("expected ErrNoEmployeeAvailable, got %v", err)
	}
	if len(store.conversations) != 0 {
		t.Fatalf("expected no conversation rows, got %d", len(store.conversations))
	}
}

func TestEnsureConversationSurvivesCreateRace(t *testing.T) {
	store := newFakeChatStore()
	t0 := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	store.addEmployee(1, models.StaffActive, t0)
	service := newTestService(store)

	// A concurrent ensure wins the insert between lookup and create.
	store.beforeCreateOpen = func() {
		if _, err := store.CreateOpen(context.Background(), 1, 1); err != nil {
			t.Fatalf("racing CreateOpen: %v", err)
		}
	}

	delivery, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "sess-1", MessageText: "hello"})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}
	if len(store.conversations) != 1 {
		t.Fatalf("expected the race to leave one conversation, got %d", len(store.conversations))
	}
	if delivery.Message.ConversationID != delivery.Conversation.ID {
		t.Fatalf("message landed in conversation %d, delivery says %d", delivery.Message.ConversationID, delivery.Conversation.ID)
	}
}

func TestSummaryAfterDeletes(t *testing.T) {
	store := newFakeChatStore()
	store.addEmployee(1, models.StaffActive, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	service := newTestService(store)
	admin := Actor{ID: 9, Role: models.RoleAdmin}

	first, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "sess-1", MessageText: "older"})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}
	second, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "sess-1", MessageText: "newest"})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}

	delivery, err := service.DeleteMessage(context.Background(), admin, second.Message.ID)
	if err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if delivery.Conversation.LastMessage == nil || *delivery.Conversation.LastMessage != "older" {
		t.Fatalf("expected summary to fall back to %q, got %v", "older", delivery.Conversation.LastMessage)
	}
	if delivery.Conversation.LastMessageAt == nil || !delivery.Conversation.LastMessageAt.Equal(first.Message.CreatedAt) {
		t.Fatalf("expected summary timestamp %v, got %v", first.Message.CreatedAt, delivery.Conversation.LastMessageAt)
	}

	delivery, err = service.DeleteMessage(context.Background(), admin, first.Message.ID)
	if err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if delivery.Conversation.LastMessage != nil || delivery.Conversation.LastMessageAt != nil {
		t.Fatalf("expected cleared summary, got %v / %v", delivery.Conversation.LastMessage, delivery.Conversation.LastMessageAt)
	}
}

func TestEditNonLatestMessageKeepsSummary(t *testing.T) {
	store := newFakeChatStore()
	store.addEmployee(1, models.StaffActive, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	service := newTestService(store)
	admin := Actor{ID: 9, Role: models.RoleAdmin}

	first, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "sess-1", MessageText: "older"})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}
	if _, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "sess-1", MessageText: "newest"}); err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}

	delivery, err := service.EditMessage(context.Background(), admin, first.Message.ID, "older edited")
	if err != nil {
		t.Fatalf("EditMessage: %v", err)
	}
	if delivery.Message.MessageText != "older edited" {
		t.Fatalf("expected edited text, got %q", delivery.Message.MessageText)
	}
	if delivery.Message.CreatedAt != first.Message.CreatedAt {
		t.Fatalf("edit must not move created_at")
	}
	if delivery.Conversation.LastMessage == nil || *delivery.Conversation.LastMessage != "newest" {
		t.Fatalf("editing a non-latest message must not perturb the summary, got %v", delivery.Conversation.LastMessage)
	}
}

func TestEmployeeScopedVisibility(t *testing.T) {
	store := newFakeChatStore()
	store.addEmployee(1, models.StaffActive, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	service := newTestService(store)

	delivery, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "sess-1", MessageText: "hello"})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}
	conversationID := delivery.Conversation.ID

	outsider := Actor{ID: 99, Role: models.RoleEmployee}
	if _, _, err := service.ListMessages(context.Background(), outsider, conversationID, 10, 0); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for unassigned employee, got %v", err)
	}
	if err := service.DeleteConversation(context.Background(), outsider, conversationID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for unassigned delete, got %v", err)
	}

	assignee := Actor{ID: 1, Role: models.RoleEmployee}
	if _, _, err := service.ListMessages(context.Background(), assignee, conversationID, 10, 0); err != nil {
		t.Fatalf("assigned employee should read messages: %v", err)
	}

	admin := Actor{ID: 7, Role: models.RoleAdmin}
	if _, _, err := service.ListMessages(context.Background(), admin, conversationID, 10, 0); err != nil {
		t.Fatalf("admin should read any conversation: %v", err)
	}
}

func TestListConversationsScopesEmployees(t *testing.T) {
	store := newFakeChatStore()
	t0 := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	store.addEmployee(1, models.StaffActive, t0)
	store.addEmployee(2, models.StaffActive, t0.Add(time.Hour))
	service := newTestService(store)

	if _, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "a", MessageText: "hi"}); err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}
	if _, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "b", MessageText: "hi"}); err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}

	all, total, err := service.ListConversations(context.Background(), Actor{ID: 7, Role: models.RoleAdmin}, 10, 0)
	if err != nil {
		t.Fatalf("ListConversations admin: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("admin should see 2 conversations, got %d (total %d)", len(all), total)
	}

	mine, total, err := service.ListConversations(context.Background(), Actor{ID: 1, Role: models.RoleEmployee}, 10, 0)
	if err != nil {
		t.Fatalf("ListConversations employee: %v", err)
	}
	if total != 1 || len(mine) != 1 || mine[0].EmployeeID != 1 {
		t.Fatalf("employee 1 should see only their assignment, got %+v", mine)
	}
}

func TestMessagesReadInChronologicalOrder(t *testing.T) {
	store := newFakeChatStore()
	store.addEmployee(1, models.StaffActive, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	service := newTestService(store)

	delivery, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "sess-1", MessageText: "seed"})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}
	conversationID := delivery.Conversation.ID

	// Backfill rows out of insertion order to make the sort do the work.
	base := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	for i, offset := range []time.Duration{2 * time.Minute, 0, time.Minute} {
		store.nextMessageID++
		id := store.nextMessageID
		store.messages[id] = &models.ChatMessage{
			ID:             id,
			ConversationID: conversationID,
			SenderRole:     models.RoleCustomer,
			MessageType:    models.MessageTypeText,
			MessageText:    []string{"third", "first", "second"}[i],
			CreatedAt:      base.Add(offset),
		}
	}

	messages, _, err := service.ListMessages(context.Background(), Actor{ID: 1, Role: models.RoleEmployee}, conversationID, 10, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	for i := 1; i < len(messages); i++ {
		if messages[i].CreatedAt.Before(messages[i-1].CreatedAt) {
			t.Fatalf("messages out of chronological order: %v after %v", messages[i].CreatedAt, messages[i-1].CreatedAt)
		}
	}
}

func TestImageMessageSummaryUsesPlaceholder(t *testing.T) {
	store := newFakeChatStore()
	store.addEmployee(1, models.StaffActive, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	service := newTestService(store)

	url := "https://blob.example.com/storage/v1/object/public/chat/pic.png"
	delivery, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{
		SessionID:   "sess-1",
		MessageType: models.MessageTypeImage,
		MessageText: url,
	})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}

	if delivery.Message.MessageText != url {
		t.Fatalf("message text must carry the raw URL, got %q", delivery.Message.MessageText)
	}
	if delivery.Conversation.LastMessage == nil || *delivery.Conversation.LastMessage != models.ImageSummaryPlaceholder {
		t.Fatalf("expected summary %q, got %v", models.ImageSummaryPlaceholder, delivery.Conversation.LastMessage)
	}
}

func TestClosedConversationReopensOnNextMessage(t *testing.T) {
	store := newFakeChatStore()
	store.addEmployee(1, models.StaffActive, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	service := newTestService(store)

	first, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "sess-1", MessageText: "hello"})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}

	admin := Actor{ID: 9, Role: models.RoleAdmin}
	if err := service.CloseConversation(context.Background(), admin, first.Conversation.ID); err != nil {
		t.Fatalf("CloseConversation: %v", err)
	}

	second, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "sess-1", MessageText: "hello again"})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}
	if second.Conversation.ID == first.Conversation.ID {
		t.Fatal("expected a fresh conversation after close")
	}
}

func TestDeleteConversationRemovesMessages(t *testing.T) {
	store := newFakeChatStore()
	store.addEmployee(1, models.StaffActive, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	service := newTestService(store)

	delivery, err := service.SendCustomerMessage(context.Background(), CustomerMessageInput{SessionID: "sess-1", MessageText: "hello"})
	if err != nil {
		t.Fatalf("SendCustomerMessage: %v", err)
	}

	if err := service.DeleteConversation(context.Background(), Actor{ID: 1, Role: models.RoleEmployee}, delivery.Conversation.ID); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if len(store.messages) != 0 {
		t.Fatalf("expected cascade to remove messages, %d left", len(store.messages))
	}
	if err := service.DeleteConversation(context.Background(), Actor{ID: 9, Role: models.RoleAdmin}, delivery.Conversation.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
