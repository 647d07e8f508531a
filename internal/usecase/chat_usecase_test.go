package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinmel/internal/domain/entity"
	"kinmel/internal/infrastructure/presence"
	"kinmel/pkg/errors"
)

// memoryChatRepository mirrors the Firestore adapter's contract in memory:
// one mutex plays the role of the transaction, so GetOrCreateOpenRoom and
// ClaimRoom stay atomic under concurrent callers.
type memoryChatRepository struct {
	mu        sync.Mutex
	rooms     map[string]*entity.ChatRoom
	openIndex map[string]string // customerID -> open room id
	messages  map[string][]*entity.Message
	seq       int
}

func newMemoryChatRepository() *memoryChatRepository {
	return &memoryChatRepository{
		rooms:     make(map[string]*entity.ChatRoom),
		openIndex: make(map[string]string),
		messages:  make(map[string][]*entity.Message),
	}
}

func (m *memoryChatRepository) GetOrCreateOpenRoom(ctx context.Context, customerID string) (*entity.ChatRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if roomID, ok := m.openIndex[customerID]; ok {
		copy := *m.rooms[roomID]
		return &copy, nil
	}

	m.seq++
	now := time.Now()
	room := &entity.ChatRoom{
		ID:            fmt.Sprintf("room-%d", m.seq),
		CustomerID:    customerID,
		Status:        entity.RoomStatusOpen,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.rooms[room.ID] = room
	m.openIndex[customerID] = room.ID
	copy := *room
	return &copy, nil
}

func (m *memoryChatRepository) GetRoom(ctx context.Context, roomID string) (*entity.ChatRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, errors.RoomNotFound(nil)
	}
	copy := *room
	return &copy, nil
}

func (m *memoryChatRepository) ClaimRoom(ctx context.Context, roomID, adminID string) (*entity.ChatRoom, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, false, errors.RoomNotFound(nil)
	}
	if room.AdminID == "" || room.AdminID == adminID {
		room.AdminID = adminID
		room.UpdatedAt = time.Now()
		copy := *room
		return &copy, true, nil
	}
	copy := *room
	return &copy, false, nil
}

func (m *memoryChatRepository) ListOpenRooms(ctx context.Context) ([]*entity.ChatRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.ChatRoom
	for _, room := range m.rooms {
		if room.Status == entity.RoomStatusOpen {
			copy := *room
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (m *memoryChatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	message.ID = fmt.Sprintf("msg-%d", m.seq)
	copy := *message
	m.messages[message.RoomID] = append(m.messages[message.RoomID], &copy)
	return nil
}

func (m *memoryChatRepository) ListRecentMessages(ctx context.Context, roomID string, limit int) ([]*entity.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.messages[roomID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*entity.Message, 0, len(msgs))
	for _, msg := range msgs {
		copy := *msg
		out = append(out, &copy)
	}
	return out, nil
}

func (m *memoryChatRepository) TouchRoom(ctx context.Context, roomID string, recipientRole entity.Role, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return errors.RoomNotFound(nil)
	}
	room.LastMessageAt = at
	if recipientRole == entity.RoleAdmin {
		room.UnreadAdmin++
	} else {
		room.UnreadCustomer++
	}
	return nil
}

func (m *memoryChatRepository) MarkMessagesRead(ctx context.Context, roomID, readerID string, messageIDs []string, at time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = struct{}{}
	}

	var updated []string
	for _, msg := range m.messages[roomID] {
		if _, ok := wanted[msg.ID]; !ok {
			continue
		}
		if msg.SenderID == readerID || msg.Status == entity.MessageStatusRead {
			continue
		}
		msg.Status = entity.MessageStatusRead
		readAt := at
		msg.ReadAt = &readAt
		updated = append(updated, msg.ID)
	}
	return updated, nil
}

func (m *memoryChatRepository) ResetUnread(ctx context.Context, roomID string, role entity.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return errors.RoomNotFound(nil)
	}
	if role == entity.RoleAdmin {
		room.UnreadAdmin = 0
	} else {
		room.UnreadCustomer = 0
	}
	return nil
}

func (m *memoryChatRepository) messageCount(roomID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages[roomID])
}

func (m *memoryChatRepository) room(roomID string) entity.ChatRoom {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rooms[roomID]
}

type memoryUserRepository struct {
	users map[string]*entity.User
}

func (m *memoryUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, errors.UserUnavailable(nil)
	}
	return user, nil
}

type memoryNotificationRepository struct {
	mu      sync.Mutex
	created []*entity.Notification
	done    chan struct{}
}

func (m *memoryNotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	m.mu.Lock()
	m.created = append(m.created, notification)
	m.mu.Unlock()
	if m.done != nil {
		m.done <- struct{}{}
	}
	return nil
}

type broadcastCall struct {
	roomID  string
	except  string
	event   string
	payload interface{}
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (r *recordingBroadcaster) ToRoom(roomID, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, broadcastCall{roomID: roomID, event: event, payload: payload})
}

func (r *recordingBroadcaster) ToRoomExcept(roomID, exceptUserID, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, broadcastCall{roomID: roomID, except: exceptUserID, event: event, payload: payload})
}

func (r *recordingBroadcaster) byEvent(event string) []broadcastCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []broadcastCall
	for _, call := range r.calls {
		if call.event == event {
			out = append(out, call)
		}
	}
	return out
}

type pushCall struct {
	recipientID string
	title       string
	body        string
	data        map[string]string
}

type recordingPushSender struct {
	mu    sync.Mutex
	calls []pushCall
	done  chan struct{}
}

func (r *recordingPushSender) Notify(ctx context.Context, recipientID, title, body string, data map[string]string) error {
	r.mu.Lock()
	r.calls = append(r.calls, pushCall{recipientID: recipientID, title: title, body: body, data: data})
	r.mu.Unlock()
	if r.done != nil {
		r.done <- struct{}{}
	}
	return nil
}

type fixture struct {
	uc          *ChatUseCase
	chatRepo    *memoryChatRepository
	userRepo    *memoryUserRepository
	notifRepo   *memoryNotificationRepository
	registry    presence.Registry
	broadcaster *recordingBroadcaster
	pushSender  *recordingPushSender
}

func newFixture() *fixture {
	chatRepo := newMemoryChatRepository()
	userRepo := &memoryUserRepository{users: map[string]*entity.User{
		"cust-1":  {ID: "cust-1", Username: "ramesh", Role: entity.RoleCustomer, Active: true},
		"cust-2":  {ID: "cust-2", Username: "sita", Role: entity.RoleCustomer, Active: true},
		"admin-1": {ID: "admin-1", Username: "support-a", Role: entity.RoleAdmin, Active: true},
		"admin-2": {ID: "admin-2", Username: "support-b", Role: entity.RoleAdmin, Active: true},
	}}
	notifRepo := &memoryNotificationRepository{}
	registry := presence.NewLocal()
	broadcaster := &recordingBroadcaster{}
	pushSender := &recordingPushSender{}

	uc := NewChatUseCase(chatRepo, userRepo, notifRepo, registry, broadcaster, pushSender, 50)

	return &fixture{
		uc:          uc,
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		notifRepo:   notifRepo,
		registry:    registry,
		broadcaster: broadcaster,
		pushSender:  pushSender,
	}
}

func TestJoinAsCustomerReusesOpenRoom(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	assert.Equal(t, entity.RoomStatusOpen, first.Status)

	second, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := f.uc.JoinAsCustomer(ctx, "cust-2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestJoinAsCustomerConcurrentSingleRoom(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const workers = 16
	ids := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			room, err := f.uc.JoinAsCustomer(ctx, "cust-1")
			if !assert.NoError(t, err) {
				ids <- ""
				return
			}
			ids <- room.ID
		}()
	}
	wg.Wait()
	close(ids)

	distinct := make(map[string]struct{})
	for id := range ids {
		distinct[id] = struct{}{}
	}
	assert.Len(t, distinct, 1, "concurrent joins must converge on one open room")
}

func TestJoinAsAdminClaimRace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)

	const admins = 8
	winners := make(chan string, admins)
	var wg sync.WaitGroup
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			adminID := fmt.Sprintf("racer-%d", n)
			_, claimed, err := f.uc.JoinAsAdmin(ctx, adminID, room.ID)
			if !assert.NoError(t, err) {
				return
			}
			if claimed {
				winners <- adminID
			}
		}(i)
	}
	wg.Wait()
	close(winners)

	var winner []string
	for id := range winners {
		winner = append(winner, id)
	}
	require.Len(t, winner, 1, "exactly one admin may win the claim")
	assert.Equal(t, winner[0], f.chatRepo.room(room.ID).AdminID)
}

func TestJoinAsAdminWithoutRoomID(t *testing.T) {
	f := newFixture()

	_, _, err := f.uc.JoinAsAdmin(context.Background(), "admin-1", "")
	assert.True(t, errors.Is(err, "ROOM_NOT_FOUND"))
}

func TestJoinAsAdminIdempotentForHolder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)

	_, claimed, err := f.uc.JoinAsAdmin(ctx, "admin-1", room.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	// The holder rejoining (reconnect) keeps the assignment.
	_, claimed, err = f.uc.JoinAsAdmin(ctx, "admin-1", room.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	_, claimed, err = f.uc.JoinAsAdmin(ctx, "admin-2", room.ID)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestListOpenRoomsRequiresAdmin(t *testing.T) {
	f := newFixture()

	_, err := f.uc.ListOpenRooms(context.Background(), entity.RoleCustomer)
	assert.True(t, errors.Is(err, "ACCESS_DENIED"))

	rooms, err := f.uc.ListOpenRooms(context.Background(), entity.RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestSendMessagePersistsAndBroadcasts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)

	msg, err := f.uc.SendMessage(ctx, SendMessageInput{
		RoomID:     room.ID,
		SenderID:   "cust-1",
		SenderRole: entity.RoleCustomer,
		Content:    "Hi, where is my order?",
	})
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)
	assert.Equal(t, entity.MessageStatusSent, msg.Status)
	assert.Equal(t, "Hi, where is my order?", msg.Content)

	stored := f.chatRepo.room(room.ID)
	assert.Equal(t, 1, stored.UnreadAdmin)
	assert.Equal(t, 0, stored.UnreadCustomer)

	broadcasts := f.broadcaster.byEvent("new-message")
	require.Len(t, broadcasts, 1)
	assert.Equal(t, room.ID, broadcasts[0].roomID)
}

func TestSendMessageRateLimitBoundary(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := f.uc.SendMessage(ctx, SendMessageInput{
			RoomID:     room.ID,
			SenderID:   "cust-1",
			SenderRole: entity.RoleCustomer,
			Content:    fmt.Sprintf("message %d", i),
		})
		require.NoError(t, err, "send %d within budget must succeed", i)
	}

	_, err = f.uc.SendMessage(ctx, SendMessageInput{
		RoomID:     room.ID,
		SenderID:   "cust-1",
		SenderRole: entity.RoleCustomer,
		Content:    "one too many",
	})
	assert.True(t, errors.Is(err, "RATE_LIMITED"))
	assert.Equal(t, 10, f.chatRepo.messageCount(room.ID), "throttled send must not persist")
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)

	_, err = f.uc.SendMessage(ctx, SendMessageInput{
		RoomID: room.ID, SenderID: "cust-1", SenderRole: entity.RoleCustomer,
		Content: "",
	})
	assert.True(t, errors.Is(err, "INVALID_CONTENT"))

	_, err = f.uc.SendMessage(ctx, SendMessageInput{
		RoomID: room.ID, SenderID: "cust-1", SenderRole: entity.RoleCustomer,
		Content: strings.Repeat("x", 2001),
	})
	assert.True(t, errors.Is(err, "INVALID_CONTENT"))

	// Sanitization that leaves nothing behind is rejected, not persisted
	// as an empty message.
	_, err = f.uc.SendMessage(ctx, SendMessageInput{
		RoomID: room.ID, SenderID: "cust-1", SenderRole: entity.RoleCustomer,
		Content: "<script>alert(1)</script>",
	})
	assert.True(t, errors.Is(err, "INVALID_CONTENT"))

	assert.Equal(t, 0, f.chatRepo.messageCount(room.ID))
}

func TestSendMessageSanitizesMarkup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)

	msg, err := f.uc.SendMessage(ctx, SendMessageInput{
		RoomID: room.ID, SenderID: "cust-1", SenderRole: entity.RoleCustomer,
		Content: `hello <b onclick="x()">there</b><script>alert(1)</script>`,
	})
	require.NoError(t, err)
	assert.NotContains(t, msg.Content, "<script>")
	assert.NotContains(t, msg.Content, "onclick")
	assert.Contains(t, msg.Content, "hello")
}

func TestSendMessageDropsBadAttachments(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)

	msg, err := f.uc.SendMessage(ctx, SendMessageInput{
		RoomID: room.ID, SenderID: "cust-1", SenderRole: entity.RoleCustomer,
		Content: "see attached",
		Attachments: []string{
			"https://cdn.example.com/receipt.png",
			"http://cdn.example.com/insecure.png",
			"https://cdn.example.com/script.exe",
			"ftp://cdn.example.com/odd.jpg",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/receipt.png"}, msg.Attachments)
}

func TestSendMessageAccessDenied(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)

	// Another customer cannot write into this room.
	_, err = f.uc.SendMessage(ctx, SendMessageInput{
		RoomID: room.ID, SenderID: "cust-2", SenderRole: entity.RoleCustomer,
		Content: "hello",
	})
	assert.True(t, errors.Is(err, "ACCESS_DENIED"))

	// After admin-1 claims, a second admin is rejected.
	_, claimed, err := f.uc.JoinAsAdmin(ctx, "admin-1", room.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = f.uc.SendMessage(ctx, SendMessageInput{
		RoomID: room.ID, SenderID: "admin-2", SenderRole: entity.RoleAdmin,
		Content: "let me take this",
	})
	assert.True(t, errors.Is(err, "ACCESS_DENIED"))
}

func TestSendMessageAdminAutoClaims(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)

	msg, err := f.uc.SendMessage(ctx, SendMessageInput{
		RoomID: room.ID, SenderID: "admin-1", SenderRole: entity.RoleAdmin,
		Content: "how can I help?",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, msg.SenderRole)

	stored := f.chatRepo.room(room.ID)
	assert.Equal(t, "admin-1", stored.AdminID)
	assert.Equal(t, 1, stored.UnreadCustomer)
	assert.Equal(t, 0, stored.UnreadAdmin)
}

func TestSendMessagePushesOfflineRecipient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)
	_, claimed, err := f.uc.JoinAsAdmin(ctx, "admin-1", room.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	f.pushSender.done = make(chan struct{}, 1)

	longContent := strings.Repeat("order 12345 is still missing and ", 10)
	_, err = f.uc.SendMessage(ctx, SendMessageInput{
		RoomID: room.ID, SenderID: "cust-1", SenderRole: entity.RoleCustomer,
		Content: longContent,
	})
	require.NoError(t, err)

	select {
	case <-f.pushSender.done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a push handoff for the offline admin")
	}

	f.pushSender.mu.Lock()
	defer f.pushSender.mu.Unlock()
	require.Len(t, f.pushSender.calls, 1, "exactly one push per message")
	call := f.pushSender.calls[0]
	assert.Equal(t, "admin-1", call.recipientID)
	assert.Equal(t, "ramesh", call.title)
	assert.LessOrEqual(t, len([]rune(call.body)), 100)
	assert.True(t, strings.HasSuffix(call.body, "..."))
	assert.Equal(t, "chat_message", call.data["type"])
	assert.Equal(t, room.ID, call.data["roomId"])
}

func TestSendMessageNotifiesOnlineRecipientInApp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)
	_, claimed, err := f.uc.JoinAsAdmin(ctx, "admin-1", room.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	f.registry.Register(ctx, "admin-1", "conn-1")
	f.notifRepo.done = make(chan struct{}, 1)

	_, err = f.uc.SendMessage(ctx, SendMessageInput{
		RoomID: room.ID, SenderID: "cust-1", SenderRole: entity.RoleCustomer,
		Content: "are you there?",
	})
	require.NoError(t, err)

	select {
	case <-f.notifRepo.done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an in-app notification for the online admin")
	}

	f.pushSender.mu.Lock()
	defer f.pushSender.mu.Unlock()
	assert.Empty(t, f.pushSender.calls, "online recipients are not paged over push")
}

func TestSendMessageToUnclaimedRoomSkipsNotification(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)

	_, err = f.uc.SendMessage(ctx, SendMessageInput{
		RoomID: room.ID, SenderID: "cust-1", SenderRole: entity.RoleCustomer,
		Content: "anyone home?",
	})
	require.NoError(t, err)

	// No assigned agent, nothing to page. Give the side channel a moment.
	time.Sleep(50 * time.Millisecond)
	f.pushSender.mu.Lock()
	defer f.pushSender.mu.Unlock()
	assert.Empty(t, f.pushSender.calls)
}

func TestMarkReadFlow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 3; i++ {
		msg, err := f.uc.SendMessage(ctx, SendMessageInput{
			RoomID: room.ID, SenderID: "cust-1", SenderRole: entity.RoleCustomer,
			Content: fmt.Sprintf("question %d", i),
		})
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}
	require.Equal(t, 3, f.chatRepo.room(room.ID).UnreadAdmin)

	receipt, err := f.uc.MarkRead(ctx, room.ID, "admin-1", entity.RoleAdmin, ids)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, "admin-1", receipt.ReaderID)

	stored := f.chatRepo.room(room.ID)
	assert.Equal(t, 0, stored.UnreadAdmin)
	assert.Equal(t, 0, stored.UnreadCustomer)

	msgs, err := f.uc.History(ctx, room.ID)
	require.NoError(t, err)
	for _, msg := range msgs {
		assert.Equal(t, entity.MessageStatusRead, msg.Status)
		assert.NotNil(t, msg.ReadAt)
	}

	receipts := f.broadcaster.byEvent("message-read")
	require.Len(t, receipts, 1)
	assert.Equal(t, "admin-1", receipts[0].except)
}

func TestMarkReadSkipsOwnMessages(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	room, err := f.uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)

	msg, err := f.uc.SendMessage(ctx, SendMessageInput{
		RoomID: room.ID, SenderID: "cust-1", SenderRole: entity.RoleCustomer,
		Content: "my own message",
	})
	require.NoError(t, err)

	_, err = f.uc.MarkRead(ctx, room.ID, "cust-1", entity.RoleCustomer, []string{msg.ID})
	require.NoError(t, err)

	msgs, err := f.uc.History(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, entity.MessageStatusSent, msgs[0].Status, "a reader never flips their own messages")
}

func TestMarkReadNoOps(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	receipt, err := f.uc.MarkRead(ctx, "room-1", "admin-1", entity.RoleAdmin, nil)
	require.NoError(t, err)
	assert.Nil(t, receipt)

	receipt, err = f.uc.MarkRead(ctx, "no-such-room", "admin-1", entity.RoleAdmin, []string{"msg-1"})
	require.NoError(t, err)
	assert.Nil(t, receipt)
}

func TestHistoryLimit(t *testing.T) {
	chatRepo := newMemoryChatRepository()
	userRepo := &memoryUserRepository{users: map[string]*entity.User{
		"cust-1": {ID: "cust-1", Username: "ramesh", Role: entity.RoleCustomer, Active: true},
	}}
	uc := NewChatUseCase(chatRepo, userRepo, &memoryNotificationRepository{}, presence.NewLocal(), &recordingBroadcaster{}, &recordingPushSender{}, 2)
	ctx := context.Background()

	room, err := uc.JoinAsCustomer(ctx, "cust-1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, chatRepo.CreateMessage(ctx, &entity.Message{
			RoomID: room.ID, SenderID: "cust-1", SenderRole: entity.RoleCustomer,
			Content: fmt.Sprintf("m%d", i), Status: entity.MessageStatusSent,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Millisecond),
		}))
	}

	msgs, err := uc.History(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].Content)
	assert.Equal(t, "m2", msgs[1].Content)
}
