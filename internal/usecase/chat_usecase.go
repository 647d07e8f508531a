package usecase

import (
	"context"
	"time"
	"unicode/utf8"

	"kinmel/internal/domain/entity"
	"kinmel/internal/domain/repository"
	"kinmel/internal/infrastructure/presence"
	"kinmel/internal/infrastructure/ratelimit"
	"kinmel/pkg/errors"
	"kinmel/pkg/logger"
)

const (
	maxContentLength = 2000
	pushBodyLimit    = 100
	sideEffectBudget = 10 * time.Second
)

// Broadcaster is the transport fan-out the pipeline publishes into. The
// websocket manager implements it; tests substitute a recorder.
type Broadcaster interface {
	ToRoom(roomID, event string, payload interface{})
	ToRoomExcept(roomID, exceptUserID, event string, payload interface{})
}

// PushSender is the external push-notification collaborator. It is also
// responsible for persisting the in-app record for the paged recipient.
type PushSender interface {
	Notify(ctx context.Context, recipientID, title, body string, data map[string]string) error
}

type ChatUseCase struct {
	chatRepo     repository.ChatRepository
	userRepo     repository.UserRepository
	notifRepo    repository.NotificationRepository
	presence     presence.Registry
	rateLimiter  *ratelimit.RateLimiter
	broadcaster  Broadcaster
	pushSender   PushSender
	historyLimit int
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	notifRepo repository.NotificationRepository,
	registry presence.Registry,
	broadcaster Broadcaster,
	pushSender PushSender,
	historyLimit int,
) *ChatUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	if historyLimit <= 0 {
		historyLimit = 50
	}

	return &ChatUseCase{
		chatRepo:     chatRepo,
		userRepo:     userRepo,
		notifRepo:    notifRepo,
		presence:     registry,
		rateLimiter:  rateLimiter,
		broadcaster:  broadcaster,
		pushSender:   pushSender,
		historyLimit: historyLimit,
	}
}

// JoinAsCustomer resolves the customer's single open room, creating it on
// first join. Repeated calls never produce a second open room.
func (uc *ChatUseCase) JoinAsCustomer(ctx context.Context, userID string) (*entity.ChatRoom, error) {
	return uc.chatRepo.GetOrCreateOpenRoom(ctx, userID)
}

// JoinAsAdmin attempts the atomic claim of roomID. When another admin
// already holds the room the returned bool is false and the caller still
// gets the room for read access; the transport join is the caller's call.
func (uc *ChatUseCase) JoinAsAdmin(ctx context.Context, adminID, roomID string) (*entity.ChatRoom, bool, error) {
	if roomID == "" {
		return nil, false, errors.RoomNotFound(nil)
	}
	return uc.chatRepo.ClaimRoom(ctx, roomID, adminID)
}

// History returns the most recent messages of a room in chronological order.
func (uc *ChatUseCase) History(ctx context.Context, roomID string) ([]*entity.Message, error) {
	return uc.chatRepo.ListRecentMessages(ctx, roomID, uc.historyLimit)
}

// ListOpenRooms is admin-only: every open room ordered by most recent
// activity descending.
func (uc *ChatUseCase) ListOpenRooms(ctx context.Context, callerRole entity.Role) ([]*entity.ChatRoom, error) {
	if callerRole != entity.RoleAdmin {
		return nil, errors.AccessDenied("Only support agents can list rooms")
	}
	return uc.chatRepo.ListOpenRooms(ctx)
}

type SendMessageInput struct {
	RoomID      string
	SenderID    string
	SenderRole  entity.Role
	Content     string
	Attachments []string
}

// SendMessage runs the full pipeline: throttle, validate, sanitize, resolve
// and authorize the room, persist, account, broadcast. The notification side
// channel runs on its own goroutine and can never fail the send.
func (uc *ChatUseCase) SendMessage(ctx context.Context, input SendMessageInput) (*entity.Message, error) {
	if !uc.rateLimiter.Consume(input.SenderID) {
		return nil, errors.RateLimited()
	}

	if input.Content == "" || !utf8.ValidString(input.Content) {
		return nil, errors.InvalidContent("Message content must be non-empty text")
	}
	if utf8.RuneCountInString(input.Content) > maxContentLength {
		return nil, errors.InvalidContent("Message content exceeds 2000 characters")
	}

	content := sanitizeContent(input.Content)
	if content == "" {
		return nil, errors.InvalidContent("Message content must be non-empty text")
	}

	attachments := filterAttachments(input.Attachments)

	room, err := uc.chatRepo.GetRoom(ctx, input.RoomID)
	if err != nil {
		return nil, err
	}

	room, err = uc.authorizeSender(ctx, room, input.SenderID, input.SenderRole)
	if err != nil {
		return nil, err
	}

	message := &entity.Message{
		RoomID:      room.ID,
		SenderID:    input.SenderID,
		SenderRole:  input.SenderRole,
		Content:     content,
		Attachments: attachments,
		Status:      entity.MessageStatusSent,
		CreatedAt:   time.Now(),
	}

	if err := uc.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	recipientRole := entity.RoleAdmin
	if input.SenderRole == entity.RoleAdmin {
		recipientRole = entity.RoleCustomer
	}

	if err := uc.chatRepo.TouchRoom(ctx, room.ID, recipientRole, message.CreatedAt); err != nil {
		logger.Error("SendMessage: failed to update room %s activity: %v", room.ID, err)
	}

	uc.broadcaster.ToRoom(room.ID, "new-message", message)

	go uc.notifyRecipient(room, message)

	return message, nil
}

// authorizeSender applies the room access check. An admin sending into an
// unassigned room claims it atomically on first message.
func (uc *ChatUseCase) authorizeSender(ctx context.Context, room *entity.ChatRoom, senderID string, senderRole entity.Role) (*entity.ChatRoom, error) {
	switch senderRole {
	case entity.RoleCustomer:
		if room.CustomerID != senderID {
			return nil, errors.AccessDenied("Room belongs to another customer")
		}
		return room, nil

	case entity.RoleAdmin:
		if room.AdminID == senderID {
			return room, nil
		}
		if room.AdminID != "" {
			return nil, errors.AccessDenied("Room is assigned to another agent")
		}
		claimedRoom, claimed, err := uc.chatRepo.ClaimRoom(ctx, room.ID, senderID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, errors.AccessDenied("Room is assigned to another agent")
		}
		return claimedRoom, nil

	default:
		return nil, errors.AccessDenied("Unknown participant role")
	}
}

// notifyRecipient is the best-effort side channel after a send commits. An
// offline recipient is handed off to the push collaborator; an online one
// gets the in-app record directly. Failures are logged and swallowed.
func (uc *ChatUseCase) notifyRecipient(room *entity.ChatRoom, message *entity.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectBudget)
	defer cancel()

	recipientID := room.CustomerID
	if message.SenderRole == entity.RoleCustomer {
		recipientID = room.AdminID
	}
	if recipientID == "" {
		// Unclaimed room: there is no agent to page yet.
		return
	}

	sender, err := uc.userRepo.GetByID(ctx, message.SenderID)
	if err != nil {
		logger.Warn("notifyRecipient: sender %s lookup failed: %v", message.SenderID, err)
		return
	}

	title := sender.Username
	body := truncateBody(message.Content, pushBodyLimit)
	data := map[string]string{
		"type":      "chat_message",
		"roomId":    room.ID,
		"senderId":  message.SenderID,
		"messageId": message.ID,
	}

	if uc.presence.IsOnline(ctx, recipientID) {
		err := uc.notifRepo.Create(ctx, &entity.Notification{
			RecipientID: recipientID,
			Title:       title,
			Body:        body,
			Data:        data,
		})
		if err != nil {
			logger.Warn("notifyRecipient: in-app record for %s failed: %v", recipientID, err)
		}
		return
	}

	if err := uc.pushSender.Notify(ctx, recipientID, title, body, data); err != nil {
		logger.Warn("notifyRecipient: push handoff for %s failed: %v", recipientID, err)
	}
}

// ReadReceipt is broadcast to the rest of the room after a markRead.
type ReadReceipt struct {
	RoomID     string      `json:"room_id"`
	ReaderID   string      `json:"reader_id"`
	ReaderRole entity.Role `json:"reader_role"`
	ReadAt     time.Time   `json:"read_at"`
}

// MarkRead flips the given messages to read, skipping any the reader
// authored, resets the reader's unread counter and broadcasts a receipt.
// Empty ids or a vanished room are a no-op, not an error.
func (uc *ChatUseCase) MarkRead(ctx context.Context, roomID, readerID string, readerRole entity.Role, messageIDs []string) (*ReadReceipt, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	room, err := uc.chatRepo.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, "ROOM_NOT_FOUND") {
			return nil, nil
		}
		return nil, err
	}

	switch readerRole {
	case entity.RoleCustomer:
		if room.CustomerID != readerID {
			return nil, errors.AccessDenied("Room belongs to another customer")
		}
	case entity.RoleAdmin:
		if room.AdminID != "" && room.AdminID != readerID {
			return nil, errors.AccessDenied("Room is assigned to another agent")
		}
	default:
		return nil, errors.AccessDenied("Unknown participant role")
	}

	readAt := time.Now()
	if _, err := uc.chatRepo.MarkMessagesRead(ctx, roomID, readerID, messageIDs, readAt); err != nil {
		return nil, err
	}

	if err := uc.chatRepo.ResetUnread(ctx, roomID, readerRole); err != nil {
		logger.Error("MarkRead: failed to reset unread counter on room %s: %v", roomID, err)
	}

	receipt := &ReadReceipt{
		RoomID:     roomID,
		ReaderID:   readerID,
		ReaderRole: readerRole,
		ReadAt:     readAt,
	}
	uc.broadcaster.ToRoomExcept(roomID, readerID, "message-read", receipt)

	return receipt, nil
}
