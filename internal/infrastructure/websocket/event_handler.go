package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"

	"kinmel/internal/domain/entity"
	"kinmel/internal/usecase"
	apperrors "kinmel/pkg/errors"
	"kinmel/pkg/logger"
)

// Inbound event types.
const (
	EventJoinChat    = "join-chat"
	EventSendMessage = "send-message"
	EventTyping      = "typing"
	EventStopTyping  = "stop-typing"
	EventMessageRead = "message-read"
	EventGetRooms    = "get-rooms"
)

// Outbound event types.
const (
	EventJoinResult  = "join-result"
	EventChatHistory = "chat-history"
	EventSendResult  = "send-result"
	EventNewMessage  = "new-message"
	EventRooms       = "rooms"
	EventError       = "error"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func eventErrorFrom(err error) *errorPayload {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return &errorPayload{Code: appErr.Code, Message: appErr.Message}
	}
	return &errorPayload{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}
}

type joinChatData struct {
	RoomID string `json:"roomId"`
}

type joinResult struct {
	Success  bool          `json:"success"`
	RoomID   string        `json:"roomId,omitempty"`
	Assigned bool          `json:"assigned,omitempty"`
	Error    *errorPayload `json:"error,omitempty"`
}

type chatHistoryData struct {
	RoomID   string            `json:"roomId"`
	Messages []*entity.Message `json:"messages"`
}

type sendMessageData struct {
	RoomID      string   `json:"roomId" validate:"required"`
	Content     string   `json:"content" validate:"required"`
	Attachments []string `json:"attachments,omitempty"`
}

type sendResult struct {
	Success bool            `json:"success"`
	Message *entity.Message `json:"message,omitempty"`
	Error   *errorPayload   `json:"error,omitempty"`
}

type typingData struct {
	RoomID string `json:"roomId" validate:"required"`
}

type typingRelay struct {
	RoomID string      `json:"roomId"`
	UserID string      `json:"userId"`
	Role   entity.Role `json:"role,omitempty"`
}

type messageReadData struct {
	RoomID     string   `json:"roomId" validate:"required"`
	MessageIDs []string `json:"messageIds"`
}

type roomsResult struct {
	Success bool               `json:"success"`
	Rooms   []*entity.ChatRoom `json:"rooms,omitempty"`
	Error   *errorPayload      `json:"error,omitempty"`
}

// EventHandler dispatches decoded frames into the chat usecase. Every
// failure is converted into a structured reply at this boundary; a bad event
// never terminates the session.
type EventHandler struct {
	manager  *Manager
	chat     *usecase.ChatUseCase
	validate *validator.Validate
}

func NewEventHandler(manager *Manager, chat *usecase.ChatUseCase) *EventHandler {
	return &EventHandler{
		manager:  manager,
		chat:     chat,
		validate: validator.New(),
	}
}

func (h *EventHandler) HandleEvent(client *Client, raw []byte) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		h.manager.SendEvent(client, EventError, &errorPayload{Code: "INVALID_EVENT", Message: "Malformed event frame"})
		return
	}

	ctx := context.Background()

	switch event.Type {
	case EventJoinChat:
		h.handleJoinChat(ctx, client, event.Data)
	case EventSendMessage:
		h.handleSendMessage(ctx, client, event.Data)
	case EventTyping:
		h.handleTyping(client, event.Data, EventTyping)
	case EventStopTyping:
		h.handleTyping(client, event.Data, EventStopTyping)
	case EventMessageRead:
		h.handleMessageRead(ctx, client, event.Data)
	case EventGetRooms:
		h.handleGetRooms(ctx, client)
	default:
		logger.Debug("websocket: unknown event type %q from user %s", event.Type, client.UserID)
		h.manager.SendEvent(client, EventError, &errorPayload{Code: "INVALID_EVENT", Message: "Unknown event type"})
	}
}

func (h *EventHandler) handleJoinChat(ctx context.Context, client *Client, data json.RawMessage) {
	var payload joinChatData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			h.manager.SendEvent(client, EventJoinResult, joinResult{Success: false, Error: &errorPayload{Code: "INVALID_EVENT", Message: "Malformed join payload"}})
			return
		}
	}

	var (
		room     *entity.ChatRoom
		assigned bool
		err      error
	)

	switch client.Role {
	case entity.RoleCustomer:
		room, err = h.chat.JoinAsCustomer(ctx, client.UserID)
		// A customer always holds their own room.
		assigned = true
	case entity.RoleAdmin:
		room, assigned, err = h.chat.JoinAsAdmin(ctx, client.UserID, payload.RoomID)
	default:
		err = apperrors.AccessDenied("Unknown participant role")
	}

	if err != nil {
		h.manager.SendEvent(client, EventJoinResult, joinResult{Success: false, Error: eventErrorFrom(err)})
		return
	}

	// A losing admin still joins the transport room for read access.
	h.manager.JoinRoom(room.ID, client)
	h.manager.SendEvent(client, EventJoinResult, joinResult{Success: true, RoomID: room.ID, Assigned: assigned})

	messages, err := h.chat.History(ctx, room.ID)
	if err != nil {
		// The join already succeeded; tell the client its history is not
		// coming rather than leave it waiting on the frame.
		logger.Error("websocket: history fetch for room %s failed: %v", room.ID, err)
		h.manager.SendEvent(client, EventError, eventErrorFrom(err))
		return
	}
	if messages == nil {
		messages = []*entity.Message{}
	}
	h.manager.SendEvent(client, EventChatHistory, chatHistoryData{RoomID: room.ID, Messages: messages})
}

func (h *EventHandler) handleSendMessage(ctx context.Context, client *Client, data json.RawMessage) {
	var payload sendMessageData
	if err := json.Unmarshal(data, &payload); err != nil {
		h.manager.SendEvent(client, EventSendResult, sendResult{Success: false, Error: &errorPayload{Code: "INVALID_EVENT", Message: "Malformed message payload"}})
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		h.manager.SendEvent(client, EventSendResult, sendResult{Success: false, Error: &errorPayload{Code: "INVALID_CONTENT", Message: "roomId and content are required"}})
		return
	}

	message, err := h.chat.SendMessage(ctx, usecase.SendMessageInput{
		RoomID:      payload.RoomID,
		SenderID:    client.UserID,
		SenderRole:  client.Role,
		Content:     payload.Content,
		Attachments: payload.Attachments,
	})
	if err != nil {
		h.manager.SendEvent(client, EventSendResult, sendResult{Success: false, Error: eventErrorFrom(err)})
		return
	}

	// The sender's acknowledgement carries the persisted message with its
	// resolved id and timestamps.
	h.manager.SendEvent(client, EventSendResult, sendResult{Success: true, Message: message})
}

func (h *EventHandler) handleTyping(client *Client, data json.RawMessage, event string) {
	var payload typingData
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		return
	}

	// Ephemeral relay: the only check is transport-room membership.
	if !h.manager.InRoom(payload.RoomID, client.UserID) {
		return
	}

	h.manager.ToRoomExcept(payload.RoomID, client.UserID, event, typingRelay{
		RoomID: payload.RoomID,
		UserID: client.UserID,
		Role:   client.Role,
	})
}

func (h *EventHandler) handleMessageRead(ctx context.Context, client *Client, data json.RawMessage) {
	var payload messageReadData
	if err := json.Unmarshal(data, &payload); err != nil {
		h.manager.SendEvent(client, EventError, &errorPayload{Code: "INVALID_EVENT", Message: "Malformed read payload"})
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		h.manager.SendEvent(client, EventError, &errorPayload{Code: "INVALID_CONTENT", Message: "roomId is required"})
		return
	}

	if _, err := h.chat.MarkRead(ctx, payload.RoomID, client.UserID, client.Role, payload.MessageIDs); err != nil {
		h.manager.SendEvent(client, EventError, eventErrorFrom(err))
	}
}

func (h *EventHandler) handleGetRooms(ctx context.Context, client *Client) {
	rooms, err := h.chat.ListOpenRooms(ctx, client.Role)
	if err != nil {
		h.manager.SendEvent(client, EventRooms, roomsResult{Success: false, Error: eventErrorFrom(err)})
		return
	}
	if rooms == nil {
		rooms = []*entity.ChatRoom{}
	}
	h.manager.SendEvent(client, EventRooms, roomsResult{Success: true, Rooms: rooms})
}
