package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"kinmel/internal/domain/entity"
	"kinmel/internal/domain/repository"
	"kinmel/pkg/errors"
	"kinmel/pkg/logger"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

// roomIndex keeps the single-open-room invariant enforceable inside a
// transaction without a query: one doc per customer pointing at their open
// room.
type roomIndex struct {
	OpenRoomID string `firestore:"openRoomId"`
}

func (r *firestoreChatRepository) rooms() *firestore.CollectionRef {
	return r.client.Collection("chat_rooms")
}

func (r *firestoreChatRepository) messages(roomID string) *firestore.CollectionRef {
	return r.rooms().Doc(roomID).Collection("messages")
}

func (r *firestoreChatRepository) GetOrCreateOpenRoom(ctx context.Context, customerID string) (*entity.ChatRoom, error) {
	var room entity.ChatRoom

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		indexRef := r.client.Collection("chat_room_index").Doc(customerID)

		indexDoc, err := tx.Get(indexRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		if indexDoc != nil && indexDoc.Exists() {
			var idx roomIndex
			if err := indexDoc.DataTo(&idx); err != nil {
				return err
			}
			if idx.OpenRoomID != "" {
				roomDoc, err := tx.Get(r.rooms().Doc(idx.OpenRoomID))
				if err == nil {
					if err := roomDoc.DataTo(&room); err != nil {
						return err
					}
					if room.Status == entity.RoomStatusOpen {
						return nil
					}
				} else if status.Code(err) != codes.NotFound {
					return err
				}
			}
		}

		now := time.Now()
		room = entity.ChatRoom{
			ID:            uuid.New().String(),
			CustomerID:    customerID,
			Status:        entity.RoomStatusOpen,
			LastMessageAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := tx.Set(r.rooms().Doc(room.ID), room); err != nil {
			return err
		}
		return tx.Set(indexRef, roomIndex{OpenRoomID: room.ID})
	})

	if err != nil {
		return nil, errors.PersistenceFailure("Failed to resolve open room", err)
	}

	return &room, nil
}

func (r *firestoreChatRepository) GetRoom(ctx context.Context, roomID string) (*entity.ChatRoom, error) {
	doc, err := r.rooms().Doc(roomID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.RoomNotFound(err)
		}
		return nil, errors.PersistenceFailure("Failed to get room", err)
	}

	var room entity.ChatRoom
	if err := doc.DataTo(&room); err != nil {
		return nil, errors.PersistenceFailure("Failed to parse room data", err)
	}

	return &room, nil
}

func (r *firestoreChatRepository) ClaimRoom(ctx context.Context, roomID, adminID string) (*entity.ChatRoom, bool, error) {
	var (
		room    entity.ChatRoom
		claimed bool
	)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		roomRef := r.rooms().Doc(roomID)

		doc, err := tx.Get(roomRef)
		if err != nil {
			return err
		}
		if err := doc.DataTo(&room); err != nil {
			return err
		}

		if room.AdminID != "" && room.AdminID != adminID {
			claimed = false
			return nil
		}

		claimed = true
		if room.AdminID == adminID {
			return nil
		}

		room.AdminID = adminID
		room.UpdatedAt = time.Now()
		return tx.Update(roomRef, []firestore.Update{
			{Path: "adminId", Value: adminID},
			{Path: "updatedAt", Value: room.UpdatedAt},
		})
	})

	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, errors.RoomNotFound(err)
		}
		return nil, false, errors.PersistenceFailure("Failed to claim room", err)
	}

	return &room, claimed, nil
}

func (r *firestoreChatRepository) ListOpenRooms(ctx context.Context) ([]*entity.ChatRoom, error) {
	query := r.rooms().
		Where("status", "==", entity.RoomStatusOpen).
		OrderBy("lastMessageAt", firestore.Desc)

	iter := query.Documents(ctx)
	var rooms []*entity.ChatRoom

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.PersistenceFailure("Failed to list open rooms", err)
		}

		var room entity.ChatRoom
		if err := doc.DataTo(&room); err != nil {
			logger.Warn("ListOpenRooms: skipping malformed room %s: %v", doc.Ref.ID, err)
			continue
		}
		rooms = append(rooms, &room)
	}

	return rooms, nil
}

func (r *firestoreChatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	_, err := r.messages(message.RoomID).Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.PersistenceFailure("Failed to create message", err)
	}

	return nil
}

func (r *firestoreChatRepository) ListRecentMessages(ctx context.Context, roomID string, limit int) ([]*entity.Message, error) {
	query := r.messages(roomID).OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	var messages []*entity.Message

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.PersistenceFailure("Failed to list messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Warn("ListRecentMessages: skipping malformed message in room %s: %v", roomID, err)
			continue
		}
		messages = append(messages, &message)
	}

	// Query is newest-first; history is served in chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *firestoreChatRepository) TouchRoom(ctx context.Context, roomID string, recipientRole entity.Role, at time.Time) error {
	counter := "unreadCustomer"
	if recipientRole == entity.RoleAdmin {
		counter = "unreadAdmin"
	}

	_, err := r.rooms().Doc(roomID).Update(ctx, []firestore.Update{
		{Path: "lastMessageAt", Value: at},
		{Path: "updatedAt", Value: at},
		{Path: counter, Value: firestore.Increment(1)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.RoomNotFound(err)
		}
		return errors.PersistenceFailure("Failed to update room activity", err)
	}

	return nil
}

func (r *firestoreChatRepository) MarkMessagesRead(ctx context.Context, roomID, readerID string, messageIDs []string, at time.Time) ([]string, error) {
	var updated []string

	for _, messageID := range messageIDs {
		docRef := r.messages(roomID).Doc(messageID)

		doc, err := docRef.Get(ctx)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				continue
			}
			return updated, errors.PersistenceFailure("Failed to get message", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Warn("MarkMessagesRead: skipping malformed message %s: %v", messageID, err)
			continue
		}

		// Read receipts never apply to the reader's own messages.
		if message.SenderID == readerID {
			continue
		}
		if message.Status == entity.MessageStatusRead {
			continue
		}

		_, err = docRef.Update(ctx, []firestore.Update{
			{Path: "status", Value: entity.MessageStatusRead},
			{Path: "readAt", Value: at},
		})
		if err != nil {
			return updated, errors.PersistenceFailure("Failed to update message status", err)
		}
		updated = append(updated, messageID)
	}

	return updated, nil
}

func (r *firestoreChatRepository) ResetUnread(ctx context.Context, roomID string, role entity.Role) error {
	counter := "unreadCustomer"
	if role == entity.RoleAdmin {
		counter = "unreadAdmin"
	}

	_, err := r.rooms().Doc(roomID).Update(ctx, []firestore.Update{
		{Path: counter, Value: 0},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.RoomNotFound(err)
		}
		return errors.PersistenceFailure("Failed to reset unread counter", err)
	}

	return nil
}
