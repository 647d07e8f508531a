package repository

import (
	"context"
	"time"

	"kinmel/internal/domain/entity"
)

type ChatRepository interface {
	// GetOrCreateOpenRoom resolves the customer's single open room, creating
	// it if none exists. Idempotent under concurrent calls for the same
	// customer.
	GetOrCreateOpenRoom(ctx context.Context, customerID string) (*entity.ChatRoom, error)

	GetRoom(ctx context.Context, roomID string) (*entity.ChatRoom, error)

	// ClaimRoom atomically assigns adminID to the room iff its adminId is
	// unset or already equals adminID. Returns the room after the attempt and
	// whether the caller holds the assignment. The conditional update and the
	// read happen in one transaction, never as a separate read and write.
	ClaimRoom(ctx context.Context, roomID, adminID string) (*entity.ChatRoom, bool, error)

	// ListOpenRooms returns open rooms ordered by most recent activity.
	ListOpenRooms(ctx context.Context) ([]*entity.ChatRoom, error)

	CreateMessage(ctx context.Context, message *entity.Message) error

	// ListRecentMessages returns at most limit of the newest messages in
	// chronological order.
	ListRecentMessages(ctx context.Context, roomID string, limit int) ([]*entity.Message, error)

	// TouchRoom bumps lastMessageAt and increments the unread counter of
	// recipientRole in a single update.
	TouchRoom(ctx context.Context, roomID string, recipientRole entity.Role, at time.Time) error

	// MarkMessagesRead flips status to read (and sets readAt) for the given
	// messages, skipping any authored by readerID. Returns the ids actually
	// updated.
	MarkMessagesRead(ctx context.Context, roomID, readerID string, messageIDs []string, at time.Time) ([]string, error)

	// ResetUnread zeroes the unread counter kept for role on the room.
	ResetUnread(ctx context.Context, roomID string, role entity.Role) error
}
