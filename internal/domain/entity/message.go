package entity

import "time"

const (
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusRead      = "read"
)

// Message is immutable once created except for the Status/ReadAt
// transitions.
type Message struct {
	ID          string     `json:"id" firestore:"id"`
	RoomID      string     `json:"room_id" firestore:"roomId"`
	SenderID    string     `json:"sender_id" firestore:"senderId"`
	SenderRole  Role       `json:"sender_role" firestore:"senderRole"`
	Content     string     `json:"content" firestore:"content"`
	Attachments []string   `json:"attachments,omitempty" firestore:"attachments"`
	Status      string     `json:"status" firestore:"status"`
	ReadAt      *time.Time `json:"read_at,omitempty" firestore:"readAt"`
	CreatedAt   time.Time  `json:"created_at" firestore:"createdAt"`
}
