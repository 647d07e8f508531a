package entity

import "time"

// Notification is the in-app record written when a message recipient is
// online, or by the push collaborator when they are not.
type Notification struct {
	ID          string            `json:"id" firestore:"id"`
	RecipientID string            `json:"recipient_id" firestore:"recipientId"`
	Title       string            `json:"title" firestore:"title"`
	Body        string            `json:"body" firestore:"body"`
	Data        map[string]string `json:"data,omitempty" firestore:"data"`
	Read        bool              `json:"read" firestore:"read"`
	CreatedAt   time.Time         `json:"created_at" firestore:"createdAt"`
}
