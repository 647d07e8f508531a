package entity

import "time"

const (
	RoomStatusOpen   = "open"
	RoomStatusClosed = "closed"
)

// ChatRoom is a conversation between exactly one customer and at most one
// admin. CustomerID never changes; AdminID transitions ""->set exactly once
// via an atomic claim.
type ChatRoom struct {
	ID             string    `json:"id" firestore:"id"`
	CustomerID     string    `json:"customer_id" firestore:"customerId"`
	AdminID        string    `json:"admin_id,omitempty" firestore:"adminId"`
	Status         string    `json:"status" firestore:"status"`
	UnreadAdmin    int       `json:"unread_admin" firestore:"unreadAdmin"`
	UnreadCustomer int       `json:"unread_customer" firestore:"unreadCustomer"`
	LastMessageAt  time.Time `json:"last_message_at" firestore:"lastMessageAt"`
	CreatedAt      time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt      time.Time `json:"updated_at" firestore:"updatedAt"`
}

// UnreadFor returns the unread counter kept for the given role.
func (r *ChatRoom) UnreadFor(role Role) int {
	if role == RoleAdmin {
		return r.UnreadAdmin
	}
	return r.UnreadCustomer
}
