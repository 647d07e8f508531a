package entity

import "time"

// Role of a chat participant. The identity subsystem owns the user record;
// the gateway consumes it read-only.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID        string    `json:"id" firestore:"id"`
	Email     string    `json:"email" firestore:"email"`
	Username  string    `json:"username" firestore:"username"`
	Role      Role      `json:"role" firestore:"role"`
	Active    bool      `json:"active" firestore:"active"`
	FCMTokens []string  `json:"-" firestore:"fcmTokens"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}
