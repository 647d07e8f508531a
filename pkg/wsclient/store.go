package wsclient

import (
	"sort"
	"sync"
	"time"
)

// Message is the wire shape of a chat message as clients see it.
type Message struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"roomId"`
	SenderID    string    `json:"senderId"`
	SenderRole  string    `json:"senderRole"`
	Content     string    `json:"content"`
	Attachments []string  `json:"attachments,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MessageStore merges history replays and live broadcasts by message id, so
// a reconnect's chat-history frame never duplicates messages already shown.
type MessageStore struct {
	mu       sync.Mutex
	byID     map[string]Message
	ordered  []string
	unsorted bool
}

func NewMessageStore() *MessageStore {
	return &MessageStore{byID: make(map[string]Message)}
}

// Apply inserts or updates one message. It reports whether the message was
// new; a re-applied message only refreshes mutable fields like status.
func (s *MessageStore) Apply(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[msg.ID]; ok {
		s.byID[msg.ID] = msg
		return false
	}

	s.byID[msg.ID] = msg
	s.ordered = append(s.ordered, msg.ID)
	s.unsorted = true
	return true
}

// ApplyHistory merges a chat-history frame.
func (s *MessageStore) ApplyHistory(msgs []Message) {
	for _, m := range msgs {
		s.Apply(m)
	}
}

// Messages returns the room timeline in chronological order.
func (s *MessageStore) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsorted {
		sort.SliceStable(s.ordered, func(i, j int) bool {
			return s.byID[s.ordered[i]].CreatedAt.Before(s.byID[s.ordered[j]].CreatedAt)
		})
		s.unsorted = false
	}

	out := make([]Message, 0, len(s.ordered))
	for _, id := range s.ordered {
		out = append(out, s.byID[id])
	}
	return out
}

// Len reports the number of distinct messages held.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
