package wsclient

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func msg(id string, at time.Time) Message {
	return Message{ID: id, RoomID: "room-1", Content: "content " + id, Status: "sent", CreatedAt: at}
}

func TestMessageStoreIdempotentApply(t *testing.T) {
	s := NewMessageStore()
	now := time.Now()

	assert.True(t, s.Apply(msg("m1", now)))
	assert.False(t, s.Apply(msg("m1", now)), "re-applying the same id is not an insert")
	assert.Equal(t, 1, s.Len())
	assert.Len(t, s.Messages(), 1)
}

func TestMessageStoreHistoryReplayAfterReconnect(t *testing.T) {
	s := NewMessageStore()
	base := time.Now()

	var history []Message
	for i := 0; i < 5; i++ {
		history = append(history, msg(fmt.Sprintf("m%d", i), base.Add(time.Duration(i)*time.Second)))
	}

	// Live messages arrive first, then a reconnect replays the full history.
	s.Apply(history[3])
	s.Apply(history[4])
	s.ApplyHistory(history)

	got := s.Messages()
	assert.Len(t, got, 5, "history replay must not duplicate live messages")
	for i, m := range got {
		assert.Equal(t, fmt.Sprintf("m%d", i), m.ID, "timeline stays chronological")
	}
}

func TestMessageStoreStatusUpdate(t *testing.T) {
	s := NewMessageStore()
	now := time.Now()

	s.Apply(msg("m1", now))

	updated := msg("m1", now)
	updated.Status = "read"
	assert.False(t, s.Apply(updated))

	got := s.Messages()
	assert.Equal(t, "read", got[0].Status, "re-apply refreshes mutable fields")
}
