package presence

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalRegistryLifecycle(t *testing.T) {
	r := NewLocal()
	ctx := context.Background()

	assert.False(t, r.IsOnline(ctx, "user-1"))

	r.Register(ctx, "user-1", "conn-a")
	assert.True(t, r.IsOnline(ctx, "user-1"))

	r.Register(ctx, "user-1", "conn-b")
	assert.ElementsMatch(t, []string{"conn-a", "conn-b"}, r.ConnectionsOf(ctx, "user-1"))

	// A user with any remaining connection stays online.
	r.Unregister(ctx, "user-1", "conn-a")
	assert.True(t, r.IsOnline(ctx, "user-1"))

	r.Unregister(ctx, "user-1", "conn-b")
	assert.False(t, r.IsOnline(ctx, "user-1"))
	assert.Empty(t, r.ConnectionsOf(ctx, "user-1"))
}

func TestLocalRegistryUnregisterUnknown(t *testing.T) {
	r := NewLocal()
	ctx := context.Background()

	// Double unregister and unknown ids must be harmless.
	r.Unregister(ctx, "ghost", "conn-x")
	r.Register(ctx, "user-1", "conn-a")
	r.Unregister(ctx, "user-1", "conn-a")
	r.Unregister(ctx, "user-1", "conn-a")
	assert.False(t, r.IsOnline(ctx, "user-1"))
}

func TestLocalRegistryConcurrent(t *testing.T) {
	r := NewLocal()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			connID := string(rune('a' + n%26))
			r.Register(ctx, "user-1", connID)
			r.IsOnline(ctx, "user-1")
			r.Unregister(ctx, "user-1", connID)
		}(i)
	}
	wg.Wait()

	assert.False(t, r.IsOnline(ctx, "user-1"))
}
