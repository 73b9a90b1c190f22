package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amanigreeva/Sociosphere-sub001/internal/models"
	"github.com/amanigreeva/Sociosphere-sub001/internal/repository"
)

func TestSweepPurgesExpiredOnly(t *testing.T) {
	store := repository.NewMemoryStore()
	msgs := store.Messages()
	ctx := context.Background()

	old, err := msgs.Insert(ctx, &models.Message{
		ConversationID: "c1",
		SenderID:       "alice",
		Text:           "ancient",
		CreatedAt:      time.Now().UTC().Add(-49 * time.Hour),
	})
	require.NoError(t, err)

	fresh, err := msgs.Insert(ctx, &models.Message{
		ConversationID: "c1",
		SenderID:       "bob",
		Text:           "recent",
		CreatedAt:      time.Now().UTC().Add(-time.Hour),
	})
	require.NoError(t, err)

	p := NewPurger(msgs, 48*time.Hour, time.Minute, zap.NewNop().Sugar())
	p.Sweep(ctx)

	_, err = msgs.Get(ctx, old.ID)
	assert.Error(t, err, "expired message survives sweep")
	got, err := msgs.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, "recent", got.Text)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := repository.NewMemoryStore()
	p := NewPurger(store.Messages(), 48*time.Hour, time.Millisecond, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purger did not stop")
	}
}
