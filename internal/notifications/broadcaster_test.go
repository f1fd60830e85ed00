package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveEvent(t *testing.T, c *Client) FeedEvent {
	t.Helper()
	select {
	case msg := <-c.Send:
		var ev FeedEvent
		require.NoError(t, json.Unmarshal(msg, &ev))
		return ev
	case <-time.After(testEventuallyTimeout):
		t.Fatal("no event delivered")
		return FeedEvent{}
	}
}

func TestBroadcaster_LocalDelivery(t *testing.T) {
	hub := NewHub()
	b := NewBroadcaster(hub, nil, nil)
	require.NoError(t, b.Start(context.Background()))

	client, err := hub.Register(0, nil)
	require.NoError(t, err)

	post := &models.Post{ID: 9, Title: "Hello", Content: "World!", CreatorID: 1}
	require.NoError(t, b.Publish(context.Background(), CreatedEvent(post)))

	ev := receiveEvent(t, client)
	assert.Equal(t, ActionCreate, ev.Action)
	require.NotNil(t, ev.Post)
	assert.Equal(t, uint(9), ev.Post.ID)
	assert.Len(t, client.Send, 0)
}

func TestBroadcaster_RedisDeliversExactlyOnce(t *testing.T) {
	hub := NewHub()
	b := NewBroadcaster(hub, NewNotifier(newTestRedis(t)), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, b.Start(ctx))

	client, err := hub.Register(5, nil)
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, DeletedEvent(12)))

	ev := receiveEvent(t, client)
	assert.Equal(t, ActionDelete, ev.Action)
	assert.Equal(t, uint(12), ev.PostID)
	assert.Never(t, func() bool { return len(client.Send) > 0 }, 100*time.Millisecond, testPollInterval)
}

func TestBroadcaster_FallsBackWhenRedisFails(t *testing.T) {
	rdb := newTestRedis(t)
	hub := NewHub()
	b := NewBroadcaster(hub, NewNotifier(rdb), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, b.Start(ctx))

	client, err := hub.Register(0, nil)
	require.NoError(t, err)

	require.NoError(t, rdb.Close())
	require.NoError(t, b.Publish(context.Background(), UpdatedEvent(&models.Post{ID: 3})))

	ev := receiveEvent(t, client)
	assert.Equal(t, ActionUpdate, ev.Action)
}

func TestNewBroadcaster_RequiresHub(t *testing.T) {
	assert.Panics(t, func() { NewBroadcaster(nil, nil, nil) })
}
