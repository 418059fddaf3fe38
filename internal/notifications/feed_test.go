package notifications

import (
	"context"
	"errors"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscriber struct {
	channels []string
	err      error
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error) {
	f.channels = append(f.channels, channels...)
	return nil, f.err
}

func (f *fakeSubscriber) NotificationChannel(userID string) string {
	return "notifications:" + userID
}

func TestNewRedisFeedRequiresClient(t *testing.T) {
	_, err := NewRedisFeed(nil)
	assert.Error(t, err)
}

func TestRedisFeedSubscribesToUserChannel(t *testing.T) {
	sub := &fakeSubscriber{err: errors.New("redis down")}
	feed, err := NewRedisFeed(sub)
	require.NoError(t, err)

	_, err = feed.Subscribe(context.Background(), "user-1")
	require.Error(t, err)
	assert.Equal(t, []string{"notifications:user-1"}, sub.channels)
}
