package notifications

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Subscription is a live stream of serialized notifications for one user.
type Subscription interface {
	Messages() <-chan string
	Close() error
}

// Feed opens realtime subscriptions.
type Feed interface {
	Subscribe(ctx context.Context, userID string) (Subscription, error)
}

type redisSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
	NotificationChannel(userID string) string
}

// RedisFeed relays notifications published by Service over Redis pub/sub so
// any API replica can serve the stream.
type RedisFeed struct {
	client redisSubscriber
}

// NewRedisFeed wraps the platform redis client.
func NewRedisFeed(client redisSubscriber) (*RedisFeed, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisFeed{client: client}, nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	ps, err := f.client.Subscribe(ctx, f.client.NotificationChannel(userID))
	if err != nil {
		return nil, err
	}
	// Wait for the subscribe confirmation so early publishes are not missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe notifications: %w", err)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return &redisSubscription{ps: ps, out: out}, nil
}

type redisSubscription struct {
	ps  *goredis.PubSub
	out chan string
}

func (s *redisSubscription) Messages() <-chan string { return s.out }

func (s *redisSubscription) Close() error { return s.ps.Close() }
