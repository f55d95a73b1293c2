package controller

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// redisSubscription adapts *redis.PubSub to the Subscription interface,
// translating *redis.Message payloads into the bare string channel
// drain() consumes.
type redisSubscription struct {
	ps   *redis.PubSub
	out  chan string
	done chan struct{}
}

func (r *redisSubscription) Messages() <-chan string { return r.out }

func (r *redisSubscription) Close() error {
	close(r.done)
	return r.ps.Close()
}

func (r *redisSubscription) pump() {
	ch := r.ps.Channel()
	defer close(r.out)
	for {
		select {
		case <-r.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case r.out <- msg.Payload:
			case <-r.done:
				return
			}
		}
	}
}

// NewRedisSubscriber returns a Subscriber backed by a real Redis client,
// the wire transport spec.md §6 names for the controller channel.
func NewRedisSubscriber(client *redis.Client) Subscriber {
	return func(ctx context.Context, channel string) (Subscription, error) {
		ps := client.Subscribe(ctx, channel)
		if _, err := ps.Receive(ctx); err != nil {
			ps.Close()
			return nil, err
		}
		sub := &redisSubscription{ps: ps, out: make(chan string), done: make(chan struct{})}
		go sub.pump()
		return sub, nil
	}
}
