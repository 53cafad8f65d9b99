// Brokers carry broadcast events to the dispatcher of every Tracker instance.

package hub

import (
	"Tracker/internal/entity"
	"Tracker/pkg/db"
	"Tracker/pkg/log"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
)

// ErrBrokerClosed is returned by Publish after Close.
var ErrBrokerClosed = errors.New("broker closed")

// Handler receives every event published on a broker, in publish order.
type Handler func(ctx context.Context, event entity.BroadcastEvent)

// Broker fans events out to the subscribed instances.
type Broker interface {
	Publish(ctx context.Context, event entity.BroadcastEvent) error
	// Subscribe sets the handler of this instance, it can only be called once.
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}

// MemoryBroker serves a single instance, Publish returns once the handler has run.
type MemoryBroker struct {
	mu      sync.RWMutex
	handler Handler
	closed  bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{}
}

func (b *MemoryBroker) Publish(ctx context.Context, event entity.BroadcastEvent) error {
	b.mu.RLock()
	handler, closed := b.handler, b.closed
	b.mu.RUnlock()
	if closed {
		return ErrBrokerClosed
	}
	if handler != nil {
		handler(ctx, event)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handler != nil {
		return errors.New("memory broker already has a subscriber")
	}
	b.handler = handler
	return nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Channels of the redis broker are named tracker:group:<group key>.
const redisChannelPrefix = "tracker:group:"

// RedisBroker relays events through redis PUBLISH so every instance sharing the redis-server sees them.
// Each instance reads with one PSUBSCRIBE connection, events reach the handler in the order redis delivered them.
type RedisBroker struct {
	db     *db.RedisDB
	logger log.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

func NewRedisBroker(dbwrp *db.RedisDB, logger log.Logger) *RedisBroker {
	return &RedisBroker{db: dbwrp, logger: logger}
}

func (b *RedisBroker) Publish(ctx context.Context, event entity.BroadcastEvent) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBrokerClosed
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if dberr := b.db.Client().Publish(ctx, redisChannelPrefix+event.Group.String(), raw).Err(); dberr != nil {
		b.logger.WithCtx(ctx).Error().Err(dberr).Str("group", event.Group.String()).Msg("Error occured during execution of redis.Publish() in hub.RedisBroker")
		return dberr
	}
	return nil
}

// Subscribe returns once redis confirmed the subscription, so no event published afterwards is missed.
func (b *RedisBroker) Subscribe(ctx context.Context, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBrokerClosed
	}
	if b.pubsub != nil {
		return errors.New("redis broker already has a subscriber")
	}
	pubsub := b.db.Client().PSubscribe(ctx, redisChannelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		b.logger.WithCtx(ctx).Error().Err(err).Msg("Redis broker couldn't subscribe")
		return err
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.pubsub, b.cancel, b.done = pubsub, cancel, make(chan struct{})
	go b.run(runCtx, pubsub.Channel(), handler)
	return nil
}

func (b *RedisBroker) run(ctx context.Context, messages <-chan *redis.Message, handler Handler) {
	defer close(b.done)
	for msg := range messages {
		var event entity.BroadcastEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			b.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("Dropping undecodable broadcast event")
			continue
		}
		if group := strings.TrimPrefix(msg.Channel, redisChannelPrefix); event.Group.String() != group {
			b.logger.Warn().Str("channel", msg.Channel).Str("group", event.Group.String()).Msg("Dropping broadcast event published on a foreign channel")
			continue
		}
		handler(ctx, event)
	}
}

// Close stops the subscription and waits for the handler to return.
func (b *RedisBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	pubsub, cancel, done := b.pubsub, b.cancel, b.done
	b.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	cancel()
	err := pubsub.Close()
	<-done
	return err
}
