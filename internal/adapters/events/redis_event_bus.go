package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/dentalanalytics/internal/domain/entities"
	"github.com/zatekoja/dentalanalytics/internal/domain/providers"
	redisclient "github.com/zatekoja/dentalanalytics/internal/infrastructure/clients/redis"
)

const subscriberBuffer = 16

// channelState is one Redis subscription fanned out to local subscribers.
type channelState struct {
	pubsub      *redis.PubSub
	subscribers map[chan *entities.LayerEvent]struct{}
}

// RedisEventBus implements the EventBus interface using Redis Pub/Sub
type RedisEventBus struct {
	client   *redisclient.Client
	channels map[string]*channelState
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:   client,
		channels: make(map[string]*channelState),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Publish publishes a layer event to all subscribers
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.LayerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().Str("channel", channel).Str("event_id", event.ID).Str("stage", string(event.Stage)).Msg("published layer event")
	return nil
}

// Subscribe returns a channel of events that closes when ctx is done or the bus is closed.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.LayerEvent, error) {
	b.mu.Lock()
	state, ok := b.channels[channel]
	if !ok {
		pubsub := b.client.Client().Subscribe(b.ctx, channel)
		if _, err := pubsub.Receive(ctx); err != nil {
			b.mu.Unlock()
			_ = pubsub.Close()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		state = &channelState{pubsub: pubsub, subscribers: make(map[chan *entities.LayerEvent]struct{})}
		b.channels[channel] = state
		go b.fanOut(channel, state)
	}

	events := make(chan *entities.LayerEvent, subscriberBuffer)
	state.subscribers[events] = struct{}{}
	count := len(state.subscribers)
	b.mu.Unlock()

	log.Info().Str("channel", channel).Int("subscribers", count).Msg("subscribed to channel")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.removeSubscriber(channel, events)
	}()

	return events, nil
}

func (b *RedisEventBus) fanOut(channel string, state *channelState) {
	for msg := range state.pubsub.Channel() {
		var event entities.LayerEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("dropping malformed event")
			continue
		}

		b.mu.RLock()
		for sub := range state.subscribers {
			select {
			case sub <- &event:
			default:
				log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber channel full, skipping event")
			}
		}
		b.mu.RUnlock()
	}
}

func (b *RedisEventBus) removeSubscriber(channel string, events chan *entities.LayerEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.channels[channel]
	if !ok {
		return
	}
	if _, ok := state.subscribers[events]; !ok {
		return
	}
	delete(state.subscribers, events)
	close(events)

	if len(state.subscribers) == 0 {
		b.closeChannelLocked(channel, state)
	}
}

// closeChannelLocked closes the Redis subscription and every subscriber. b.mu must be held.
func (b *RedisEventBus) closeChannelLocked(channel string, state *channelState) error {
	for sub := range state.subscribers {
		close(sub)
		delete(state.subscribers, sub)
	}
	delete(b.channels, channel)
	if err := state.pubsub.Close(); err != nil {
		return fmt.Errorf("failed to close subscription %s: %w", channel, err)
	}
	log.Info().Str("channel", channel).Msg("closed subscription")
	return nil
}

// Unsubscribe drops every local subscriber of channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.channels[channel]
	if !ok {
		return nil
	}
	return b.closeChannelLocked(channel, state)
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for channel, state := range b.channels {
		if err := b.closeChannelLocked(channel, state); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
