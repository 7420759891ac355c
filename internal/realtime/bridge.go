package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/erancha/RENTracker-sub000/pkg/json"
	"github.com/erancha/RENTracker-sub000/pkg/redis"
)

// ErrPublishFailed means the single best-effort publish attempt did not go
// through; the notification is dropped.
var ErrPublishFailed = errors.New("publish failed")

// Bridge carries notification envelopes between instances over the
// coordination service. Each instance subscribes exactly once to its own
// channel and publishes to the channels of instances owning remote targets.
// Messages published while the target instance is down are lost; this is
// the intended delivery guarantee.
type Bridge struct {
	rdb        *redis.Client
	keys       *redis.Keys
	instanceID string
	log        *zap.Logger

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
}

// NewBridge creates a pub/sub bridge for one instance.
func NewBridge(rdb *redis.Client, keys *redis.Keys, instanceID string, log *zap.Logger) *Bridge {
	return &Bridge{
		rdb:        rdb,
		keys:       keys,
		instanceID: instanceID,
		log:        log.With(zap.String("module", "bridge")),
	}
}

// Publish writes one envelope to the target instance's channel. Single
// attempt, no acknowledgement, no delivery confirmation.
func (b *Bridge) Publish(ctx context.Context, instanceID string, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("%w: encode envelope: %v", ErrPublishFailed, err)
	}
	channel := b.keys.InstanceChannel(instanceID)
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return nil
}

// Run subscribes to this instance's own channel and hands every received
// envelope to the local delivery path. It blocks until the context is
// cancelled or the subscription is closed. Envelopes are never re-published
// here, so a misaddressed one cannot loop.
func (b *Bridge) Run(ctx context.Context, deliver func(userID string, payload []byte) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		return nil
	}
	b.cancel = cancel
	b.mu.Unlock()

	channel := b.keys.InstanceChannel(b.instanceID)
	pubsub := b.rdb.Subscribe(ctx, channel)
	defer pubsub.Close()

	// Confirm the subscription before reporting ready; envelopes published
	// before this point are lost by design.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	b.log.Info("bridge subscribed", zap.String("channel", channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.log.Info("bridge unsubscribing", zap.String("channel", channel))
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("malformed envelope, skipping", zap.Error(err))
				continue
			}
			deliver(env.TargetUserID, env.ResponsePayload)
		}
	}
}

// Close stops the subscription loop. Called during graceful shutdown after
// the server has stopped accepting new connections.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.cancel != nil {
		b.cancel()
	}
}
