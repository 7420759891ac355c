package realtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/erancha/RENTracker-sub000/internal/registry"
	"github.com/erancha/RENTracker-sub000/pkg/metrics"
)

// Publisher publishes a notification envelope on another instance's
// channel. Implemented by the pub/sub bridge; tests swap in an in-memory
// hub.
type Publisher interface {
	Publish(ctx context.Context, instanceID string, env Envelope) error
}

// Router decides, per target user, whether a notification is delivered on a
// local socket or published to the instance that owns the target's socket.
type Router struct {
	instanceID string
	table      *Table
	registry   registry.Registry
	publisher  Publisher
	log        *zap.Logger
}

// NewRouter creates a notification router for one instance.
func NewRouter(instanceID string, table *Table, reg registry.Registry, pub Publisher, log *zap.Logger) *Router {
	return &Router{
		instanceID: instanceID,
		table:      table,
		registry:   reg,
		publisher:  pub,
		log:        log.With(zap.String("module", "router")),
	}
}

// Route fans a serialized result frame out to the target users. Delivery is
// fire-and-forget: a target with no live socket anywhere is silently
// skipped, and a failed publish is logged and dropped. The command that
// produced the frame has already succeeded; imperfect fan-out never fails
// it.
func (r *Router) Route(ctx context.Context, frame []byte, targets []string) {
	for _, userID := range targets {
		r.routeOne(ctx, frame, userID)
	}
}

func (r *Router) routeOne(ctx context.Context, frame []byte, userID string) {
	// Fast path: socket attached to this process, no external calls.
	if r.table.Deliver(userID, frame) {
		metrics.Notifications.WithLabelValues("local").Inc()
		return
	}

	owner, err := r.registry.Resolve(ctx, userID)
	if err != nil {
		r.log.Warn("owner resolution failed, dropping notification",
			zap.String("target_user", userID), zap.Error(err))
		metrics.Notifications.WithLabelValues("dropped").Inc()
		return
	}
	if owner == "" {
		// Not connected anywhere.
		metrics.Notifications.WithLabelValues("dropped").Inc()
		return
	}
	if owner == r.instanceID {
		// Registry still names this instance but the local table disagrees:
		// the socket was just removed. Drop rather than retry.
		metrics.Notifications.WithLabelValues("dropped").Inc()
		return
	}

	env := Envelope{TargetUserID: userID, ResponsePayload: frame}
	if err := r.publisher.Publish(ctx, owner, env); err != nil {
		r.log.Warn("publish failed, dropping notification",
			zap.String("target_user", userID),
			zap.String("owner_instance", owner),
			zap.Error(err))
		metrics.PublishErrors.Inc()
		metrics.Notifications.WithLabelValues("dropped").Inc()
		return
	}
	metrics.Notifications.WithLabelValues("remote").Inc()
}

// DeliverLocal hands an envelope received over the bridge to this
// instance's local delivery path only. It never re-publishes, which is what
// keeps routing loop-free.
func (r *Router) DeliverLocal(userID string, payload []byte) bool {
	if r.table.Deliver(userID, payload) {
		metrics.Notifications.WithLabelValues("local").Inc()
		return true
	}
	metrics.Notifications.WithLabelValues("dropped").Inc()
	return false
}
