package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/erancha/RENTracker-sub000/internal/storage"
	"github.com/erancha/RENTracker-sub000/pkg/metrics"
)

// ErrUnsupportedCommand means the (action, resource) pair is outside the
// closed command set. The command never reaches storage.
var ErrUnsupportedCommand = errors.New("unsupported command")

// supportedResources is the closed set of resource kinds. Activity records
// are append-only, so update is not in their action set.
var supportedResources = map[storage.Resource]map[Action]bool{
	storage.ResourceApartment: {ActionCreate: true, ActionRead: true, ActionUpdate: true, ActionDelete: true},
	storage.ResourceDocument:  {ActionCreate: true, ActionRead: true, ActionUpdate: true, ActionDelete: true},
	storage.ResourceActivity:  {ActionCreate: true, ActionRead: true, ActionDelete: true},
}

// Dispatcher routes commands from connections onto the storage
// collaborator. It owns no business rules: it validates the command pair,
// invokes the matching store operation, and shapes the outcome into an
// outbound frame plus the target user set for the router.
type Dispatcher struct {
	store storage.Store
	log   *zap.Logger
}

// NewDispatcher creates a command dispatcher over the given store.
func NewDispatcher(store storage.Store, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store: store,
		log:   log.With(zap.String("module", "dispatcher")),
	}
}

// Execute runs one command for the authenticated user. On success it
// returns the serialized result frame and the users to notify; on failure
// the error is reported to the sending connection only.
func (d *Dispatcher) Execute(ctx context.Context, cmd Command, userID string) ([]byte, []string, error) {
	res := storage.Resource(cmd.Params.Resource)
	kind := string(cmd.Type) + ":" + cmd.Params.Resource

	actions, ok := supportedResources[res]
	if !ok || !actions[cmd.Type] {
		metrics.Commands.WithLabelValues(kind, "unsupported").Inc()
		return nil, nil, fmt.Errorf("%w: %s %s", ErrUnsupportedCommand, cmd.Type, cmd.Params.Resource)
	}

	start := time.Now()
	result, err := d.run(ctx, cmd, res, userID)
	metrics.CommandLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Commands.WithLabelValues(kind, "failed").Inc()
		return nil, nil, fmt.Errorf("command failed: %w", err)
	}

	frame, err := successFrame(cmd.Type, res, result.Payload)
	if err != nil {
		metrics.Commands.WithLabelValues(kind, "failed").Inc()
		return nil, nil, fmt.Errorf("command failed: %w", err)
	}
	metrics.Commands.WithLabelValues(kind, "ok").Inc()
	return frame, result.Targets, nil
}

func (d *Dispatcher) run(ctx context.Context, cmd Command, res storage.Resource, userID string) (*storage.Result, error) {
	switch cmd.Type {
	case ActionCreate:
		return d.store.Create(ctx, res, userID, cmd.Params.Data)
	case ActionRead:
		return d.store.Read(ctx, res, userID, storage.ReadParams{
			ID:          cmd.Params.ID,
			ApartmentID: cmd.Params.ApartmentID,
		})
	case ActionUpdate:
		return d.store.Update(ctx, res, userID, cmd.Params.Data)
	case ActionDelete:
		return d.store.Delete(ctx, res, userID, cmd.Params.ID)
	}
	// Unreachable: the pair was validated against the closed set above.
	return nil, ErrUnsupportedCommand
}
