package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erancha/RENTracker-sub000/pkg/redis"
)

// ErrUnavailable means a coordination-service read or write failed. Callers
// degrade: a failed register leaves the user unreachable cross-instance
// until a later event, a failed deregister leaves a stale entry that
// self-heals on the next connect.
var ErrUnavailable = errors.New("registry unavailable")

// Registry is the cross-instance view of socket ownership. The concrete
// implementation lives on the shared coordination service; tests swap in an
// in-memory one to simulate several instances in a single process.
type Registry interface {
	Register(ctx context.Context, userID, instanceID, displayName string) error
	Resolve(ctx context.Context, userID string) (string, error)
	DisplayName(ctx context.Context, userID string) (string, error)
	Deregister(ctx context.Context, userID string) error
}

// Client implements Registry over two Redis hashes. Every operation is a
// single-key atomic command; there are no read-modify-write sequences to
// race across instances. At most one instanceId is recorded per userId: a
// re-register plainly overwrites the prior owner.
type Client struct {
	rdb     *redis.Client
	keys    *redis.Keys
	timeout time.Duration
	log     *zap.Logger
}

// NewClient creates a registry client with a bounded per-operation timeout.
func NewClient(rdb *redis.Client, keys *redis.Keys, timeout time.Duration, log *zap.Logger) *Client {
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		rdb:     rdb,
		keys:    keys,
		timeout: timeout,
		log:     log.With(zap.String("module", "registry")),
	}
}

// Register records this instance as the owner of the user's live socket and
// stores the display name alongside.
func (c *Client) Register(ctx context.Context, userID, instanceID, displayName string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rdb.HSet(ctx, c.keys.UsersToInstances(), userID, instanceID).Err(); err != nil {
		return fmt.Errorf("%w: register owner: %v", ErrUnavailable, err)
	}
	if err := c.rdb.HSet(ctx, c.keys.UsersToDisplayNames(), userID, displayName).Err(); err != nil {
		return fmt.Errorf("%w: register display name: %v", ErrUnavailable, err)
	}
	return nil
}

// Resolve returns the instance currently owning the user's socket, or the
// empty string when the user is not connected anywhere.
func (c *Client) Resolve(ctx context.Context, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	instanceID, err := c.rdb.HGet(ctx, c.keys.UsersToInstances(), userID).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: resolve: %v", ErrUnavailable, err)
	}
	return instanceID, nil
}

// DisplayName returns the stored display name for a connected user.
func (c *Client) DisplayName(ctx context.Context, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	name, err := c.rdb.HGet(ctx, c.keys.UsersToDisplayNames(), userID).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: display name: %v", ErrUnavailable, err)
	}
	return name, nil
}

// Deregister removes the user's ownership entries. Best-effort on
// disconnect; a leftover entry is overwritten by the next connect.
func (c *Client) Deregister(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rdb.HDel(ctx, c.keys.UsersToInstances(), userID).Err(); err != nil {
		return fmt.Errorf("%w: deregister owner: %v", ErrUnavailable, err)
	}
	if err := c.rdb.HDel(ctx, c.keys.UsersToDisplayNames(), userID).Err(); err != nil {
		return fmt.Errorf("%w: deregister display name: %v", ErrUnavailable, err)
	}
	return nil
}
