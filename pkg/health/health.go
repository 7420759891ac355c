package health

import (
	"context"
	"database/sql"
	"sync"
)

// Status represents the health status.
type Status string

const (
	StatusUp   Status = "UP"
	StatusDown Status = "DOWN"
)

// Check represents a single dependency health check.
type Check interface {
	Check(ctx context.Context) error
	Name() string
}

// Checker manages health checks for the gateway's collaborators.
type Checker struct {
	checks []Check
	mu     sync.RWMutex
}

// NewChecker creates a new health checker.
func NewChecker() *Checker {
	return &Checker{checks: make([]Check, 0)}
}

// Register adds a new health check.
func (c *Checker) Register(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check)
}

// Check performs all registered checks and returns per-check results.
func (c *Checker) Check(ctx context.Context) map[string]error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	results := make(map[string]error, len(c.checks))
	for _, check := range c.checks {
		results[check.Name()] = check.Check(ctx)
	}
	return results
}

// Status reduces all check results to a single status.
func (c *Checker) Status(ctx context.Context) Status {
	for _, err := range c.Check(ctx) {
		if err != nil {
			return StatusDown
		}
	}
	return StatusUp
}

// Pinger is satisfied by the redis client wrapper.
type Pinger interface {
	IsAvailable(ctx context.Context) error
}

// RedisCheck checks coordination-service connectivity.
type RedisCheck struct {
	client Pinger
}

func NewRedisCheck(client Pinger) *RedisCheck {
	return &RedisCheck{client: client}
}

func (r *RedisCheck) Check(ctx context.Context) error {
	return r.client.IsAvailable(ctx)
}

func (r *RedisCheck) Name() string {
	return "redis"
}

// DatabaseCheck checks domain-store connectivity.
type DatabaseCheck struct {
	db *sql.DB
}

func NewDatabaseCheck(db *sql.DB) *DatabaseCheck {
	return &DatabaseCheck{db: db}
}

func (d *DatabaseCheck) Check(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DatabaseCheck) Name() string {
	return "postgres"
}
