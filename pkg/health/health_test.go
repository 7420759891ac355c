package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeCheck struct {
	name string
	err  error
}

func (f fakeCheck) Check(context.Context) error { return f.err }
func (f fakeCheck) Name() string                { return f.name }

func TestCheckerAllUp(t *testing.T) {
	c := NewChecker()
	c.Register(fakeCheck{name: "redis"})
	c.Register(fakeCheck{name: "postgres"})

	results := c.Check(context.Background())
	assert.Len(t, results, 2)
	assert.NoError(t, results["redis"])
	assert.NoError(t, results["postgres"])
	assert.Equal(t, StatusUp, c.Status(context.Background()))
}

func TestCheckerOneDown(t *testing.T) {
	c := NewChecker()
	c.Register(fakeCheck{name: "redis"})
	c.Register(fakeCheck{name: "postgres", err: errors.New("connection refused")})

	assert.Equal(t, StatusDown, c.Status(context.Background()))
}
