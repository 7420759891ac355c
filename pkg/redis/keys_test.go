package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	k := NewKeys("RENTracker-prod")

	assert.Equal(t, "rentracker-prod:UsersToInstancesMap", k.UsersToInstances())
	assert.Equal(t, "rentracker-prod:UsersToDisplayNamesMap", k.UsersToDisplayNames())
	assert.Equal(t, "instance:i-1234", k.InstanceChannel("i-1234"))
	assert.Equal(t, "rentracker-prod:cache:apartment:42", k.CacheEntry("Apartment", "42"))
	assert.Equal(t, "rentracker-prod", k.Stack())
}

func TestKeysStackIsolation(t *testing.T) {
	dev := NewKeys("dev")
	prod := NewKeys("prod")

	assert.NotEqual(t, dev.UsersToInstances(), prod.UsersToInstances())
	assert.NotEqual(t, dev.CacheEntry("document", "d1"), prod.CacheEntry("document", "d1"))
}
