package redis

import "strings"

// Keys builds the coordination-service key and channel names for one
// deployment stack. Prefixing every key with the stack name keeps multiple
// environments (dev, staging, prod) isolated on a shared Redis.
type Keys struct {
	stack string
}

// NewKeys creates a key builder for the given stack name.
func NewKeys(stack string) *Keys {
	return &Keys{stack: strings.ToLower(stack)}
}

// UsersToInstances is the hash mapping userId -> owning instanceId.
func (k *Keys) UsersToInstances() string {
	return k.stack + ":UsersToInstancesMap"
}

// UsersToDisplayNames is the hash mapping userId -> displayName.
func (k *Keys) UsersToDisplayNames() string {
	return k.stack + ":UsersToDisplayNamesMap"
}

// InstanceChannel is the pub/sub channel carrying notification envelopes
// addressed to users owned by the given instance.
func (k *Keys) InstanceChannel(instanceID string) string {
	return "instance:" + instanceID
}

// CacheEntry is the cache-aside key for one stored entity.
func (k *Keys) CacheEntry(resource, id string) string {
	return k.stack + ":cache:" + strings.ToLower(resource) + ":" + id
}

// Stack returns the stack name.
func (k *Keys) Stack() string {
	return k.stack
}
