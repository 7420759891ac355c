package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorderSender struct {
	frames [][]byte
	closed bool
}

func (r *recorderSender) Send(payload []byte) bool {
	r.frames = append(r.frames, payload)
	return true
}

func (r *recorderSender) Close() { r.closed = true }

func TestTableDeliver(t *testing.T) {
	table := NewTable()
	s := &recorderSender{}
	table.Put("u1", s)

	require.True(t, table.Deliver("u1", []byte("hello")))
	require.Len(t, s.frames, 1)
	assert.Equal(t, "hello", string(s.frames[0]))

	assert.False(t, table.Deliver("u2", []byte("nope")))
}

func TestTablePutOverwrites(t *testing.T) {
	table := NewTable()
	first := &recorderSender{}
	second := &recorderSender{}

	table.Put("u1", first)
	table.Put("u1", second)
	require.Equal(t, 1, table.Len())

	table.Deliver("u1", []byte("frame"))
	assert.Empty(t, first.frames)
	assert.Len(t, second.frames, 1)
}

func TestTableRemoveIsConnChecked(t *testing.T) {
	table := NewTable()
	first := &recorderSender{}
	second := &recorderSender{}

	table.Put("u1", first)
	table.Put("u1", second)

	// The evicted socket's teardown must not remove its successor.
	table.Remove("u1", first)
	assert.True(t, table.Has("u1"))

	table.Remove("u1", second)
	assert.False(t, table.Has("u1"))
	assert.Equal(t, 0, table.Len())
}
