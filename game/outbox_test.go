package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxOverflowReplacesBacklog(t *testing.T) {
	ob := NewOutbox(2)
	calls := 0
	resync := func() Message {
		calls++
		return SnapshotMessage{Type: TypeSnapshot, Resync: true, Words: []string{"a", "b", "c"}}
	}

	assert.False(t, ob.Offer(PreviewUpdateMessage{PartialText: "a"}, resync))
	assert.False(t, ob.Offer(PreviewUpdateMessage{PartialText: "ab"}, resync))
	assert.True(t, ob.Offer(PreviewUpdateMessage{PartialText: "abc"}, resync))

	msgs := ob.Drain()
	require.Len(t, msgs, 1)
	snap, ok := msgs[0].(SnapshotMessage)
	require.True(t, ok)
	assert.True(t, snap.Resync)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, ob.Resyncs())
	assert.Zero(t, ob.Len())
}

func TestOutboxSignalsReady(t *testing.T) {
	ob := NewOutbox(4)
	ob.Offer(PreviewUpdateMessage{}, nil)
	ob.Offer(PreviewUpdateMessage{}, nil)

	select {
	case <-ob.Ready():
	default:
		assert.Fail(t, "ready was not signalled")
	}
	assert.Len(t, ob.Drain(), 2)
	assert.Nil(t, ob.Drain())
}

func TestOutboxClosed(t *testing.T) {
	ob := NewOutbox(0)
	ob.Close()
	ob.Close()

	select {
	case <-ob.Done():
	default:
		assert.Fail(t, "done was not closed")
	}
	assert.False(t, ob.Offer(PreviewUpdateMessage{}, nil))
	assert.Zero(t, ob.Len())
}
