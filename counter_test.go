package mpmc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter_releaseFiresOnLastHandle(t *testing.T) {
	c := newCounter[int](0)
	c.acquireSender()

	calls := 0
	disconnect := func(int) { calls++ }

	c.releaseSender(disconnect)
	assert.Equal(t, 0, calls, "one sender handle still outstanding")

	c.releaseSender(disconnect)
	assert.Equal(t, 1, calls, "last sender handle should fire disconnect exactly once")
}

func TestCounter_senderAndReceiverIndependent(t *testing.T) {
	c := newCounter[int](0)

	senderCalls, receiverCalls := 0, 0
	c.releaseSender(func(int) { senderCalls++ })
	c.releaseReceiver(func(int) { receiverCalls++ })

	assert.Equal(t, 1, senderCalls)
	assert.Equal(t, 1, receiverCalls)
}
