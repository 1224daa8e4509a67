package mpmc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_trySelectWinsOnce(t *testing.T) {
	withContext(func(cx *Context) {
		sel, ok := cx.trySelect(selectedAborted)
		require.True(t, ok)
		assert.Equal(t, selectedAborted, sel)

		_, ok = cx.trySelect(selectedDisconnected)
		assert.False(t, ok)
		assert.Equal(t, selectedAborted, selected(cx.sel.Load()))
	})
}

func TestContext_unparkWakesWaitUntil(t *testing.T) {
	withContext(func(cx *Context) {
		done := make(chan selected, 1)
		go func() {
			done <- cx.waitUntil(time.Time{}, false)
		}()

		time.Sleep(10 * time.Millisecond)
		_, ok := cx.trySelect(selectedDisconnected)
		require.True(t, ok)
		cx.unpark()

		select {
		case sel := <-done:
			assert.Equal(t, selectedDisconnected, sel)
		case <-time.After(time.Second):
			t.Fatal("waitUntil did not return after unpark")
		}
	})
}

func TestContext_waitUntilDeadlineAborts(t *testing.T) {
	withContext(func(cx *Context) {
		deadline := time.Now().Add(20 * time.Millisecond)
		sel := cx.waitUntil(deadline, true)
		assert.Equal(t, selectedAborted, sel)
	})
}

func TestContext_poolResetDrainsStaleWake(t *testing.T) {
	withContext(func(cx *Context) {
		cx.unpark() // simulate a wake delivered just before release
	})
	withContext(func(cx *Context) {
		select {
		case <-cx.wake:
			t.Fatal("reset should have drained a stale wake signal")
		default:
		}
	})
}

func TestHookOperation_uniquePerToken(t *testing.T) {
	var a, b token
	opA := hookOperation(&a)
	opB := hookOperation(&b)
	assert.NotEqual(t, opA, opB)
	assert.True(t, selectedForOperation(opA).isOperation())
}
