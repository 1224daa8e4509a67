package mpmc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestArrayChan_trySendTryRecvRoundTrip(t *testing.T) {
	ch := newArrayChan[int](2)

	require.Nil(t, ch.trySend(1))
	require.Nil(t, ch.trySend(2))

	err := ch.trySend(3)
	require.NotNil(t, err)
	assert.True(t, err.Full())
	assert.Equal(t, 3, err.Value())

	assert.Equal(t, 2, ch.len())
	assert.True(t, ch.isFull())

	msg, recvErr := ch.tryRecv()
	require.Nil(t, recvErr)
	assert.Equal(t, 1, msg)

	msg, recvErr = ch.tryRecv()
	require.Nil(t, recvErr)
	assert.Equal(t, 2, msg)

	_, recvErr = ch.tryRecv()
	require.NotNil(t, recvErr)
	assert.True(t, errors.Is(recvErr, ErrEmpty))
	assert.True(t, ch.isEmpty())
}

func TestArrayChan_capacity(t *testing.T) {
	ch := newArrayChan[string](5)
	n, ok := ch.capacity()
	assert.True(t, ok)
	assert.Equal(t, 5, n)
}

func TestArrayChan_sendBlocksUntilRecvFreesSlot(t *testing.T) {
	ch := newArrayChan[int](1)
	require.Nil(t, ch.trySend(1))

	var g errgroup.Group
	g.Go(func() error {
		return errorFromSendTimeoutError(ch.send(2, time.Time{}, false))
	})

	time.Sleep(20 * time.Millisecond)
	assert.True(t, ch.isFull())

	msg, recvErr := ch.tryRecv()
	require.Nil(t, recvErr)
	assert.Equal(t, 1, msg)

	require.NoError(t, g.Wait())

	msg, recvErr = ch.tryRecv()
	require.Nil(t, recvErr)
	assert.Equal(t, 2, msg)
}

func TestArrayChan_sendTimeoutExpires(t *testing.T) {
	ch := newArrayChan[int](1)
	require.Nil(t, ch.trySend(1))

	err := ch.send(2, time.Now().Add(15*time.Millisecond), true)
	require.NotNil(t, err)
	assert.True(t, err.TimedOut())
	assert.Equal(t, 2, err.Value())
}

func TestArrayChan_disconnectWakesBlockedRecv(t *testing.T) {
	ch := newArrayChan[int](1)

	var g errgroup.Group
	g.Go(func() error {
		_, err := ch.recv(time.Time{}, false)
		if err == nil {
			return errors.New("expected disconnect error")
		}
		return nil
	})

	time.Sleep(20 * time.Millisecond)
	ch.disconnect()
	require.NoError(t, g.Wait())
}

func errorFromSendTimeoutError(err *SendTimeoutError[int]) error {
	if err == nil {
		return nil
	}
	return err
}
