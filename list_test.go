package mpmc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestListChan_trySendNeverFails(t *testing.T) {
	ch := newListChan[int]()
	for i := 0; i < listBlockCap*3; i++ {
		require.Nil(t, ch.trySend(i))
	}
	assert.Equal(t, listBlockCap*3, ch.len())
	assert.False(t, ch.isFull())
}

func TestListChan_recvInOrderAcrossBlocks(t *testing.T) {
	ch := newListChan[int]()
	const n = listBlockCap*2 + 5
	for i := 0; i < n; i++ {
		require.Nil(t, ch.trySend(i))
	}
	for i := 0; i < n; i++ {
		msg, err := ch.tryRecv()
		require.Nil(t, err)
		assert.Equal(t, i, msg)
	}
	assert.True(t, ch.isEmpty())
}

func TestListChan_capacityIsUnbounded(t *testing.T) {
	ch := newListChan[int]()
	n, ok := ch.capacity()
	assert.False(t, ok)
	assert.Equal(t, 0, n)
}

func TestListChan_recvBlocksUntilSend(t *testing.T) {
	ch := newListChan[int]()

	var g errgroup.Group
	var got int
	g.Go(func() error {
		msg, err := ch.recv(time.Time{}, false)
		if err != nil {
			return err
		}
		got = msg
		return nil
	})

	time.Sleep(20 * time.Millisecond)
	require.Nil(t, ch.send(99))
	require.NoError(t, g.Wait())
	assert.Equal(t, 99, got)
}

func TestListChan_disconnectSendersWakesBlockedRecv(t *testing.T) {
	ch := newListChan[int]()

	var g errgroup.Group
	g.Go(func() error {
		_, err := ch.recv(time.Time{}, false)
		if err == nil {
			return errors.New("expected disconnect error")
		}
		return nil
	})

	time.Sleep(20 * time.Millisecond)
	ch.disconnectSenders()
	require.NoError(t, g.Wait())
}

func TestListChan_disconnectReceiversDiscardsMessages(t *testing.T) {
	ch := newListChan[int]()
	require.Nil(t, ch.trySend(1))
	require.Nil(t, ch.trySend(2))

	ch.disconnectReceivers()
	assert.True(t, ch.isEmpty())
}
