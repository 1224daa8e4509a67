package mpmc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrySendError_Is(t *testing.T) {
	full := &TrySendError[int]{full: true, value: 7}
	assert.True(t, errors.Is(full, ErrFull))
	assert.False(t, errors.Is(full, ErrDisconnected))
	assert.Equal(t, 7, full.Value())
	assert.True(t, full.Full())

	disc := &TrySendError[int]{value: 9}
	assert.True(t, errors.Is(disc, ErrDisconnected))
	assert.False(t, disc.Full())
}

func TestSendError_Is(t *testing.T) {
	err := &SendError[string]{value: "hi"}
	assert.True(t, errors.Is(err, ErrDisconnected))
	assert.Equal(t, "hi", err.Value())
}

func TestSendTimeoutError_Is(t *testing.T) {
	timedOut := &SendTimeoutError[int]{timedOut: true, value: 1}
	assert.True(t, errors.Is(timedOut, ErrTimeout))
	assert.True(t, timedOut.TimedOut())

	disc := &SendTimeoutError[int]{value: 2}
	assert.True(t, errors.Is(disc, ErrDisconnected))
	assert.False(t, disc.TimedOut())
}

func TestTryRecvError_Is(t *testing.T) {
	empty := &TryRecvError{}
	assert.True(t, errors.Is(empty, ErrEmpty))
	assert.False(t, empty.Disconnected())

	disc := &TryRecvError{disconnected: true}
	assert.True(t, errors.Is(disc, ErrDisconnected))
	assert.True(t, disc.Disconnected())
}

func TestRecvError_Is(t *testing.T) {
	err := &RecvError{}
	assert.True(t, errors.Is(err, ErrDisconnected))
}

func TestRecvTimeoutError_Is(t *testing.T) {
	timedOut := &RecvTimeoutError{timedOut: true}
	assert.True(t, errors.Is(timedOut, ErrTimeout))

	disc := &RecvTimeoutError{}
	assert.True(t, errors.Is(disc, ErrDisconnected))
}
