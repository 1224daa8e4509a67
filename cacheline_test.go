package mpmc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/cpu"
)

func TestSizeOf(t *testing.T) {
	cases := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"paddedUint64", unsafe.Sizeof(paddedUint64{}), 2*unsafe.Sizeof(cpu.CacheLinePad{}) + unsafe.Sizeof(uint64(0))},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.GreaterOrEqual(t, c.got, c.want)
		})
	}
}

func TestPaddedUint64_loadStoreAdd(t *testing.T) {
	var p paddedUint64
	assert.Equal(t, uint64(0), p.Load())
	p.Store(5)
	assert.Equal(t, uint64(5), p.Load())
	assert.Equal(t, uint64(6), p.Add(1))
	assert.True(t, p.CompareAndSwap(6, 10))
	assert.False(t, p.CompareAndSwap(6, 99))
	assert.Equal(t, uint64(10), p.Load())
}

func TestPaddedUint64_fetchOr(t *testing.T) {
	var p paddedUint64
	p.Store(0b0001)
	prev := p.FetchOr(0b0010)
	assert.Equal(t, uint64(0b0001), prev)
	assert.Equal(t, uint64(0b0011), p.Load())

	// Already-set bits: FetchOr is a no-op read.
	prev = p.FetchOr(0b0001)
	assert.Equal(t, uint64(0b0011), prev)
}
