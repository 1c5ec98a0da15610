package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJumpHash(t *testing.T) {
	assert.Equal(t, 0, JumpHash(12345, 0))
	assert.Equal(t, 0, JumpHash(12345, -1))
	assert.Equal(t, 0, JumpHash(12345, 1))

	for key := range uint64(1000) {
		b := JumpHash(key, 10)
		assert.GreaterOrEqual(t, b, 0)
		assert.Less(t, b, 10)
	}
}

func TestJumpHash_Monotonic(t *testing.T) {
	// a key either stays or moves to the new bucket
	for key := range uint64(1000) {
		prev := JumpHash(key, 1)
		for n := 2; n <= 20; n++ {
			b := JumpHash(key, n)
			if b != prev {
				assert.Equal(t, n-1, b)
			}
			prev = b
		}
	}
}
