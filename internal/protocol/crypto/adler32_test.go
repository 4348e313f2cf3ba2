package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdler32_EmptyBufferIsOne(t *testing.T) {
	assert.Equal(t, uint32(1), Adler32(nil))
}

func TestAdler32_SingleZeroByte(t *testing.T) {
	assert.Equal(t, uint32(0x00010001), Adler32([]byte{0x00}))
}

func TestAdler32_KnownValue(t *testing.T) {
	assert.Equal(t, uint32(0x11E60398), Adler32([]byte("Wikipedia")))
}
