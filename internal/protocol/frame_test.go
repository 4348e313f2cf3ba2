package protocol

import (
	"bytes"
	"testing"

	"github.com/shadowot/realm/internal/apperr"
	"github.com/shadowot/realm/internal/protocol/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip_NoChecksumNoKey(t *testing.T) {
	codec := NewCodec(false)
	payload := []byte{0x01, 0x02, 0x03}

	var buf bytes.Buffer
	require.NoError(t, codec.WriteFrame(&buf, payload))

	got, err := codec.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestCodec_RoundTrip_WithChecksumAndKey(t *testing.T) {
	codec := NewCodec(true)
	codec.InstallKey(crypto.XTEAKey{0x1, 0x2, 0x3, 0x4})
	payload := []byte("move north please")

	var buf bytes.Buffer
	require.NoError(t, codec.WriteFrame(&buf, payload))

	got, err := codec.ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestCodec_RejectsBadChecksum(t *testing.T) {
	codec := NewCodec(true)
	payload := []byte{0xAA, 0xBB}

	var buf bytes.Buffer
	require.NoError(t, codec.WriteFrame(&buf, payload))

	raw := buf.Bytes()
	// Corrupt the checksum field (bytes 2..6, after the 2-byte outer length).
	raw[2] ^= 0xFF

	_, err := codec.ReadFrame(bytes.NewReader(raw))
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInvalidChecksum, appErr.Code)
}

func TestCodec_RejectsOversizedFrame(t *testing.T) {
	codec := NewCodec(false)
	var lenBuf [2]byte
	lenBuf[0] = 0xFF
	lenBuf[1] = 0xFF // declares length 65535 > MaxPacketSize

	_, err := codec.ReadFrame(bytes.NewReader(lenBuf[:]))
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodePacketTooLarge, appErr.Code)
}
