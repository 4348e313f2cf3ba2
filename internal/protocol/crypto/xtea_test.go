package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXTEA_RoundTrip(t *testing.T) {
	key := XTEAKey{0x01020304, 0x05060708, 0x090a0b0c, 0x0d0e0f10}
	original := []byte("shadowrealm-test-payload-32bytes")
	require.Zero(t, len(original)%8)

	data := append([]byte(nil), original...)
	require.NoError(t, XTEAEncrypt(data, key))
	assert.NotEqual(t, original, data)

	require.NoError(t, XTEADecrypt(data, key))
	assert.Equal(t, original, data)
}

func TestXTEA_RejectsNonMultipleOf8(t *testing.T) {
	key := XTEAKey{1, 2, 3, 4}
	err := XTEAEncrypt([]byte("odd"), key)
	assert.Error(t, err)
}

// referenceXTEAEncrypt is a textbook XTEA block encryption written straight
// from the canonical algorithm description, independent of encryptBlock's
// implementation. It exists to catch operator-precedence mistakes that a
// round-trip test alone cannot: a bug that mis-groups `+`/`^` reproduces
// itself identically on decrypt, so only an independently-written reference
// can expose it.
func referenceXTEAEncrypt(v0, v1 uint32, key XTEAKey) (uint32, uint32) {
	var sum uint32
	for i := 0; i < xteaRounds; i++ {
		v0 += (((v1 << 4) ^ (v1 >> 5)) + v1) ^ (sum + key[sum&3])
		sum += xteaDelta
		v1 += (((v0 << 4) ^ (v0 >> 5)) + v0) ^ (sum + key[(sum>>11)&3])
	}
	return v0, v1
}

func TestXTEA_EncryptBlockMatchesIndependentReference(t *testing.T) {
	cases := []struct {
		name   string
		v0, v1 uint32
		key    XTEAKey
	}{
		{"zero key and block", 0, 0, XTEAKey{0, 0, 0, 0}},
		{"ascending words", 0x41424344, 0x45464748, XTEAKey{0x00010203, 0x04050607, 0x08090a0b, 0x0c0d0e0f}},
		{"all-ones", 0xffffffff, 0xffffffff, XTEAKey{0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			block := make([]byte, 8)
			putLeUint32(block[0:4], tc.v0)
			putLeUint32(block[4:8], tc.v1)

			encryptBlock(block, tc.key)

			wantV0, wantV1 := referenceXTEAEncrypt(tc.v0, tc.v1, tc.key)
			gotV0 := leUint32(block[0:4])
			gotV1 := leUint32(block[4:8])
			assert.Equal(t, wantV0, gotV0, "v0 mismatch")
			assert.Equal(t, wantV1, gotV1, "v1 mismatch")

			decryptBlock(block, tc.key)
			assert.Equal(t, tc.v0, leUint32(block[0:4]), "decrypt should recover v0")
			assert.Equal(t, tc.v1, leUint32(block[4:8]), "decrypt should recover v1")
		})
	}
}
