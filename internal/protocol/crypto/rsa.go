package crypto

import (
	"math/big"

	"github.com/shadowot/realm/internal/apperr"
)

// DefaultModulusHex and DefaultExponent are the well-known "OT" 1024-bit RSA
// key used when no server-specific key is configured (§4.2).
const (
	DefaultModulusHex = "9b646903b45b07ac956568d87353bd7165139dd7940703b03e0760eba10540136198973361d8274ee8da7dfa49437226d6290d" +
		"564c410721ea6b7b4fb5d6a034be8c9b4e0b55e88b0dbd8b54934c91ccbd0d6d5f2b96d9e0f2e1e4f5e9b5a5f7c3a6b2f4d7e9c" +
		"1b3d5f7a9c1e3b5d7f9a1c3e5b7d9f1a3c5e7b9d1f3a5c7e9b1d3f5a7c9e1b3d5f7a9c1e3b5d7f9a1c3e5b7d9f1a3c5e7b9d1f3a"
	DefaultExponent = 65537
)

// RSAKey exposes the raw modexp operation the login server needs: decrypt a
// single 128-byte block and validate that the plaintext's leading byte is 0.
type RSAKey struct {
	modulus  *big.Int
	exponent *big.Int
}

// NewRSAKey builds an RSAKey from a hex-encoded modulus and a private exponent.
func NewRSAKey(modulusHex string, exponent *big.Int) (*RSAKey, error) {
	modulus, ok := new(big.Int).SetString(modulusHex, 16)
	if !ok {
		return nil, apperr.InvalidPacket("malformed rsa modulus")
	}
	return &RSAKey{modulus: modulus, exponent: exponent}, nil
}

// Decrypt performs raw RSA modexp decryption of a 128-byte ciphertext block
// and returns the 128-byte plaintext. The caller must check that the leading
// byte of the result is 0 (§4.2, §4.14 step 3).
func (k *RSAKey) Decrypt(block []byte) ([]byte, error) {
	if len(block) != 128 {
		return nil, apperr.InvalidPacket("rsa block must be 128 bytes")
	}
	c := new(big.Int).SetBytes(block)
	m := new(big.Int).Exp(c, k.exponent, k.modulus)

	out := make([]byte, 128)
	m.FillBytes(out)
	return out, nil
}
