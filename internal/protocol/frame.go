package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/shadowot/realm/internal/apperr"
	"github.com/shadowot/realm/internal/protocol/crypto"
)

// Codec frames, checksums and XTEA-encrypts packets for one connection
// (§4.1). A Codec is not safe for concurrent use; each connection owns one.
type Codec struct {
	key             *crypto.XTEAKey
	checksumEnabled bool
}

// NewCodec returns a Codec with no cipher key installed; checksumEnabled
// selects whether frames carry an Adler-32 checksum. InstallKey must be called once the login handshake completes.
func NewCodec(checksumEnabled bool) *Codec {
	return &Codec{checksumEnabled: checksumEnabled}
}

// InstallKey attaches the XTEA key negotiated during the handshake.
// Until a key is installed frames are read and written in plaintext.
func (c *Codec) InstallKey(key crypto.XTEAKey) {
	c.key = &key
}

// Keyed reports whether an XTEA key has been installed.
func (c *Codec) Keyed() bool { return c.key != nil }

// ReadFrame reads one full frame from r and returns the decoded payload.
func (c *Codec) ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint16(lenBuf[:])
	if int(length) > MaxPacketSize {
		return nil, apperr.PacketTooLarge(int(length), MaxPacketSize)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	return c.decodeBody(body)
}

// decodeBody strips the checksum (if enabled), decrypts (if keyed), and
// trims padding using the inner length prefix.
func (c *Codec) decodeBody(body []byte) ([]byte, error) {
	if c.checksumEnabled {
		if len(body) < 4 {
			return nil, apperr.BufferUnderflow(4, len(body))
		}
		want := binary.LittleEndian.Uint32(body[:4])
		rest := body[4:]
		if crypto.Adler32(rest) != want {
			return nil, apperr.InvalidChecksum()
		}
		body = rest
	}

	if c.key != nil {
		if len(body)%8 != 0 {
			return nil, apperr.InvalidPacket("xtea payload not a multiple of 8 bytes")
		}
		decrypted := make([]byte, len(body))
		copy(decrypted, body)
		if err := crypto.XTEADecrypt(decrypted, *c.key); err != nil {
			return nil, apperr.CryptoFailure(err)
		}
		body = decrypted

		if len(body) < 2 {
			return nil, apperr.BufferUnderflow(2, len(body))
		}
		inner := binary.LittleEndian.Uint16(body[:2])
		if int(inner) > len(body)-2 {
			return nil, apperr.InvalidPacket(fmt.Sprintf("inner length %d exceeds frame", inner))
		}
		body = body[2 : 2+int(inner)]
	}

	return body, nil
}

// WriteFrame encodes payload into a complete frame and writes it to w.
func (c *Codec) WriteFrame(w io.Writer, payload []byte) error {
	encoded, err := c.encodeBody(payload)
	if err != nil {
		return err
	}
	if len(encoded) > MaxPacketSize {
		return apperr.PacketTooLarge(len(encoded), MaxPacketSize)
	}

	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(encoded)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(encoded)
	return err
}

func (c *Codec) encodeBody(payload []byte) ([]byte, error) {
	body := payload

	if c.key != nil {
		wr := NewWriter()
		wr.PutU16(uint16(len(payload)))
		wr.PutBytes(payload)
		wr.PadTo8()
		framed := wr.Bytes()

		if err := crypto.XTEAEncrypt(framed, *c.key); err != nil {
			return nil, apperr.CryptoFailure(err)
		}
		body = framed
	}

	if c.checksumEnabled {
		sum := crypto.Adler32(body)
		out := make([]byte, 4+len(body))
		binary.LittleEndian.PutUint32(out[:4], sum)
		copy(out[4:], body)
		body = out
	}

	return body, nil
}
