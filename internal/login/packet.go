package login

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/shadowot/realm/internal/apperr"
	"github.com/shadowot/realm/internal/protocol"
	"github.com/shadowot/realm/internal/protocol/crypto"
)

// Opcode identifies a login-connection packet type (§4.14, §6 core codes).
type Opcode byte

const (
	OpcodeLoginRequest Opcode = 0x01
	OpcodeMOTD         Opcode = 0x14
	OpcodeCharacterList Opcode = 0x64
	OpcodeError        Opcode = 0x0A
)

// Request is the decoded login-request packet, after RSA decryption of the
// credentials block (§4.14 steps 2-4).
type Request struct {
	OS              uint16
	ProtocolVersion uint16
	ClientVersion   uint32
	ContentRevision uint16
	Signatures      [4]uint32

	XTEAKey        crypto.XTEAKey
	AccountID      string
	Password       string
	AuthToken      string
	StayLoggedIn   bool
}

// parseRequest reads the unencrypted header, then RSA-decrypts and parses
// the 128-byte credentials block (§4.14 steps 1-4).
func parseRequest(body []byte, rsaKey *crypto.RSAKey) (*Request, error) {
	r := protocol.NewReader(body)

	opcode, err := r.U8()
	if err != nil {
		return nil, err
	}
	if Opcode(opcode) != OpcodeLoginRequest {
		return nil, apperr.InvalidPacket("expected login request opcode")
	}

	req := &Request{}
	if req.OS, err = r.U16(); err != nil {
		return nil, err
	}
	if req.ProtocolVersion, err = r.U16(); err != nil {
		return nil, err
	}
	if req.ClientVersion, err = r.U32(); err != nil {
		return nil, err
	}
	if req.ContentRevision, err = r.U16(); err != nil {
		return nil, err
	}
	for i := range req.Signatures {
		if req.Signatures[i], err = r.U32(); err != nil {
			return nil, err
		}
	}

	cipherBlock, err := r.Bytes(128)
	if err != nil {
		return nil, err
	}
	plain, err := rsaKey.Decrypt(cipherBlock)
	if err != nil {
		return nil, apperr.CryptoFailure(err)
	}
	if plain[0] != 0 {
		return nil, apperr.InvalidPacket("rsa plaintext leading byte must be zero")
	}

	cr := protocol.NewReader(plain[1:])
	var words [4]uint32
	for i := range words {
		if words[i], err = cr.U32(); err != nil {
			return nil, err
		}
	}
	req.XTEAKey = crypto.XTEAKeyFromBytes(words)

	if req.AccountID, err = cr.String(); err != nil {
		return nil, err
	}
	if req.Password, err = cr.String(); err != nil {
		return nil, err
	}
	if req.AuthToken, err = cr.String(); err != nil {
		// Older clients omit the auth-token/stay-logged-in tail; treat
		// running out of bytes here as "no token supplied" rather than a
		// malformed packet.
		req.AuthToken = ""
		return req, nil
	}
	if stay, err := cr.U8(); err == nil {
		req.StayLoggedIn = stay != 0
	}

	return req, nil
}

// hashPassword computes the SHA-256 hex digest AccountStore.VerifyCredentials
// expects as its passwordHash argument (§4.14 step 6: "password compared via
// SHA-256 hex — the supported hash").
func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// CharacterSummary is one entry in the character-list response.
type CharacterSummary struct {
	Name         string
	RealmHost    string
	RealmPort    int
	PremiumDays  int
}

// Response is the data a successful login assembles into the character-list
// packet (§4.14 step 7).
type Response struct {
	MOTD       string
	SessionKey string
	// SessionJWT is a signed token binding the session to its account,
	// minted alongside SessionKey when a signing secret is configured. It
	// never travels on the client wire (the client protocol only knows the
	// raw hex key); it exists for ops/REST surfaces to verify a session
	// without a store round trip.
	SessionJWT   string
	Characters   []CharacterSummary
	PremiumUntil int64
}

// writeMOTD appends the MOTD packet to w.
func writeMOTD(w *protocol.Writer, motd string) {
	w.PutU8(byte(OpcodeMOTD))
	w.PutString(motd)
}

// writeCharacterList appends the character-list packet to w.
func writeCharacterList(w *protocol.Writer, resp *Response) {
	w.PutU8(byte(OpcodeCharacterList))
	w.PutString(resp.SessionKey)
	w.PutU8(byte(len(resp.Characters)))
	for _, c := range resp.Characters {
		w.PutString(c.Name)
		w.PutString(c.RealmHost)
		w.PutU16(uint16(c.RealmPort))
		w.PutU16(uint16(c.PremiumDays))
	}
	w.PutU64(uint64(resp.PremiumUntil))
}

// writeError appends the login-error packet to w.
func writeError(w *protocol.Writer, message string) {
	w.PutU8(byte(OpcodeError))
	w.PutString(message)
}
