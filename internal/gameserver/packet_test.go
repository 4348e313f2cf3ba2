package gameserver

import (
	crand "crypto/rand"
	"crypto/rsa"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowot/realm/internal/engine"
	"github.com/shadowot/realm/internal/protocol"
	"github.com/shadowot/realm/internal/protocol/crypto"
	"github.com/shadowot/realm/internal/world"
)

func newTestRSAKey(t *testing.T) (*crypto.RSAKey, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(crand.Reader, 1024)
	require.NoError(t, err)
	key, err := crypto.NewRSAKey(priv.N.Text(16), priv.D)
	require.NoError(t, err)
	return key, priv
}

func encryptBlock(t *testing.T, priv *rsa.PrivateKey, plain []byte) []byte {
	t.Helper()
	require.LessOrEqual(t, len(plain), 128)
	padded := make([]byte, 128)
	copy(padded, plain)
	plainInt := new(big.Int).SetBytes(padded)
	cipherInt := new(big.Int).Exp(plainInt, big.NewInt(int64(priv.PublicKey.E)), priv.N)
	out := make([]byte, 128)
	cipherInt.FillBytes(out)
	return out
}

func TestParseJoin_DecodesSessionKeyAndCharacterName(t *testing.T) {
	key, priv := newTestRSAKey(t)

	cred := protocol.NewWriter()
	cred.PutU8(0)
	for _, word := range [4]uint32{1, 2, 3, 4} {
		cred.PutU32(word)
	}
	cred.PutString("deadbeef")
	cred.PutString("Knightly")

	body := protocol.NewWriter()
	body.PutU8(byte(OpcodeGameJoin))
	body.PutBytes(encryptBlock(t, priv, cred.Bytes()))

	join, err := parseJoin(body.Bytes(), key)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", join.SessionKey)
	assert.Equal(t, "Knightly", join.CharacterName)
}

func TestParseJoin_RejectsWrongOpcode(t *testing.T) {
	key, _ := newTestRSAKey(t)
	w := protocol.NewWriter()
	w.PutU8(0x99)
	_, err := parseJoin(w.Bytes(), key)
	require.Error(t, err)
}

func TestToCommand_MoveNorthProducesMoveCommand(t *testing.T) {
	w := protocol.NewWriter()
	w.PutU8(byte(OpcodeMoveNorth))
	cmd, err := toCommand(1, 2, w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, engine.CommandMove, cmd.Kind)
	payload, ok := cmd.Payload.(MovePayload)
	require.True(t, ok)
	assert.Equal(t, world.North, payload.Direction)
}

func TestToCommand_SayCarriesText(t *testing.T) {
	w := protocol.NewWriter()
	w.PutU8(byte(OpcodeSay))
	w.PutString("hello there")
	cmd, err := toCommand(1, 2, w.Bytes())
	require.NoError(t, err)
	payload, ok := cmd.Payload.(SayPayload)
	require.True(t, ok)
	assert.Equal(t, "hello there", payload.Text)
}

func TestToCommand_AttackCarriesTargetID(t *testing.T) {
	w := protocol.NewWriter()
	w.PutU8(byte(OpcodeAttack))
	w.PutU32(77)
	cmd, err := toCommand(1, 2, w.Bytes())
	require.NoError(t, err)
	payload, ok := cmd.Payload.(AttackPayload)
	require.True(t, ok)
	assert.Equal(t, uint32(77), payload.TargetID)
}

func TestToCommand_UnsupportedOpcodeReturnsError(t *testing.T) {
	w := protocol.NewWriter()
	w.PutU8(0xFE)
	_, err := toCommand(1, 2, w.Bytes())
	require.Error(t, err)
}

func TestCreatureIDFromCharacterID_IsStableAndDeterministic(t *testing.T) {
	a := creatureIDFromCharacterID("char-1")
	b := creatureIDFromCharacterID("char-1")
	c := creatureIDFromCharacterID("char-2")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
