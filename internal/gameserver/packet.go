package gameserver

import (
	"github.com/shadowot/realm/internal/apperr"
	"github.com/shadowot/realm/internal/engine"
	"github.com/shadowot/realm/internal/protocol"
	"github.com/shadowot/realm/internal/protocol/crypto"
	"github.com/shadowot/realm/internal/world"
)

// Opcode identifies a game-connection packet type (§6 core codes).
type Opcode byte

const (
	OpcodeGameJoin     Opcode = 0x0A
	OpcodeLogout       Opcode = 0x14
	OpcodeMoveNorth    Opcode = 0x64
	OpcodeMoveEast     Opcode = 0x65
	OpcodeMoveSouth    Opcode = 0x66
	OpcodeMoveWest     Opcode = 0x67
	OpcodeMoveThing    Opcode = 0x78
	OpcodeTurnNorth    Opcode = 0x6F
	OpcodeTurnEast     Opcode = 0x70
	OpcodeTurnSouth    Opcode = 0x71
	OpcodeTurnWest     Opcode = 0x72
	OpcodeUseItem      Opcode = 0x82
	OpcodeUseItemWith  Opcode = 0x83
	OpcodeUseOnCreature Opcode = 0x84
	OpcodeSay          Opcode = 0x96
	OpcodeSetFightModes Opcode = 0xA0
	OpcodeAttack       Opcode = 0xA1
	OpcodeFollow       Opcode = 0xA2
)

var moveDirection = map[Opcode]world.Direction{
	OpcodeMoveNorth: world.North,
	OpcodeMoveEast:  world.East,
	OpcodeMoveSouth: world.South,
	OpcodeMoveWest:  world.West,
}

var turnDirection = map[Opcode]world.Direction{
	OpcodeTurnNorth: world.North,
	OpcodeTurnEast:  world.East,
	OpcodeTurnSouth: world.South,
	OpcodeTurnWest:  world.West,
}

// JoinPayload is the game-join packet body (§4.15 Awaiting state): like the
// login handshake, the connection's XTEA key arrives RSA-wrapped alongside
// the session key and chosen character name.
type JoinPayload struct {
	XTEAKey       crypto.XTEAKey
	SessionKey    string
	CharacterName string
}

// MovePayload carries the direction for a movement command.
type MovePayload struct {
	Direction world.Direction
}

// TurnPayload carries the direction for a turn command.
type TurnPayload struct {
	Direction world.Direction
}

// SayPayload carries a chat message.
type SayPayload struct {
	Text string
}

// AttackPayload carries the creature ID to set as the current attack target.
type AttackPayload struct {
	TargetID uint32
}

// FollowPayload carries the creature ID to follow.
type FollowPayload struct {
	TargetID uint32
}

// parseJoin reads the game-join packet: an opcode byte followed by a
// 128-byte RSA block carrying the connection's XTEA key, session key and
// chosen character name (§4.15 Awaiting state).
func parseJoin(body []byte, rsaKey *crypto.RSAKey) (*JoinPayload, error) {
	r := protocol.NewReader(body)
	opcode, err := r.U8()
	if err != nil {
		return nil, err
	}
	if Opcode(opcode) != OpcodeGameJoin {
		return nil, apperr.InvalidPacket("expected game join opcode")
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

	pr := protocol.NewReader(plain[1:])
	var words [4]uint32
	for i := range words {
		if words[i], err = pr.U32(); err != nil {
			return nil, err
		}
	}
	key, err := pr.String()
	if err != nil {
		return nil, err
	}
	name, err := pr.String()
	if err != nil {
		return nil, err
	}
	return &JoinPayload{XTEAKey: crypto.XTEAKeyFromBytes(words), SessionKey: key, CharacterName: name}, nil
}

// toCommand translates one decoded client packet into an engine.Command,
// table-driven by opcode (§4.15 InWorld dispatch loop, §6).
func toCommand(connectionID uint64, creatureID uint32, body []byte) (engine.Command, error) {
	r := protocol.NewReader(body)
	opByte, err := r.U8()
	if err != nil {
		return engine.Command{}, err
	}
	op := Opcode(opByte)

	base := engine.Command{ConnectionID: connectionID, CreatureID: creatureID}

	switch op {
	case OpcodeMoveNorth, OpcodeMoveEast, OpcodeMoveSouth, OpcodeMoveWest:
		base.Kind = engine.CommandMove
		base.Payload = MovePayload{Direction: moveDirection[op]}
	case OpcodeTurnNorth, OpcodeTurnEast, OpcodeTurnSouth, OpcodeTurnWest:
		base.Kind = engine.CommandTurn
		base.Payload = TurnPayload{Direction: turnDirection[op]}
	case OpcodeSay:
		text, err := r.String()
		if err != nil {
			return engine.Command{}, err
		}
		base.Kind = engine.CommandSay
		base.Payload = SayPayload{Text: text}
	case OpcodeAttack:
		targetID, err := r.U32()
		if err != nil {
			return engine.Command{}, err
		}
		base.Kind = engine.CommandAttack
		base.Payload = AttackPayload{TargetID: targetID}
	case OpcodeFollow:
		targetID, err := r.U32()
		if err != nil {
			return engine.Command{}, err
		}
		base.Kind = engine.CommandFollow
		base.Payload = FollowPayload{TargetID: targetID}
	case OpcodeLogout:
		base.Kind = engine.CommandLogout
	default:
		return engine.Command{}, apperr.InvalidPacket("unsupported game opcode")
	}

	return base, nil
}
