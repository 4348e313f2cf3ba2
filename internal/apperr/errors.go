// Package apperr provides the unified error taxonomy for the realm server.
package apperr

import (
	"errors"
	"fmt"
)

// Kind groups errors into the families a caller needs to react to differently:
// protocol/codec errors drop the connection, asset errors are fatal at startup,
// world/combat errors become client-facing cancel packets, store errors become
// a generic retry hint, and auth errors map to login-server refusal codes.
type Kind string

const (
	KindProtocol Kind = "protocol"
	KindAsset    Kind = "asset"
	KindWorld    Kind = "world"
	KindCombat   Kind = "combat"
	KindAuth     Kind = "auth"
	KindStore    Kind = "store"
	KindScript   Kind = "script"
)

// Code is a unique, stable identifier for a specific error condition.
type Code string

const (
	// Protocol errors (§7 ProtocolError)
	CodeBufferUnderflow    Code = "PROTO_BUFFER_UNDERFLOW"
	CodeInvalidPacket      Code = "PROTO_INVALID_PACKET"
	CodePacketTooLarge     Code = "PROTO_PACKET_TOO_LARGE"
	CodeInvalidChecksum    Code = "PROTO_INVALID_CHECKSUM"
	CodeInvalidString      Code = "PROTO_INVALID_STRING"
	CodeUnsupportedVersion Code = "PROTO_UNSUPPORTED_VERSION"
	CodeCryptoFailure      Code = "PROTO_CRYPTO_FAILURE"

	// Asset errors (§7 AssetError)
	CodeInvalidFormat       Code = "ASSET_INVALID_FORMAT"
	CodeAssetUnsupportedVer Code = "ASSET_UNSUPPORTED_VERSION"
	CodeSpriteNotFound      Code = "ASSET_SPRITE_NOT_FOUND"
	CodeItemNotFound        Code = "ASSET_ITEM_NOT_FOUND"
	CodeDecompressionFailed Code = "ASSET_DECOMPRESSION_FAILED"
	CodeInvalidSpriteData   Code = "ASSET_INVALID_SPRITE_DATA"
	CodeAssetIO             Code = "ASSET_IO"

	// World errors (§7 WorldError)
	CodePositionOutOfBounds Code = "WORLD_POSITION_OUT_OF_BOUNDS"
	CodeTileNotWalkable     Code = "WORLD_TILE_NOT_WALKABLE"
	CodeTileFull            Code = "WORLD_TILE_FULL"
	CodeInventoryFull       Code = "WORLD_INVENTORY_FULL"
	CodeNoLineOfSight       Code = "WORLD_NO_LINE_OF_SIGHT"

	// Combat / spell refusal errors (§7 CombatError)
	CodeSpellDisabled     Code = "COMBAT_SPELL_DISABLED"
	CodeLevelTooLow       Code = "COMBAT_LEVEL_TOO_LOW"
	CodeMagicLevelTooLow  Code = "COMBAT_MAGIC_LEVEL_TOO_LOW"
	CodeWrongVocation     Code = "COMBAT_WRONG_VOCATION"
	CodePremiumRequired   Code = "COMBAT_PREMIUM_REQUIRED"
	CodeNotEnoughMana     Code = "COMBAT_NOT_ENOUGH_MANA"
	CodeNotEnoughSoul     Code = "COMBAT_NOT_ENOUGH_SOUL"
	CodeNeedTarget        Code = "COMBAT_NEED_TARGET"
	CodeOnCooldown        Code = "COMBAT_ON_COOLDOWN"

	// Auth errors (§7 AuthError)
	CodeInvalidCredentials Code = "AUTH_INVALID_CREDENTIALS"
	CodeAccountLocked      Code = "AUTH_ACCOUNT_LOCKED"
	CodeAccountBanned      Code = "AUTH_ACCOUNT_BANNED"
	CodeTwoFactorRequired  Code = "AUTH_TWO_FACTOR_REQUIRED"

	// Store errors (surfaced to clients as "server is unavailable; try again")
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	CodeStoreNotFound    Code = "STORE_NOT_FOUND"

	// Script errors (ScriptHost hook execution)
	CodeScriptNotFound Code = "SCRIPT_NOT_FOUND"
	CodeScriptInvalid  Code = "SCRIPT_INVALID"
	CodeScriptFailed   Code = "SCRIPT_FAILED"
	CodeScriptTimeout  Code = "SCRIPT_TIMEOUT"
)

// Error is a structured application error carrying a Kind, a stable Code and an
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail attaches diagnostic context to the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an Error with no wrapped cause.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates an Error around an existing cause.
func Wrap(kind Kind, code Code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// --- Protocol constructors -------------------------------------------------

func BufferUnderflow(needed, available int) *Error {
	return New(KindProtocol, CodeBufferUnderflow, "buffer underflow").
		WithDetail("needed", needed).WithDetail("available", available)
}

func InvalidPacket(reason string) *Error {
	return New(KindProtocol, CodeInvalidPacket, reason)
}

func PacketTooLarge(size, max int) *Error {
	return New(KindProtocol, CodePacketTooLarge, "packet exceeds maximum size").
		WithDetail("size", size).WithDetail("max", max)
}

func InvalidChecksum() *Error {
	return New(KindProtocol, CodeInvalidChecksum, "checksum mismatch")
}

func InvalidString(reason string) *Error {
	return New(KindProtocol, CodeInvalidString, reason)
}

func UnsupportedVersion(version int) *Error {
	return New(KindProtocol, CodeUnsupportedVersion, "unsupported protocol version").
		WithDetail("version", version)
}

func CryptoFailure(err error) *Error {
	return Wrap(KindProtocol, CodeCryptoFailure, "cryptographic operation failed", err)
}

// --- Asset constructors ------------------------------------------------------

func InvalidAssetFormat(reason string) *Error {
	return New(KindAsset, CodeInvalidFormat, reason)
}

func AssetUnsupportedVersion(version int) *Error {
	return New(KindAsset, CodeAssetUnsupportedVer, "unsupported asset version").
		WithDetail("version", version)
}

func SpriteNotFound(id uint32) *Error {
	return New(KindAsset, CodeSpriteNotFound, "sprite not found").WithDetail("id", id)
}

func ItemNotFound(id uint16) *Error {
	return New(KindAsset, CodeItemNotFound, "item not found").WithDetail("id", id)
}

func DecompressionFailed(err error) *Error {
	return Wrap(KindAsset, CodeDecompressionFailed, "decompression failed", err)
}

func InvalidSpriteData(reason string) *Error {
	return New(KindAsset, CodeInvalidSpriteData, reason)
}

func AssetIO(err error) *Error {
	return Wrap(KindAsset, CodeAssetIO, "asset I/O failed", err)
}

// --- World constructors -------------------------------------------------------

func PositionOutOfBounds() *Error {
	return New(KindWorld, CodePositionOutOfBounds, "position out of bounds")
}

func TileNotWalkable() *Error {
	return New(KindWorld, CodeTileNotWalkable, "tile is not walkable")
}

func TileFull() *Error {
	return New(KindWorld, CodeTileFull, "tile already holds the maximum number of things")
}

func InventoryFull() *Error {
	return New(KindWorld, CodeInventoryFull, "inventory is full")
}

func NoLineOfSight() *Error {
	return New(KindWorld, CodeNoLineOfSight, "no line of sight")
}

// --- Combat / spell refusal constructors --------------------------------------

func SpellDisabled() *Error  { return New(KindCombat, CodeSpellDisabled, "spell is disabled") }
func LevelTooLow() *Error    { return New(KindCombat, CodeLevelTooLow, "level too low") }
func MagicLevelTooLow() *Error {
	return New(KindCombat, CodeMagicLevelTooLow, "magic level too low")
}
func WrongVocation() *Error   { return New(KindCombat, CodeWrongVocation, "wrong vocation") }
func PremiumRequired() *Error { return New(KindCombat, CodePremiumRequired, "premium account required") }
func NotEnoughMana() *Error   { return New(KindCombat, CodeNotEnoughMana, "not enough mana") }
func NotEnoughSoul() *Error   { return New(KindCombat, CodeNotEnoughSoul, "not enough soul points") }
func NeedTarget() *Error      { return New(KindCombat, CodeNeedTarget, "a target is required") }
func OnCooldown() *Error      { return New(KindCombat, CodeOnCooldown, "spell is on cooldown") }

// --- Auth constructors ---------------------------------------------------------

func InvalidCredentials() *Error {
	return New(KindAuth, CodeInvalidCredentials, "invalid account credentials")
}
func AccountLocked() *Error { return New(KindAuth, CodeAccountLocked, "account is locked") }
func AccountBanned() *Error { return New(KindAuth, CodeAccountBanned, "account is banned") }
func TwoFactorRequired() *Error {
	return New(KindAuth, CodeTwoFactorRequired, "two-factor authentication required")
}

// --- Store constructors ---------------------------------------------------------

func StoreUnavailable(operation string, err error) *Error {
	return Wrap(KindStore, CodeStoreUnavailable, "server is unavailable; try again", err).
		WithDetail("operation", operation)
}

// --- Script constructors ---------------------------------------------------------

func ScriptNotFound(hook string) *Error {
	return New(KindScript, CodeScriptNotFound, "no script bound to hook").WithDetail("hook", hook)
}

func ScriptInvalid(err error) *Error {
	return Wrap(KindScript, CodeScriptInvalid, "script failed to compile", err)
}

func ScriptFailed(hook string, err error) *Error {
	return Wrap(KindScript, CodeScriptFailed, "script hook raised an error", err).WithDetail("hook", hook)
}

func ScriptTimeout(hook string) *Error {
	return New(KindScript, CodeScriptTimeout, "script hook exceeded its time budget").WithDetail("hook", hook)
}

// As extracts an *Error from err's chain, if present.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether err carries the given Code anywhere in its chain.
func Is(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code == code
}
