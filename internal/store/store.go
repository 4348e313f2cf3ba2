// Package store declares the persistence interfaces the engine depends on.
// The engine never talks to a database directly: it consumes AccountStore,
// CharacterStore, and ItemCatalog handles that are shared-by-value-clone,
// interior-synchronized connection pools (§5, §6 External Interfaces).
package store

import (
	"context"
	"time"

	"github.com/shadowot/realm/internal/apperr"
	"github.com/shadowot/realm/internal/world"
)

// Sentinel errors returned by store implementations for not-found cases; all
// carry apperr.KindStore so callers can branch on kind without knowing the
// backend.
var (
	ErrAccountNotFound    = apperr.New(apperr.KindStore, apperr.CodeStoreNotFound, "account not found")
	ErrSessionNotFound    = apperr.New(apperr.KindStore, apperr.CodeStoreNotFound, "session not found")
	ErrCharacterNotFound  = apperr.New(apperr.KindStore, apperr.CodeStoreNotFound, "character not found")
	ErrInvalidCredentials = apperr.InvalidCredentials()
)

// Unavailable wraps a backend failure (connection, query, timeout) for an
// operation name, used by concrete store implementations.
func Unavailable(operation string, err error) *apperr.Error {
	return apperr.StoreUnavailable(operation, err)
}

// Account is one login account record.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Banned       bool
	Locked       bool
	TwoFactor    bool
	Premium      bool
	PremiumUntil time.Time
	Coins        int64
}

// Session is a server-issued login session keyed by a random session key.
type Session struct {
	Key       string
	AccountID string
	CreatedAt time.Time
}

// CharacterRecord is one persisted character, independent of any live
// in-engine Creature.
type CharacterRecord struct {
	ID             string
	AccountID      string
	Name           string
	Vocation       int
	Level          int
	Position       world.Position
	Health         int
	MaxHealth      int
	Mana           int
	MaxMana        int
	SoulPoints     int
	StaminaMinutes int
	DeletedAt      *time.Time
}

// AccountStore is the account/session/billing persistence boundary (§6).
type AccountStore interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	VerifyCredentials(ctx context.Context, identifier, passwordHash string) (*Account, error)
	IsBanned(ctx context.Context, id string) (bool, error)
	RecordLoginAttempt(ctx context.Context, id string, success bool, remoteAddr string) error
	CreateSession(ctx context.Context, accountID string) (*Session, error)
	FindSession(ctx context.Context, key string) (*Session, error)
	InvalidateSession(ctx context.Context, key string) error
	UpdatePremium(ctx context.Context, accountID string, until time.Time) error
	AddCoins(ctx context.Context, accountID string, delta int64) error
}

// CharacterStore is the character persistence boundary (§6).
type CharacterStore interface {
	FindByID(ctx context.Context, id string) (*CharacterRecord, error)
	FindByAccount(ctx context.Context, accountID string) ([]*CharacterRecord, error)
	Create(ctx context.Context, rec *CharacterRecord) error
	Update(ctx context.Context, rec *CharacterRecord) error
	SoftDelete(ctx context.Context, id string, deletionDelay time.Duration) error
	Restore(ctx context.Context, id string) error
}

// ItemCatalog is the read-only item type lookup boundary (§6), satisfied by
// the parsed OTB catalog.
type ItemCatalog interface {
	ByServerID(id uint16) (*world.ItemType, error)
	ByClientID(clientID uint16) (*world.ItemType, error)
}
