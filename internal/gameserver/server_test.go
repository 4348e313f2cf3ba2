package gameserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowot/realm/internal/engine"
	"github.com/shadowot/realm/internal/store"
	"github.com/shadowot/realm/internal/world"
)

type fakeAccountStore struct {
	sessions map[string]*store.Session
}

func (f *fakeAccountStore) FindByID(ctx context.Context, id string) (*store.Account, error) {
	return nil, store.ErrAccountNotFound
}
func (f *fakeAccountStore) FindByEmail(ctx context.Context, email string) (*store.Account, error) {
	return nil, store.ErrAccountNotFound
}
func (f *fakeAccountStore) VerifyCredentials(ctx context.Context, identifier, passwordHash string) (*store.Account, error) {
	return nil, store.ErrInvalidCredentials
}
func (f *fakeAccountStore) IsBanned(ctx context.Context, id string) (bool, error) { return false, nil }
func (f *fakeAccountStore) RecordLoginAttempt(ctx context.Context, id string, success bool, remoteAddr string) error {
	return nil
}
func (f *fakeAccountStore) CreateSession(ctx context.Context, accountID string) (*store.Session, error) {
	return nil, nil
}
func (f *fakeAccountStore) FindSession(ctx context.Context, key string) (*store.Session, error) {
	s, ok := f.sessions[key]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return s, nil
}
func (f *fakeAccountStore) InvalidateSession(ctx context.Context, key string) error { return nil }
func (f *fakeAccountStore) UpdatePremium(ctx context.Context, accountID string, until time.Time) error {
	return nil
}
func (f *fakeAccountStore) AddCoins(ctx context.Context, accountID string, delta int64) error {
	return nil
}

type fakeCharacterStore struct {
	byAccount map[string][]*store.CharacterRecord
}

func (f *fakeCharacterStore) FindByID(ctx context.Context, id string) (*store.CharacterRecord, error) {
	return nil, store.ErrCharacterNotFound
}
func (f *fakeCharacterStore) FindByAccount(ctx context.Context, accountID string) ([]*store.CharacterRecord, error) {
	return f.byAccount[accountID], nil
}
func (f *fakeCharacterStore) Create(ctx context.Context, rec *store.CharacterRecord) error { return nil }
func (f *fakeCharacterStore) Update(ctx context.Context, rec *store.CharacterRecord) error { return nil }
func (f *fakeCharacterStore) SoftDelete(ctx context.Context, id string, deletionDelay time.Duration) error {
	return nil
}
func (f *fakeCharacterStore) Restore(ctx context.Context, id string) error { return nil }

func newTestServer(accounts *fakeAccountStore, characters *fakeCharacterStore) *Server {
	eng := engine.New(engine.Options{Map: world.NewMap(10, 10), CommandQueue: make(engine.CommandQueue, 8)})
	return NewServer(":0", eng, accounts, characters, nil, Config{}, nil)
}

func TestAuthenticateJoin_SucceedsForKnownSessionAndCharacter(t *testing.T) {
	accounts := &fakeAccountStore{sessions: map[string]*store.Session{
		"sess-1": {Key: "sess-1", AccountID: "acc-1"},
	}}
	characters := &fakeCharacterStore{byAccount: map[string][]*store.CharacterRecord{
		"acc-1": {{ID: "char-1", AccountID: "acc-1", Name: "Knightly"}},
	}}
	s := newTestServer(accounts, characters)

	rec, ok := s.authenticateJoin(context.Background(), &JoinPayload{SessionKey: "sess-1", CharacterName: "Knightly"})
	require.True(t, ok)
	assert.Equal(t, "char-1", rec.ID)
}

func TestAuthenticateJoin_RejectsUnknownSession(t *testing.T) {
	s := newTestServer(&fakeAccountStore{sessions: map[string]*store.Session{}}, &fakeCharacterStore{})

	_, ok := s.authenticateJoin(context.Background(), &JoinPayload{SessionKey: "bogus", CharacterName: "Knightly"})
	assert.False(t, ok)
}

func TestAuthenticateJoin_RejectsCharacterNotOwnedByAccount(t *testing.T) {
	accounts := &fakeAccountStore{sessions: map[string]*store.Session{
		"sess-1": {Key: "sess-1", AccountID: "acc-1"},
	}}
	characters := &fakeCharacterStore{byAccount: map[string][]*store.CharacterRecord{
		"acc-1": {{ID: "char-1", AccountID: "acc-1", Name: "Knightly"}},
	}}
	s := newTestServer(accounts, characters)

	_, ok := s.authenticateJoin(context.Background(), &JoinPayload{SessionKey: "sess-1", CharacterName: "SomeoneElse"})
	assert.False(t, ok)
}

func TestCharacterRecordToCreature_CopiesVitalsAndPosition(t *testing.T) {
	rec := &store.CharacterRecord{
		ID:        "char-1",
		AccountID: "acc-1",
		Name:      "Knightly",
		Level:     50,
		Position:  world.Position{X: 100, Y: 100, Z: 7},
		Health:    150,
		MaxHealth: 150,
		Mana:      80,
		MaxMana:   80,
	}

	c := characterRecordToCreature(rec)

	assert.Equal(t, creatureIDFromCharacterID("char-1"), c.ID)
	assert.Equal(t, "Knightly", c.Name)
	assert.Equal(t, world.KindPlayer, c.Kind)
	assert.Equal(t, rec.Position, c.Position)
	assert.Equal(t, int32(150), c.Health)
	assert.Equal(t, uint32(50), c.Level)
}

func TestEncodeEvent_CombatDamageCarriesCreatureIDAndAmount(t *testing.T) {
	frame := encodeEvent(engine.GameEvent{Kind: engine.EventCombatDamage, CreatureID: 42, Detail: int32(17)})
	require.NotEmpty(t, frame)
	assert.Equal(t, byte(0x8C), frame[0])
}

func TestEncodeEvent_DeathCarriesCreatureID(t *testing.T) {
	frame := encodeEvent(engine.GameEvent{Kind: engine.EventDeath, CreatureID: 42})
	require.NotEmpty(t, frame)
	assert.Equal(t, byte(0x28), frame[0])
}

func TestEncodeEvent_UnknownKindIsDroppedToAZeroFrame(t *testing.T) {
	frame := encodeEvent(engine.GameEvent{Kind: engine.EventKind(255)})
	require.Len(t, frame, 1)
	assert.Equal(t, byte(0x00), frame[0])
}
