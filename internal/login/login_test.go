package login

import (
	"context"
	crand "crypto/rand"
	"crypto/rsa"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowot/realm/internal/apperr"
	"github.com/shadowot/realm/internal/protocol"
	"github.com/shadowot/realm/internal/protocol/crypto"
	"github.com/shadowot/realm/internal/store"
)

// buildLoginRequestBody encrypts a synthetic credentials block under priv
// and assembles a full login-request packet body (§4.14 steps 1-4).
func buildLoginRequestBody(t *testing.T, priv *rsa.PrivateKey, accountID, password string) []byte {
	t.Helper()

	cred := protocol.NewWriter()
	cred.PutU8(0)
	for _, word := range [4]uint32{0x11223344, 0x55667788, 0x99aabbcc, 0xddeeff00} {
		cred.PutU32(word)
	}
	cred.PutString(accountID)
	cred.PutString(password)
	cred.PutString("")
	cred.PutU8(1)
	plain := cred.Bytes()
	require.LessOrEqual(t, len(plain), 128)
	padded := make([]byte, 128)
	copy(padded, plain)

	plainInt := new(big.Int).SetBytes(padded)
	cipherInt := new(big.Int).Exp(plainInt, big.NewInt(int64(priv.PublicKey.E)), priv.N)
	cipherBlock := make([]byte, 128)
	cipherInt.FillBytes(cipherBlock)

	w := protocol.NewWriter()
	w.PutU8(byte(OpcodeLoginRequest))
	w.PutU16(0)      // OS
	w.PutU16(1098)   // protocol version
	w.PutU32(1098)   // client version
	w.PutU16(1)      // content revision
	for i := 0; i < 4; i++ {
		w.PutU32(0)
	}
	w.PutBytes(cipherBlock)
	return w.Bytes()
}

func newTestRSAKey(t *testing.T) (*crypto.RSAKey, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(crand.Reader, 1024)
	require.NoError(t, err)
	key, err := crypto.NewRSAKey(priv.N.Text(16), priv.D)
	require.NoError(t, err)
	return key, priv
}

func TestParseRequest_DecodesCredentialsBlock(t *testing.T) {
	key, priv := newTestRSAKey(t)
	body := buildLoginRequestBody(t, priv, "player@example.com", "hunter2")

	req, err := parseRequest(body, key)
	require.NoError(t, err)
	assert.Equal(t, "player@example.com", req.AccountID)
	assert.Equal(t, "hunter2", req.Password)
	assert.True(t, req.StayLoggedIn)
	assert.Equal(t, uint16(1098), req.ProtocolVersion)
}

func TestParseRequest_RejectsWrongOpcode(t *testing.T) {
	key, _ := newTestRSAKey(t)
	w := protocol.NewWriter()
	w.PutU8(0x02)
	_, err := parseRequest(w.Bytes(), key)
	require.Error(t, err)
}

type fakeAccountStore struct {
	accounts map[string]*store.Account
	sessions map[string]*store.Session
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: map[string]*store.Account{}, sessions: map[string]*store.Session{}}
}

func (f *fakeAccountStore) FindByID(ctx context.Context, id string) (*store.Account, error) {
	for _, a := range f.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, store.ErrAccountNotFound
}

func (f *fakeAccountStore) FindByEmail(ctx context.Context, email string) (*store.Account, error) {
	acc, ok := f.accounts[email]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return acc, nil
}

func (f *fakeAccountStore) VerifyCredentials(ctx context.Context, identifier, passwordHash string) (*store.Account, error) {
	acc, err := f.FindByEmail(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if acc.PasswordHash != passwordHash {
		return nil, store.ErrInvalidCredentials
	}
	return acc, nil
}

func (f *fakeAccountStore) IsBanned(ctx context.Context, id string) (bool, error) {
	acc, err := f.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return acc.Banned, nil
}

func (f *fakeAccountStore) RecordLoginAttempt(ctx context.Context, id string, success bool, remoteAddr string) error {
	return nil
}

func (f *fakeAccountStore) CreateSession(ctx context.Context, accountID string) (*store.Session, error) {
	sess := &store.Session{Key: "deadbeef", AccountID: accountID, CreatedAt: time.Now()}
	f.sessions[sess.Key] = sess
	return sess, nil
}

func (f *fakeAccountStore) FindSession(ctx context.Context, key string) (*store.Session, error) {
	sess, ok := f.sessions[key]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return sess, nil
}

func (f *fakeAccountStore) InvalidateSession(ctx context.Context, key string) error {
	delete(f.sessions, key)
	return nil
}

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
func (f *fakeCharacterStore) SoftDelete(ctx context.Context, id string, delay time.Duration) error {
	return nil
}
func (f *fakeCharacterStore) Restore(ctx context.Context, id string) error { return nil }

func TestAuthenticate_SucceedsAndReturnsCharacterList(t *testing.T) {
	accounts := newFakeAccountStore()
	accounts.accounts["player@example.com"] = &store.Account{
		ID: "acc-1", Email: "player@example.com", PasswordHash: hashPassword("hunter2"),
	}
	characters := &fakeCharacterStore{byAccount: map[string][]*store.CharacterRecord{
		"acc-1": {{ID: "char-1", AccountID: "acc-1", Name: "Knightly"}},
	}}

	srv := NewServer("127.0.0.1:0", accounts, characters, nil, []RealmTarget{{Name: "default", Host: "game.example.com", Port: 7172}}, Config{MOTD: "welcome"})

	resp, err := srv.authenticate(context.Background(), &Request{AccountID: "player@example.com", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", resp.SessionKey)
	require.Len(t, resp.Characters, 1)
	assert.Equal(t, "Knightly", resp.Characters[0].Name)
	assert.Equal(t, "game.example.com", resp.Characters[0].RealmHost)
}

func TestAuthenticate_RejectsWrongPassword(t *testing.T) {
	accounts := newFakeAccountStore()
	accounts.accounts["player@example.com"] = &store.Account{
		ID: "acc-1", Email: "player@example.com", PasswordHash: hashPassword("hunter2"),
	}
	characters := &fakeCharacterStore{byAccount: map[string][]*store.CharacterRecord{}}
	srv := NewServer("127.0.0.1:0", accounts, characters, nil, nil, Config{})

	_, err := srv.authenticate(context.Background(), &Request{AccountID: "player@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidCredentials))
}

func TestAuthenticate_RejectsBannedAccount(t *testing.T) {
	accounts := newFakeAccountStore()
	accounts.accounts["player@example.com"] = &store.Account{
		ID: "acc-1", Email: "player@example.com", PasswordHash: hashPassword("hunter2"), Banned: true,
	}
	characters := &fakeCharacterStore{byAccount: map[string][]*store.CharacterRecord{}}
	srv := NewServer("127.0.0.1:0", accounts, characters, nil, nil, Config{})

	_, err := srv.authenticate(context.Background(), &Request{AccountID: "player@example.com", Password: "hunter2"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeAccountBanned))
}

func TestVersionAllowed_EmptyWhitelistAllowsAll(t *testing.T) {
	srv := NewServer("127.0.0.1:0", nil, nil, nil, nil, Config{})
	assert.True(t, srv.versionAllowed(1098))
}

func TestVersionAllowed_RejectsUnlistedVersion(t *testing.T) {
	srv := NewServer("127.0.0.1:0", nil, nil, nil, nil, Config{AllowedVersions: []int{1098}})
	assert.False(t, srv.versionAllowed(740))
	assert.True(t, srv.versionAllowed(1098))
}
