// Package postgres is the reference PostgreSQL-backed implementation of the
// store.AccountStore and store.CharacterStore interfaces. Nothing in
// internal/engine or internal/gameserver imports this package directly; they
// depend only on the store interfaces, so this adapter can be swapped for
// another backend without touching the core (§6 External Interfaces).
package postgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/shadowot/realm/internal/store"
	"github.com/shadowot/realm/internal/world"
)

// DB is a shared-by-value-clone handle over a connection pool: copying DB
// copies only the *sqlx.DB pointer, so every clone shares the same
// interior-synchronized pool (§5 Shared resources).
type DB struct {
	conn *sqlx.DB
}

// Open connects to PostgreSQL and configures the pool per the configured
// connection limits.
func Open(dsn string, maxConnections int, connectTimeout time.Duration) (*DB, error) {
	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, store.Unavailable("connect", err)
	}
	conn.SetMaxOpenConns(maxConnections)
	conn.SetMaxIdleConns(maxConnections)
	conn.SetConnMaxLifetime(connectTimeout)
	return &DB{conn: conn}, nil
}

// Accounts returns an AccountStore implementation backed by this pool.
func (d *DB) Accounts() *AccountAdapter { return &AccountAdapter{db: d.conn} }

// Characters returns a CharacterStore implementation backed by this pool.
func (d *DB) Characters() *CharacterAdapter { return &CharacterAdapter{db: d.conn} }

// Migrate applies all pending migrations found under migrationsPath.
func Migrate(dsn, migrationsPath string) error {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsPath), "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func newSessionKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// AccountAdapter implements store.AccountStore against PostgreSQL.
type AccountAdapter struct {
	db *sqlx.DB
}

var _ store.AccountStore = (*AccountAdapter)(nil)

// accountRow mirrors the accounts table shape for sqlx struct scanning.
type accountRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Banned       bool      `db:"banned"`
	Locked       bool      `db:"locked"`
	TwoFactor    bool      `db:"two_factor"`
	Premium      bool      `db:"premium"`
	PremiumUntil time.Time `db:"premium_until"`
	Coins        int64     `db:"coins"`
}

func (r accountRow) toAccount() *store.Account {
	return &store.Account{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Banned:       r.Banned,
		Locked:       r.Locked,
		TwoFactor:    r.TwoFactor,
		Premium:      r.Premium,
		PremiumUntil: r.PremiumUntil,
		Coins:        r.Coins,
	}
}

func (a *AccountAdapter) FindByID(ctx context.Context, id string) (*store.Account, error) {
	var row accountRow
	err := a.db.GetContext(ctx, &row, `SELECT id, email, password_hash, banned, locked, two_factor, premium, premium_until, coins FROM accounts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrAccountNotFound
	}
	if err != nil {
		return nil, store.Unavailable("find_by_id", err)
	}
	return row.toAccount(), nil
}

func (a *AccountAdapter) FindByEmail(ctx context.Context, email string) (*store.Account, error) {
	var row accountRow
	err := a.db.GetContext(ctx, &row, `SELECT id, email, password_hash, banned, locked, two_factor, premium, premium_until, coins FROM accounts WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrAccountNotFound
	}
	if err != nil {
		return nil, store.Unavailable("find_by_email", err)
	}
	return row.toAccount(), nil
}

func (a *AccountAdapter) VerifyCredentials(ctx context.Context, identifier, passwordHash string) (*store.Account, error) {
	acc, err := a.FindByEmail(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if acc.PasswordHash != passwordHash {
		return nil, store.ErrInvalidCredentials
	}
	return acc, nil
}

func (a *AccountAdapter) IsBanned(ctx context.Context, id string) (bool, error) {
	acc, err := a.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return acc.Banned, nil
}

func (a *AccountAdapter) RecordLoginAttempt(ctx context.Context, id string, success bool, remoteAddr string) error {
	_, err := a.db.ExecContext(ctx, `INSERT INTO login_attempts (account_id, success, remote_addr, attempted_at) VALUES ($1,$2,$3,$4)`, id, success, remoteAddr, time.Now().UTC())
	if err != nil {
		return store.Unavailable("record_login_attempt", err)
	}
	return nil
}

func (a *AccountAdapter) CreateSession(ctx context.Context, accountID string) (*store.Session, error) {
	key, err := newSessionKey()
	if err != nil {
		return nil, err
	}
	sess := &store.Session{Key: key, AccountID: accountID, CreatedAt: time.Now().UTC()}
	_, err = a.db.ExecContext(ctx, `INSERT INTO sessions (session_key, account_id, created_at) VALUES ($1,$2,$3)`, sess.Key, sess.AccountID, sess.CreatedAt)
	if err != nil {
		return nil, store.Unavailable("create_session", err)
	}
	return sess, nil
}

func (a *AccountAdapter) FindSession(ctx context.Context, key string) (*store.Session, error) {
	var sess store.Session
	err := a.db.GetContext(ctx, &sess, `SELECT session_key AS key, account_id, created_at FROM sessions WHERE session_key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, store.Unavailable("find_session", err)
	}
	return &sess, nil
}

func (a *AccountAdapter) InvalidateSession(ctx context.Context, key string) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_key = $1`, key)
	if err != nil {
		return store.Unavailable("invalidate_session", err)
	}
	return nil
}

func (a *AccountAdapter) UpdatePremium(ctx context.Context, accountID string, until time.Time) error {
	_, err := a.db.ExecContext(ctx, `UPDATE accounts SET premium = TRUE, premium_until = $2 WHERE id = $1`, accountID, until)
	if err != nil {
		return store.Unavailable("update_premium", err)
	}
	return nil
}

func (a *AccountAdapter) AddCoins(ctx context.Context, accountID string, delta int64) error {
	_, err := a.db.ExecContext(ctx, `UPDATE accounts SET coins = coins + $2 WHERE id = $1`, accountID, delta)
	if err != nil {
		return store.Unavailable("add_coins", err)
	}
	return nil
}

// CharacterAdapter implements store.CharacterStore against PostgreSQL.
type CharacterAdapter struct {
	db *sqlx.DB
}

var _ store.CharacterStore = (*CharacterAdapter)(nil)

// characterRow mirrors the characters table shape for sqlx struct scanning.
type characterRow struct {
	ID             string     `db:"id"`
	AccountID      string     `db:"account_id"`
	Name           string     `db:"name"`
	Vocation       int        `db:"vocation"`
	Level          int        `db:"level"`
	PosX           uint16     `db:"pos_x"`
	PosY           uint16     `db:"pos_y"`
	PosZ           uint8      `db:"pos_z"`
	Health         int        `db:"health"`
	MaxHealth      int        `db:"max_health"`
	Mana           int        `db:"mana"`
	MaxMana        int        `db:"max_mana"`
	SoulPoints     int        `db:"soul_points"`
	StaminaMinutes int        `db:"stamina_minutes"`
	DeletedAt      *time.Time `db:"deleted_at"`
}

func (r characterRow) toRecord() *store.CharacterRecord {
	return &store.CharacterRecord{
		ID:             r.ID,
		AccountID:      r.AccountID,
		Name:           r.Name,
		Vocation:       r.Vocation,
		Level:          r.Level,
		Position:       world.Position{X: r.PosX, Y: r.PosY, Z: r.PosZ},
		Health:         r.Health,
		MaxHealth:      r.MaxHealth,
		Mana:           r.Mana,
		MaxMana:        r.MaxMana,
		SoulPoints:     r.SoulPoints,
		StaminaMinutes: r.StaminaMinutes,
		DeletedAt:      r.DeletedAt,
	}
}

func (c *CharacterAdapter) FindByID(ctx context.Context, id string) (*store.CharacterRecord, error) {
	var row characterRow
	err := c.db.GetContext(ctx, &row, `SELECT * FROM characters WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrCharacterNotFound
	}
	if err != nil {
		return nil, store.Unavailable("find_by_id", err)
	}
	return row.toRecord(), nil
}

func (c *CharacterAdapter) FindByAccount(ctx context.Context, accountID string) ([]*store.CharacterRecord, error) {
	var rows []characterRow
	if err := c.db.SelectContext(ctx, &rows, `SELECT * FROM characters WHERE account_id = $1 AND deleted_at IS NULL`, accountID); err != nil {
		return nil, store.Unavailable("find_by_account", err)
	}
	out := make([]*store.CharacterRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}

func (c *CharacterAdapter) Create(ctx context.Context, rec *store.CharacterRecord) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO characters (id, account_id, name, vocation, level, pos_x, pos_y, pos_z, health, max_health, mana, max_mana, soul_points, stamina_minutes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, rec.ID, rec.AccountID, rec.Name, rec.Vocation, rec.Level, rec.Position.X, rec.Position.Y, rec.Position.Z, rec.Health, rec.MaxHealth, rec.Mana, rec.MaxMana, rec.SoulPoints, rec.StaminaMinutes)
	if err != nil {
		return store.Unavailable("create", err)
	}
	return nil
}

func (c *CharacterAdapter) Update(ctx context.Context, rec *store.CharacterRecord) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE characters SET level=$2, pos_x=$3, pos_y=$4, pos_z=$5, health=$6, max_health=$7, mana=$8, max_mana=$9, soul_points=$10, stamina_minutes=$11
		WHERE id = $1
	`, rec.ID, rec.Level, rec.Position.X, rec.Position.Y, rec.Position.Z, rec.Health, rec.MaxHealth, rec.Mana, rec.MaxMana, rec.SoulPoints, rec.StaminaMinutes)
	if err != nil {
		return store.Unavailable("update", err)
	}
	return nil
}

func (c *CharacterAdapter) SoftDelete(ctx context.Context, id string, deletionDelay time.Duration) error {
	_, err := c.db.ExecContext(ctx, `UPDATE characters SET deleted_at = $2 WHERE id = $1`, id, time.Now().UTC().Add(deletionDelay))
	if err != nil {
		return store.Unavailable("soft_delete", err)
	}
	return nil
}

func (c *CharacterAdapter) Restore(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `UPDATE characters SET deleted_at = NULL WHERE id = $1`, id)
	if err != nil {
		return store.Unavailable("restore", err)
	}
	return nil
}
