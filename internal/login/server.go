// Package login implements the login TCP acceptor: credential verification,
// RSA/XTEA handshake and the character-list handoff to a game realm (§4.14).
package login

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/shadowot/realm/internal/apperr"
	"github.com/shadowot/realm/internal/obs/log"
	"github.com/shadowot/realm/internal/obs/metrics"
	"github.com/shadowot/realm/internal/protocol"
	"github.com/shadowot/realm/internal/protocol/crypto"
	"github.com/shadowot/realm/internal/store"
)

// RealmTarget is a realm a character belongs to, and the host/port the
// client reconnects to for gameplay (§4.14: "the client reconnects to the
// returned realm host/port").
type RealmTarget struct {
	Name string
	Host string
	Port int
}

// Config controls the login acceptor's handshake behavior.
type Config struct {
	ServerName      string
	MOTD            string
	AllowedVersions []int
	ReadTimeout     time.Duration
}

// Server accepts login connections, verifies credentials and answers with a
// character list pointing at a realm (§4.14).
type Server struct {
	addr string

	accounts   store.AccountStore
	characters store.CharacterStore
	rsaKey     *crypto.RSAKey
	realms     []RealmTarget
	cfg        Config
	logger     *log.Logger
	metrics    *metrics.Metrics

	mu       sync.Mutex
	listener net.Listener
	running  bool

	limiter       *ipRateLimiter
	sessionSigner *SessionTokenSigner
}

// Option customizes a Server before it starts listening.
type Option func(*Server)

// WithLogger attaches a structured logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithReadTimeout bounds how long the acceptor waits for a complete login
// frame before dropping the connection.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.cfg.ReadTimeout = d }
}

// WithRateLimit overrides the per-IP login attempt budget (see
// DefaultRateLimitConfig).
func WithRateLimit(cfg RateLimitConfig) Option {
	return func(s *Server) { s.limiter = newIPRateLimiter(cfg) }
}

// WithSessionJWTSecret enables signing a SessionClaims JWT alongside each
// issued session key. Leaving this unset means Response.SessionJWT is
// always "".
func WithSessionJWTSecret(secret string, ttl time.Duration) Option {
	return func(s *Server) { s.sessionSigner = NewSessionTokenSigner(secret, ttl) }
}

// NewServer constructs a login Server bound to addr.
func NewServer(addr string, accounts store.AccountStore, characters store.CharacterStore, rsaKey *crypto.RSAKey, realms []RealmTarget, cfg Config, opts ...Option) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	s := &Server{
		addr:       addr,
		accounts:   accounts,
		characters: characters,
		rsaKey:     rsaKey,
		realms:     realms,
		cfg:        cfg,
		limiter:    newIPRateLimiter(DefaultRateLimitConfig()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve listens on the configured address and handles connections until ctx
// is canceled. It blocks until the listener closes.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("login: listen %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.running = true
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			if s.logger != nil {
				s.logger.WithError(err).Warn("login accept failed")
			}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Addr returns the bound listener address, valid once Serve has started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if s.limiter != nil && !s.limiter.Allow(conn.RemoteAddr()) {
		s.replyError(conn, protocol.NewCodec(true), "too many login attempts, please wait before retrying")
		return
	}

	deadline := time.Now().Add(s.cfg.ReadTimeout)
	_ = conn.SetReadDeadline(deadline)

	codec := protocol.NewCodec(true)
	body, err := codec.ReadFrame(conn)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Debug("login: failed to read request frame")
		}
		return
	}

	req, err := parseRequest(body, s.rsaKey)
	if err != nil {
		s.replyError(conn, codec, "malformed login request")
		return
	}

	if !s.versionAllowed(int(req.ProtocolVersion)) {
		s.replyError(conn, codec, "your client version is not supported by this server")
		return
	}

	resp, err := s.authenticate(ctx, req)
	if err != nil {
		s.replyError(conn, codec, loginErrorMessage(err))
		return
	}

	w := protocol.NewWriter()
	writeMOTD(w, s.cfg.MOTD)
	writeCharacterList(w, resp)
	if err := codec.WriteFrame(conn, w.Bytes()); err != nil && s.logger != nil {
		s.logger.WithError(err).Debug("login: failed to write response frame")
	}
}

func (s *Server) versionAllowed(version int) bool {
	if len(s.cfg.AllowedVersions) == 0 {
		return true
	}
	for _, v := range s.cfg.AllowedVersions {
		if v == version {
			return true
		}
	}
	return false
}

// authenticate runs §4.14 steps 6-7: verify credentials, enforce ban/lock/2FA,
// then build the character-list response with a fresh session key.
func (s *Server) authenticate(ctx context.Context, req *Request) (*Response, error) {
	acc, err := s.accounts.VerifyCredentials(ctx, req.AccountID, hashPassword(req.Password))
	if err != nil {
		return nil, err
	}
	if acc.Banned {
		return nil, apperr.AccountBanned()
	}
	if acc.Locked {
		return nil, apperr.AccountLocked()
	}
	if acc.TwoFactor && req.AuthToken == "" {
		return nil, apperr.TwoFactorRequired()
	}

	_ = s.accounts.RecordLoginAttempt(ctx, acc.ID, true, "")

	session, err := s.accounts.CreateSession(ctx, acc.ID)
	if err != nil {
		return nil, err
	}

	records, err := s.characters.FindByAccount(ctx, acc.ID)
	if err != nil {
		return nil, err
	}

	premiumDays := 0
	if acc.Premium && acc.PremiumUntil.After(time.Now()) {
		premiumDays = int(time.Until(acc.PremiumUntil).Hours() / 24)
	}

	realm := s.defaultRealm()
	characters := make([]CharacterSummary, 0, len(records))
	for _, rec := range records {
		if rec.DeletedAt != nil {
			continue
		}
		characters = append(characters, CharacterSummary{
			Name:        rec.Name,
			RealmHost:   realm.Host,
			RealmPort:   realm.Port,
			PremiumDays: premiumDays,
		})
	}

	sessionJWT, err := s.sessionSigner.SignSession(acc.ID)
	if err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("login: failed to sign session jwt")
	}

	return &Response{
		MOTD:         s.cfg.MOTD,
		SessionKey:   session.Key,
		SessionJWT:   sessionJWT,
		Characters:   characters,
		PremiumUntil: acc.PremiumUntil.Unix(),
	}, nil
}

func (s *Server) defaultRealm() RealmTarget {
	if len(s.realms) == 0 {
		return RealmTarget{Name: "default", Host: "127.0.0.1", Port: 7172}
	}
	return s.realms[0]
}

func (s *Server) replyError(conn net.Conn, codec *protocol.Codec, message string) {
	w := protocol.NewWriter()
	writeError(w, message)
	if err := codec.WriteFrame(conn, w.Bytes()); err != nil && s.logger != nil {
		s.logger.WithError(err).Debug("login: failed to write error frame")
	}
}

func loginErrorMessage(err error) string {
	if appErr, ok := apperr.As(err); ok {
		switch appErr.Code {
		case apperr.CodeAccountBanned:
			return "your account has been banned"
		case apperr.CodeAccountLocked:
			return "your account is locked"
		case apperr.CodeTwoFactorRequired:
			return "two-factor authentication is required"
		case apperr.CodeInvalidCredentials:
			return "account name or password is invalid"
		}
	}
	if errors.Is(err, store.ErrAccountNotFound) {
		return "account name or password is invalid"
	}
	return "login failed, please try again"
}
