// Package gameserver implements the game TCP acceptor: the per-connection
// Awaiting/InWorld/LoggingOut state machine that turns client packets into
// engine commands (§4.15).
package gameserver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/shadowot/realm/internal/engine"
	"github.com/shadowot/realm/internal/netio"
	"github.com/shadowot/realm/internal/obs/log"
	"github.com/shadowot/realm/internal/protocol"
	"github.com/shadowot/realm/internal/protocol/crypto"
	"github.com/shadowot/realm/internal/store"
	"github.com/shadowot/realm/internal/world"
)

// connState is one connection's position in the §4.15 state machine.
type connState int

const (
	stateAwaiting connState = iota
	stateInWorld
	stateLoggingOut
)

// Config controls acceptor-wide behavior.
type Config struct {
	OutboundQueueSize int
	HighWatermark     int
	JoinTimeout       time.Duration
}

// Server accepts game connections and drives each through the connection
// state machine, placing decoded commands on the engine's command queue.
type Server struct {
	addr string

	engine     *engine.Engine
	accounts   store.AccountStore
	characters store.CharacterStore
	rsaKey     *crypto.RSAKey
	cfg        Config
	logger     *log.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer constructs a game Server bound to addr.
func NewServer(addr string, eng *engine.Engine, accounts store.AccountStore, characters store.CharacterStore, rsaKey *crypto.RSAKey, cfg Config, logger *log.Logger) *Server {
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 10 * time.Second
	}
	return &Server{addr: addr, engine: eng, accounts: accounts, characters: characters, rsaKey: rsaKey, cfg: cfg, logger: logger}
}

// Serve listens on the configured address until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("gameserver: listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = ln
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
				s.logger.WithError(err).Warn("gameserver accept failed")
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

func (s *Server) handleConn(ctx context.Context, rawConn net.Conn) {
	codec := protocol.NewCodec(true)
	conn := netio.NewConnection(rawConn, codec, s.cfg.OutboundQueueSize, s.cfg.HighWatermark)
	defer conn.Close()

	state := stateAwaiting
	var creatureID uint32
	connID := connectionID(rawConn)

	_ = rawConn.SetReadDeadline(time.Now().Add(s.cfg.JoinTimeout))
	body, err := conn.ReadFrame()
	if err != nil {
		return
	}
	join, err := parseJoin(body, s.rsaKey)
	if err != nil {
		return
	}

	rec, ok := s.authenticateJoin(ctx, join)
	if !ok {
		return
	}
	conn.Codec().InstallKey(join.XTEAKey)

	creature := characterRecordToCreature(rec)
	s.engine.AddCreature(creature)
	creatureID = creature.ID
	state = stateInWorld

	writeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := s.engine.Subscribe(32)
	go s.pumpEvents(writeCtx, conn, creatureID, events)
	go conn.WritePump(writeCtx)

	_ = rawConn.SetReadDeadline(time.Time{})
	for state == stateInWorld {
		body, err := conn.ReadFrame()
		if err != nil || conn.Dead() {
			state = stateLoggingOut
			break
		}
		cmd, err := toCommand(connID, creatureID, body)
		if err != nil {
			continue
		}
		cmd.Ctx = ctx
		select {
		case s.commandQueue() <- cmd:
		default:
			// command queue full: drop rather than block the read loop,
			// matching the suspension-point rule that network tasks never
			// stall world mutation.
		}
		if cmd.Kind == engine.CommandLogout {
			state = stateLoggingOut
			return
		}
	}

	select {
	case s.commandQueue() <- engine.Command{ConnectionID: connID, CreatureID: creatureID, Kind: engine.CommandLogout, Ctx: ctx}:
	default:
	}
}

func (s *Server) commandQueue() engine.CommandQueue {
	return s.engine.Commands()
}

func (s *Server) pumpEvents(ctx context.Context, conn *netio.Connection, creatureID uint32, events <-chan engine.GameEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.CreatureID != creatureID {
				continue
			}
			conn.Send(encodeEvent(ev))
		}
	}
}

// authenticateJoin verifies the session key against AccountStore and loads
// the named character (§4.15 Awaiting: "verifies via AccountStore, attaches
// to the character, installs XTEA key").
func (s *Server) authenticateJoin(ctx context.Context, join *JoinPayload) (*store.CharacterRecord, bool) {
	if s.accounts == nil || s.characters == nil {
		return nil, false
	}
	session, err := s.accounts.FindSession(ctx, join.SessionKey)
	if err != nil {
		return nil, false
	}
	records, err := s.characters.FindByAccount(ctx, session.AccountID)
	if err != nil {
		return nil, false
	}
	for _, rec := range records {
		if rec.Name == join.CharacterName {
			return rec, true
		}
	}
	return nil, false
}

func connectionID(conn net.Conn) uint64 {
	addr := conn.RemoteAddr().String()
	var h uint64 = 14695981039346656037
	for i := 0; i < len(addr); i++ {
		h ^= uint64(addr[i])
		h *= 1099511628211
	}
	return h
}

func characterRecordToCreature(rec *store.CharacterRecord) *world.Creature {
	return &world.Creature{
		ID:        creatureIDFromCharacterID(rec.ID),
		Name:      rec.Name,
		Kind:      world.KindPlayer,
		Position:  rec.Position,
		Health:    int32(rec.Health),
		MaxHealth: int32(rec.MaxHealth),
		Mana:      int32(rec.Mana),
		MaxMana:   int32(rec.MaxMana),
		Level:     uint32(rec.Level),
		Vocation:  uint8(rec.Vocation),
		SoulPoints: int32(rec.SoulPoints),
		StaminaMinutes: rec.StaminaMinutes,
	}
}

func creatureIDFromCharacterID(id string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(id); i++ {
		h ^= uint32(id[i])
		h *= 16777619
	}
	return h
}

// encodeEvent renders a GameEvent into an outbound wire frame. Only a small
// subset of server-to-client packets (§6) are implemented; any other event
// kind is encoded as a single 0x00 byte.
func encodeEvent(ev engine.GameEvent) []byte {
	w := protocol.NewWriter()
	switch ev.Kind {
	case engine.EventCombatDamage:
		w.PutU8(0x8C) // send-creature-health family
		w.PutU32(ev.CreatureID)
		if dmg, ok := ev.Detail.(int32); ok {
			w.PutU32(uint32(dmg))
		}
	case engine.EventDeath:
		w.PutU8(0x28) // send-cancel-walk family reused for a death notice
		w.PutU32(ev.CreatureID)
	default:
		w.PutU8(0x00)
	}
	return w.Bytes()
}
