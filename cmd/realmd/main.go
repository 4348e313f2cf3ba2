// Command realmd runs one realm server process: a login acceptor, one game
// acceptor per configured realm, the authoritative tick-loop engine, and an
// admin HTTP surface exposing health and Prometheus metrics.
package main

import (
	"context"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shadowot/realm/internal/adminauth"
	"github.com/shadowot/realm/internal/apperr"
	"github.com/shadowot/realm/internal/assets/otb"
	"github.com/shadowot/realm/internal/assets/otbm"
	"github.com/shadowot/realm/internal/config"
	"github.com/shadowot/realm/internal/engine"
	"github.com/shadowot/realm/internal/gameserver"
	"github.com/shadowot/realm/internal/login"
	"github.com/shadowot/realm/internal/obs/log"
	"github.com/shadowot/realm/internal/obs/metrics"
	"github.com/shadowot/realm/internal/protocol/crypto"
	"github.com/shadowot/realm/internal/store/postgres"
	"github.com/shadowot/realm/internal/world"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	logger := log.New("realmd", cfg.Logging.Level, cfg.Logging.Format)

	rsaKey, err := loadRSAKey(cfg.Crypto)
	if err != nil {
		logger.WithError(err).Fatal("load rsa key")
	}

	catalog, err := loadItemCatalog(cfg.Assets.ItemsOTBPath)
	if err != nil {
		logger.WithError(err).Fatal("load item catalog")
	}

	worldMap, err := loadWorldMap(cfg.Assets.MapOTBMPath, catalog)
	if err != nil {
		logger.WithError(err).Fatal("load world map")
	}

	if err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		logger.WithError(err).Fatal("run database migrations")
	}

	db, err := postgres.Open(cfg.Database.URL, cfg.Database.MaxConnections, cfg.Database.ConnectionTimeout)
	if err != nil {
		logger.WithError(err).Fatal("connect to database")
	}

	metricsSink := metrics.New(cfg.Server.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	realm := firstRealm(cfg)
	eng := buildEngine(cfg, realm, worldMap, db, metricsSink, logger)
	go eng.Run(ctx)

	realmTargets := buildRealmTargets(cfg)

	loginSrv := login.NewServer(
		cfg.Network.LoginHost+":"+portString(cfg.Network.LoginPort),
		db.Accounts(), db.Characters(), rsaKey, realmTargets,
		login.Config{ServerName: cfg.Server.Name, MOTD: cfg.Server.MOTD},
		login.WithLogger(logger), login.WithMetrics(metricsSink),
		login.WithSessionJWTSecret(cfg.Crypto.SessionJWTSecret, 30*time.Minute),
	)

	gameSrv := gameserver.NewServer(
		cfg.Network.GameHost+":"+portString(cfg.Network.GamePortStart),
		eng, db.Accounts(), db.Characters(), rsaKey,
		gameserver.Config{OutboundQueueSize: 256, HighWatermark: 1024, JoinTimeout: 10 * time.Second},
		logger,
	)

	errCh := make(chan error, 2)
	go func() { errCh <- loginSrv.Serve(ctx) }()
	go func() { errCh <- gameSrv.Serve(ctx) }()

	adminSrv := buildAdminServer(cfg.Network.AdminAddr, cfg.Admin, metricsSink)
	go func() {
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Warn("admin server exited")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Warn("listener exited")
		}
	}

	cancel()
	eng.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = adminSrv.Shutdown(shutdownCtx)
}

func buildEngine(cfg *config.Config, realm config.RealmConfig, worldMap *world.Map, db *postgres.DB, metricsSink *metrics.Metrics, logger *log.Logger) *engine.Engine {
	eng := engine.New(engine.Options{
		RealmName:      realm.Name,
		Map:            worldMap,
		CommandQueue:   engine.NewCommandQueue(1024),
		Events:         engine.NewEventBroadcaster(),
		Metrics:        metricsSink,
		Logger:         logger,
		Characters:     db.Characters(),
		CommandHandler: gameserver.DefaultCommandHandler,
		AIAdvancer:     gameserver.DefaultAIAdvancer,
		Walker:         mapWalkableAdapter{m: worldMap},
		RandomInDisc:   randomOffsetInDisc,
		SaveInterval:   cfg.SaveInterval(),
	})
	return eng
}

func buildRealmTargets(cfg *config.Config) []login.RealmTarget {
	targets := make([]login.RealmTarget, 0, len(cfg.Realms))
	for i, r := range cfg.Realms {
		targets = append(targets, login.RealmTarget{
			Name: r.Name,
			Host: cfg.Network.GameHost,
			Port: cfg.Network.GamePortStart + i,
		})
	}
	return targets
}

func firstRealm(cfg *config.Config) config.RealmConfig {
	if len(cfg.Realms) == 0 {
		return config.RealmConfig{Name: "default", MaxPlayers: 1000}
	}
	return cfg.Realms[0]
}

func buildAdminServer(addr string, cfg config.AdminConfig, metricsSink *metrics.Metrics) *http.Server {
	router := mux.NewRouter()
	started := time.Now()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	var issuer *adminauth.TokenIssuer
	if cfg.JWTSecret != "" {
		issuer = adminauth.NewTokenIssuer(cfg.JWTSecret, 0)
	}
	metricsHandler := adminauth.Middleware(issuer)(promhttp.Handler())
	router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			metricsSink.UpdateUptime(started)
		}
	}()

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func loadRSAKey(cfg config.CryptoConfig) (*crypto.RSAKey, error) {
	if cfg.PrivateExponentHex == "" {
		return nil, apperr.New(apperr.KindAsset, apperr.CodeInvalidFormat, "RSA_PRIVATE_EXPONENT_HEX must be configured")
	}
	exponent, ok := new(big.Int).SetString(cfg.PrivateExponentHex, 16)
	if !ok {
		return nil, apperr.New(apperr.KindAsset, apperr.CodeInvalidFormat, "malformed rsa private exponent")
	}
	return crypto.NewRSAKey(cfg.ModulusHex, exponent)
}

func loadItemCatalog(path string) (*otb.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.AssetIO(err)
	}
	return otb.Load(data)
}

func loadWorldMap(path string, catalog *otb.Catalog) (*world.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.AssetIO(err)
	}
	doc, err := otbm.Load(data)
	if err != nil {
		return nil, err
	}
	return buildWorldMap(doc, catalog)
}

func portString(port int) string {
	return strconv.Itoa(port)
}

func fatal(format string, args ...any) {
	logger := log.New("realmd", "info", "text")
	logger.Fatalf(format, args...)
}
