// Package config loads realm server configuration from a YAML file with
// environment variable overrides, following the teacher's layered load order:
// defaults -> file -> env.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shadowot/realm/internal/protocol/crypto"
)

// ServerConfig holds the server name and MOTD shown to login clients and the
// full-save cadence (§6). Listener bindings live in NetworkConfig.
type ServerConfig struct {
	Name            string `yaml:"name" env:"SERVER_NAME"`
	MOTD            string `yaml:"motd" env:"SERVER_MOTD"`
	SaveIntervalMin int    `yaml:"save_interval_minutes" env:"SERVER_SAVE_INTERVAL_MINUTES"`
}

// NetworkConfig controls listener bindings.
type NetworkConfig struct {
	LoginHost     string `yaml:"login_host" env:"NETWORK_LOGIN_HOST"`
	LoginPort     int    `yaml:"login_port" env:"NETWORK_LOGIN_PORT"`
	GameHost      string `yaml:"game_host" env:"NETWORK_GAME_HOST"`
	GamePortStart int    `yaml:"game_port_start" env:"NETWORK_GAME_PORT_START"`
	AdminAddr     string `yaml:"admin_addr" env:"NETWORK_ADMIN_ADDR"`
}

// RealmConfig describes a single game world instance (§6 realms.enabled[]).
type RealmConfig struct {
	Name       string `yaml:"name"`
	MaxPlayers int    `yaml:"max_players"`
}

// AssetsConfig points at the item/map data files loaded at startup (§6).
type AssetsConfig struct {
	ItemsOTBPath string `yaml:"items_otb_path" env:"ASSETS_ITEMS_OTB_PATH"`
	MapOTBMPath  string `yaml:"map_otbm_path" env:"ASSETS_MAP_OTBM_PATH"`
}

// DatabaseConfig controls the store connection pool.
type DatabaseConfig struct {
	URL               string        `yaml:"url" env:"DATABASE_URL"`
	MaxConnections    int           `yaml:"max_connections" env:"DATABASE_MAX_CONNECTIONS"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" env:"DATABASE_CONNECTION_TIMEOUT"`
	MigrationsPath    string        `yaml:"migrations_path" env:"DATABASE_MIGRATIONS_PATH"`
}

// AccountPolicyConfig controls account-level limits.
type AccountPolicyConfig struct {
	MaxCharactersPerAccount int `yaml:"max_characters_per_account" env:"ACCOUNT_MAX_CHARACTERS"`
	CharacterDeletionDays   int `yaml:"character_deletion_days" env:"ACCOUNT_CHARACTER_DELETION_DAYS"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// CryptoConfig controls the RSA key used to open the client handshake's
// credentials block. ModulusHex is the well-known public "OT" modulus; the
// matching private exponent is operator-specific and must never ship with
// the binary, so it only ever comes from the environment.
type CryptoConfig struct {
	ModulusHex         string `yaml:"modulus_hex"`
	PrivateExponentHex string `env:"RSA_PRIVATE_EXPONENT_HEX"`
	// SessionJWTSecret signs the optional session JWT issued alongside the
	// raw hex session key (§4.14). Env-only; empty disables signing.
	SessionJWTSecret string `env:"SESSION_JWT_SECRET"`
}

// AdminConfig controls the operator-facing HTTP surface (/healthz,
// /metrics). JWTSecret is env-only, like CryptoConfig's private exponent: an
// empty secret disables bearer-token enforcement for local development.
type AdminConfig struct {
	JWTSecret string `env:"ADMIN_JWT_SECRET"`
}

// Config is the top-level realm server configuration.
type Config struct {
	Server   ServerConfig        `yaml:"server"`
	Network  NetworkConfig       `yaml:"network"`
	Realms   []RealmConfig       `yaml:"realms"`
	Database DatabaseConfig      `yaml:"database"`
	Account  AccountPolicyConfig `yaml:"account"`
	Logging  LoggingConfig       `yaml:"logging"`
	Crypto   CryptoConfig        `yaml:"crypto"`
	Assets   AssetsConfig        `yaml:"assets"`
	Admin    AdminConfig         `yaml:"admin"`
}

// New returns a Config populated with sane defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Name:            "shadow realm",
			MOTD:            "Welcome.",
			SaveIntervalMin: 10,
		},
		Network: NetworkConfig{
			LoginHost:     "0.0.0.0",
			LoginPort:     7171,
			GameHost:      "0.0.0.0",
			GamePortStart: 7172,
			AdminAddr:     "127.0.0.1:7280",
		},
		Realms: []RealmConfig{{Name: "default", MaxPlayers: 1000}},
		Database: DatabaseConfig{
			MaxConnections:    10,
			ConnectionTimeout: 10 * time.Second,
			MigrationsPath:    "migrations",
		},
		Account: AccountPolicyConfig{
			MaxCharactersPerAccount: 10,
			CharacterDeletionDays:   30,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Crypto: CryptoConfig{
			ModulusHex: crypto.DefaultModulusHex,
		},
		Assets: AssetsConfig{
			ItemsOTBPath: "assets/items.otb",
			MapOTBMPath:  "assets/world.otbm",
		},
	}
}

// Load loads configuration from file (if present) and environment variables.
// Priority: defaults -> CONFIG_FILE (or ./configs/realm.yaml) -> env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		path = "configs/realm.yaml"
	}
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// SaveInterval returns the configured save interval as a time.Duration.
func (c *Config) SaveInterval() time.Duration {
	if c.Server.SaveIntervalMin <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Server.SaveIntervalMin) * time.Minute
}
