package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"vote-ledger/blockchain"
	"vote-ledger/hasher"
)

const (
	EnvPrefix = "VOTE"

	BackendJSON     = "json"
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	DefaultAdminAddress = "0xADMIN0000000000000000000000000000000000"
)

type Config struct {
	StorageBackend   string
	StorageDir       string
	DatabaseURL      string // postgres DSN, only used by the postgres backend
	Port             int
	DifficultyPrefix string
	NonceCap         uint64
	GasCost          float64
	HashAlgorithm    string
	AdminAddress     string
	StrictCandidates bool
	QueueSize        int
	SnapshotInterval time.Duration
	SnapshotKeep     int
	Debug            bool
}

func Default() Config {
	return Config{
		StorageBackend:   BackendJSON,
		StorageDir:       "data",
		Port:             8080,
		DifficultyPrefix: blockchain.DefaultDifficultyPrefix,
		NonceCap:         blockchain.DefaultNonceCap,
		GasCost:          1,
		HashAlgorithm:    hasher.AlgSHA256,
		AdminAddress:     DefaultAdminAddress,
		QueueSize:        100,
		SnapshotInterval: 5 * time.Minute,
		SnapshotKeep:     5,
	}
}

func envKey(name string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func getenvInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func getenvUint(key string, def uint64) uint64 {
	if n, err := strconv.ParseUint(os.Getenv(key), 10, 64); err == nil {
		return n
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

// Load reads VOTE_* environment variables on top of the defaults.
// DATABASE_URL is honoured when VOTE_DATABASE_URL is not set.
func Load() Config {
	d := Default()
	cfg := Config{
		StorageBackend:   getenv(envKey("storage-backend"), d.StorageBackend),
		StorageDir:       getenv(envKey("storage-dir"), d.StorageDir),
		DatabaseURL:      getenv(envKey("database-url"), strings.TrimSpace(os.Getenv("DATABASE_URL"))),
		Port:             getenvInt(envKey("port"), d.Port),
		DifficultyPrefix: getenv(envKey("difficulty-prefix"), d.DifficultyPrefix),
		NonceCap:         getenvUint(envKey("nonce-cap"), d.NonceCap),
		GasCost:          getenvFloat(envKey("gas-cost"), d.GasCost),
		HashAlgorithm:    getenv(envKey("hash-algorithm"), d.HashAlgorithm),
		AdminAddress:     getenv(envKey("admin-address"), d.AdminAddress),
		StrictCandidates: getenvBool(envKey("strict-candidates"), d.StrictCandidates),
		QueueSize:        getenvInt(envKey("queue-size"), d.QueueSize),
		SnapshotInterval: getenvDuration(envKey("snapshot-interval"), d.SnapshotInterval),
		SnapshotKeep:     getenvInt(envKey("snapshot-keep"), d.SnapshotKeep),
		Debug:            getenvBool(envKey("debug"), d.Debug),
	}
	// a database URL without an explicit backend selects postgres
	if cfg.DatabaseURL != "" && os.Getenv(envKey("storage-backend")) == "" {
		cfg.StorageBackend = BackendPostgres
	}
	return cfg
}

func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendJSON, BackendBolt, BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("storage backend %q requires a database url", c.StorageBackend)
		}
		if err := checkDatabaseURL(c.DatabaseURL); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.StorageBackend)
	}
	if err := blockchain.ValidatePrefix(c.DifficultyPrefix); err != nil {
		return err
	}
	if _, err := hasher.New(c.HashAlgorithm); err != nil {
		return err
	}
	if c.GasCost < 0 {
		return fmt.Errorf("gas cost must not be negative, got %v", c.GasCost)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue size must be positive, got %d", c.QueueSize)
	}
	if c.SnapshotKeep < 1 {
		return fmt.Errorf("snapshot keep must be positive, got %d", c.SnapshotKeep)
	}
	return nil
}

func checkDatabaseURL(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("invalid database url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return nil
	default:
		return fmt.Errorf("unsupported database url scheme: %s", u.Scheme)
	}
}

// DebugString returns the configuration with the database password masked.
func (c Config) DebugString() string {
	return fmt.Sprintf(
		"storage=%s dir=%s db=%s port=%d prefix=%q cap=%d gas=%v hash=%s strict=%t",
		c.StorageBackend,
		c.StorageDir,
		maskDSN(c.DatabaseURL),
		c.Port,
		c.DifficultyPrefix,
		c.NonceCap,
		c.GasCost,
		c.HashAlgorithm,
		c.StrictCandidates,
	)
}

func maskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
		if u.User != nil {
			u.User = url.User(u.User.Username())
		}
		return u.String()
	}
	parts := strings.Fields(dsn)
	for i, p := range parts {
		if strings.HasPrefix(strings.ToLower(p), "password=") {
			parts[i] = "password=***"
		}
	}
	return strings.Join(parts, " ")
}
