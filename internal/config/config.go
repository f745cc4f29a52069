package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"net"     // net joins host and port into a listen address
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Unlike earlier iterations every value has a
// default, so the container starts with no environment at all; storage and
// accounts switch on only when DB_HOST is provided.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Host           string // interface to bind; 0.0.0.0 so the port is reachable from outside a container
	Port           string // HTTP port to listen on
	AIRuns         int    // playouts per candidate move for the web opponent
	AIWorkers      int    // candidate moves evaluated concurrently (0 = GOMAXPROCS)
	AISeed         uint64 // non-zero makes the opponent deterministic
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address; empty disables persistence
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing
	AMQPURL        string // RabbitMQ URL; empty disables game events
	LogDir         string // directory for the game event log
}

// Load reads configuration values from environment variables and returns a
// Config.  A JWT secret is required only when the database is enabled,
// because accounts are the only thing that needs it.
func Load() Config {
	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Host:           envStr("APP_HOST", "0.0.0.0"),
		Port:           envStr("APP_PORT", "8000"),
		AIRuns:         envInt("AI_RUNS", 100),
		AIWorkers:      envInt("AI_WORKERS", 0),
		AISeed:         envUint("AI_SEED", 0),
		DBUser:         envStr("DB_USER", "mancala"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         os.Getenv("DB_HOST"),
		DBPort:         envStr("DB_PORT", "3306"),
		DBName:         envStr("DB_NAME", "mancala"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     envInt("BCRYPT_COST", 10),
		AMQPURL:        amqpURL(),
		LogDir:         envStr("LOG_DIR", "logs"),
	}
	if cfg.StorageEnabled() && cfg.JWTSecret == "" {
		cfg.JWTSecret = must("JWT_SECRET")
	}
	return cfg
}

// Addr is the listen address, e.g. "0.0.0.0:8000".
func (c Config) Addr() string { return net.JoinHostPort(c.Host, c.Port) }

func (c Config) StorageEnabled() bool { return c.DBHost != "" }

func (c Config) EventsEnabled() bool { return c.AMQPURL != "" }

func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

// amqpURL honours both RABBITMQ_URL and the older AMQP_URL name.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envUint(k string, d uint64) uint64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.ParseUint(v, 10, 64); err == nil {
		return n
	}
	return d
}
