// loads up the .env files and environment variables used internally by Tracker.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Broker names accepted by BROKER.
const (
	BrokerMemory = "memory"
	BrokerRedis  = "redis"
)

// Config of a Tracker instance.
type Config struct {
	Env     string
	Version string

	SrvAddr    string
	SrvPort    string
	CORSOrigin string

	// HS256 secret shared with the CRUD layer which issues access tokens.
	AccessTokenSecret string
	// Key the CRUD layer presents on the internal publish endpoint, empty disables the endpoint.
	ServiceKey string

	RedisAddr         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	RedisTxMaxRetries int

	Broker string

	DeliveryTimeout   time.Duration
	WriteTimeout      time.Duration
	PingInterval      time.Duration
	SendQueueSize     int
	MaxMessageBytes   int64
	FanoutConcurrency int
	DropSlowConsumers bool

	PresencePersist   bool
	PresenceRetention time.Duration

	ShutdownTimeout time.Duration
}

// RedisURL is the host:port of the redis-server.
func (c Config) RedisURL() string {
	return c.RedisAddr + ":" + c.RedisPort
}

// ListenAddr is the host:port gin listens on.
func (c Config) ListenAddr() string {
	return c.SrvAddr + ":" + c.SrvPort
}

// uses go package: godotenv to load up the env file when given, then reads the environment.
// Values already present in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	r := reader{}
	cfg := Config{
		Env:     r.str("ENV", "DEV"),
		Version: r.str("VERSION", "dev"),

		SrvAddr:    r.str("SRV_ADDR", "0.0.0.0"),
		SrvPort:    r.str("SRV_PORT", "8000"),
		CORSOrigin: r.str("CORS_ORIGIN", "*"),

		AccessTokenSecret: r.str("ACCESS_TOKEN_SECRET", ""),
		ServiceKey:        r.str("SERVICE_KEY", ""),

		RedisAddr:         r.str("REDIS_ADDR", "127.0.0.1"),
		RedisPort:         r.str("REDIS_PORT", "6379"),
		RedisPassword:     r.str("REDIS_PASSWORD", ""),
		RedisDB:           r.integer("REDIS_DB_NUMBER", 0),
		RedisTxMaxRetries: r.integer("REDIS_TX_MAX_RETRIES", 3),

		Broker: strings.ToLower(r.str("BROKER", BrokerMemory)),

		DeliveryTimeout:   r.duration("DELIVERY_TIMEOUT", 500*time.Millisecond),
		WriteTimeout:      r.duration("WRITE_TIMEOUT", 10*time.Second),
		PingInterval:      r.duration("PING_INTERVAL", 30*time.Second),
		SendQueueSize:     r.integer("SEND_QUEUE_SIZE", 256),
		MaxMessageBytes:   int64(r.integer("MAX_MESSAGE_BYTES", 64*1024)),
		FanoutConcurrency: r.integer("FANOUT_CONCURRENCY", 64),
		DropSlowConsumers: r.boolean("DROP_SLOW_CONSUMERS", true),

		PresencePersist:   r.boolean("PRESENCE_PERSIST", false),
		PresenceRetention: r.duration("PRESENCE_RETENTION", 10*time.Minute),

		ShutdownTimeout: r.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if len(r.errs) > 0 {
		return Config{}, errors.Join(r.errs...)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	if c.AccessTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if c.Broker != BrokerMemory && c.Broker != BrokerRedis {
		errs = append(errs, fmt.Errorf("BROKER must be %q or %q, got %q", BrokerMemory, BrokerRedis, c.Broker))
	}
	positive := map[string]int64{
		"DELIVERY_TIMEOUT":   int64(c.DeliveryTimeout),
		"WRITE_TIMEOUT":      int64(c.WriteTimeout),
		"PING_INTERVAL":      int64(c.PingInterval),
		"SEND_QUEUE_SIZE":    int64(c.SendQueueSize),
		"MAX_MESSAGE_BYTES":  c.MaxMessageBytes,
		"FANOUT_CONCURRENCY": int64(c.FanoutConcurrency),
		"PRESENCE_RETENTION": int64(c.PresenceRetention),
		"SHUTDOWN_TIMEOUT":   int64(c.ShutdownTimeout),
	}
	for name, v := range positive {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	return errors.Join(errs...)
}

// reader collects parse errors so every bad variable is reported at once.
type reader struct {
	errs []error
}

func (r *reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("couldn't parse ENV %s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("couldn't parse ENV %s: %w", key, err))
		return def
	}
	return d
}

func (r *reader) boolean(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("couldn't parse ENV %s: %w", key, err))
		return def
	}
	return b
}
