// Initialization of Redis client to be used internally in Tracker.

package db

import (
	"Tracker/pkg/log"
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// Options needed to reach the redis-server.
type Options struct {
	// host:port of the redis-server
	Addr     string
	Password string
	DB       int
	// Number of allowed retries in a watched redis transaction
	TxMaxRetries int
}

// RedisDB represents a redis client connection to be used internally in Tracker.
type RedisDB struct {
	client       *redis.Client
	txMaxRetries int
}

// Client returns the redis client wrapped by RedisDB.
func (db *RedisDB) Client() *redis.Client {
	return db.client
}

// GetMaxRetries returns the number of allowed retries in a watched redis transaction
func (db *RedisDB) GetMaxRetries() int {
	return db.txMaxRetries
}

// Returns a new Redis DB connection wrapped up by RedisDB struct.
// The connection is lazy, use CheckDbConnection to know if the redis-server is reachable.
func NewDbConnection(ctx context.Context, logger log.Logger, opts Options) (*RedisDB, error) {
	if opts.Addr == "" {
		logger.WithCtx(ctx).Error().Msg("Redis address is missing")
		return nil, errors.New("improper redis options: missing address")
	}
	if opts.TxMaxRetries <= 0 {
		opts.TxMaxRetries = 1
	}
	// Initializing a connection to Redis-server
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisDB{client: client, txMaxRetries: opts.TxMaxRetries}, nil
}

// Helper to check connection status of redis client to redis-server.
// Equivalent to a PING request on redis-server, returns PONG on success.
func (db *RedisDB) CheckDbConnection(ctx context.Context, logger log.Logger) error {
	logger.WithCtx(ctx).Info().Msg("Checking DB Connection . . .")
	// Pinging the Redis-server to check connection status
	if cnterr := db.Client().Ping(ctx).Err(); cnterr != nil {
		// Most likely, DB connection failure
		logger.WithCtx(ctx).Error().Err(cnterr).Msg("Redis client couldn't PING the redis-server.")
		return cnterr
	}
	// Connection successful
	logger.WithCtx(ctx).Info().Msg("Connection to DB Successful")
	return nil
}

// Helper to clean up test db after finishing Tracker tests.
func (db *RedisDB) CleanTestDbData(ctx context.Context, logger log.Logger) {
	if db.Client().Options().DB == 1 {
		dberr := db.Client().FlushDB(ctx).Err()
		if dberr != nil {
			// Error during flushing test db
			logger.Error().Err(dberr).Msg("Error occured during the execution of FlushDB() in db.CleanTestDbData")
		}
	}
}

// Helper to close the RedisDB client, should be called before closing the server.
func (db *RedisDB) CloseDbConnection(ctx context.Context) error {
	return db.Client().Close()
}
