// Metrics repository keeps the session count of every Tracker instance in redis.

package metrics

import (
	"Tracker/internal/errors"
	"Tracker/pkg/db"
	"Tracker/pkg/log"
	"context"
	"strconv"

	"github.com/go-redis/redis/v8"
)

var sessionsDbKey string = "tracker:sessions"

// Highest total of sessions seen across the cluster.
var peakDbKey string = "tracker:sessions:peak"

type Repository interface {
	// SetInstanceSessions records the number of sessions joined on an instance.
	SetInstanceSessions(ctx context.Context, logger log.Logger, instance string, sessions int64) error
	// DelInstance removes an instance which is shutting down.
	DelInstance(ctx context.Context, logger log.Logger, instance string) error
	// GetSessions returns the recorded session count of every instance.
	GetSessions(ctx context.Context, logger log.Logger) (map[string]int64, error)
	// GetPeak returns the highest cluster total ever recorded.
	GetPeak(ctx context.Context, logger log.Logger) (int64, error)
}

// repository struct of metrics Repository.
// Object of this will be passed around from main to internal.
// Helps to access the repository layer interface and call methods.
type repository struct {
	db *db.RedisDB
}

// Returns a new instance of metrics repository for other packages to access its interface.
func NewRepository(dbwrp *db.RedisDB) Repository {
	return repository{db: dbwrp}
}

// Records the instance's count and raises the cluster peak when the new total exceeds it.
// Total and peak are read under WATCH, a concurrent report from another instance retries this one.
func (r repository) SetInstanceSessions(ctx context.Context, logger log.Logger, instance string, sessions int64) error {
	txferr := func(keys ...string) error {
		txf := func(tx *redis.Tx) error {
			fields, dberr := tx.HGetAll(ctx, sessionsDbKey).Result()
			if dberr != nil && dberr != redis.Nil {
				return dberr
			}
			total := sessions
			for other, raw := range fields {
				if other == instance {
					continue
				}
				if n, converr := strconv.ParseInt(raw, 10, 64); converr == nil {
					total += n
				}
			}
			peak, dberr := tx.Get(ctx, peakDbKey).Int64()
			if dberr != nil && dberr != redis.Nil {
				return dberr
			}
			// Operation is commited only if the watched keys remain unchanged
			_, dberr = tx.TxPipelined(ctx, func(client redis.Pipeliner) error {
				client.HSet(ctx, sessionsDbKey, instance, sessions)
				if total > peak {
					client.Set(ctx, peakDbKey, total, 0)
				}
				return nil
			})
			return dberr
		}
		for i := 0; i < r.db.GetMaxRetries(); i++ {
			dberr := r.db.Client().Watch(ctx, txf, keys...)
			if dberr == nil {
				return nil
			} else if dberr == redis.TxFailedErr {
				// Optimistic lock lost. Retry.
				continue
			}
			// Return any other error.
			return dberr
		}
		return errors.New("update reached maximum number of retries")
	}(sessionsDbKey, peakDbKey)
	if txferr != nil {
		logger.WithCtx(ctx).Error().Err(txferr).Msg("Error occured in SetInstanceSessions transaction")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) DelInstance(ctx context.Context, logger log.Logger, instance string) error {
	if dberr := r.db.Client().HDel(ctx, sessionsDbKey, instance).Err(); dberr != nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HDel() in metrics.DelInstance")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) GetSessions(ctx context.Context, logger log.Logger) (map[string]int64, error) {
	fields, dberr := r.db.Client().HGetAll(ctx, sessionsDbKey).Result()
	if dberr != nil && dberr != redis.Nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in metrics.GetSessions")
		return nil, errors.InternalServerError("")
	}
	sessions := make(map[string]int64, len(fields))
	for instance, raw := range fields {
		n, converr := strconv.ParseInt(raw, 10, 64)
		if converr != nil {
			logger.WithCtx(ctx).Warn().Err(converr).Str("instance", instance).Msg("Skipping unreadable session count")
			continue
		}
		sessions[instance] = n
	}
	return sessions, nil
}

func (r repository) GetPeak(ctx context.Context, logger log.Logger) (int64, error) {
	peak, dberr := r.db.Client().Get(ctx, peakDbKey).Int64()
	if dberr == redis.Nil {
		return 0, nil
	} else if dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.Get() in metrics.GetPeak")
		return 0, errors.InternalServerError("")
	}
	return peak, nil
}
