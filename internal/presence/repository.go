// Presence repository mirrors typing entries into redis so other tools can read them.

package presence

import (
	"Tracker/internal/entity"
	"Tracker/internal/errors"
	"Tracker/pkg/db"
	"Tracker/pkg/log"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

type Repository interface {
	// SaveEntry writes the entry into typing:<bug> and keeps typing-user:<user> in sync.
	SaveEntry(ctx context.Context, logger log.Logger, entry entity.TypingEntry) error
	// GetEntries returns every entry saved for bug.
	GetEntries(ctx context.Context, logger log.Logger, bug entity.BugID) ([]entity.TypingEntry, error)
}

type repository struct {
	db        *db.RedisDB
	retention time.Duration
}

// Returns a new instance of presence repository, saved keys expire after retention.
func NewRepository(dbwrp *db.RedisDB, retention time.Duration) Repository {
	return repository{db: dbwrp, retention: retention}
}

func typingKey(bug entity.BugID) string {
	return "typing:" + bug.String()
}

func typingUserKey(user entity.UserID) string {
	return "typing-user:" + user.String()
}

func (r repository) SaveEntry(ctx context.Context, logger log.Logger, entry entity.TypingEntry) error {
	raw, jsonerr := json.Marshal(entry)
	if jsonerr != nil {
		logger.WithCtx(ctx).Error().Err(jsonerr).Msg("Error occured during encoding of typing entry in presence.SaveEntry")
		return errors.InternalServerError("")
	}
	if _, dberr := r.db.Client().TxPipelined(ctx, func(client redis.Pipeliner) error {
		client.HSet(ctx, typingKey(entry.BugID), entry.UserID.String(), raw)
		client.Expire(ctx, typingKey(entry.BugID), r.retention)
		if entry.IsTyping {
			client.SAdd(ctx, typingUserKey(entry.UserID), entry.BugID.String())
			client.Expire(ctx, typingUserKey(entry.UserID), r.retention)
		} else {
			client.SRem(ctx, typingUserKey(entry.UserID), entry.BugID.String())
		}
		return nil
	}); dberr != nil {
		// Error during interacting with DB
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.TxPipelined() in presence.SaveEntry")
		return errors.InternalServerError("")
	}
	return nil
}

func (r repository) GetEntries(ctx context.Context, logger log.Logger, bug entity.BugID) ([]entity.TypingEntry, error) {
	fields, dberr := r.db.Client().HGetAll(ctx, typingKey(bug)).Result()
	if dberr != nil && dberr != redis.Nil {
		logger.WithCtx(ctx).Error().Err(dberr).Msg("Error occured during execution of redis.HGetAll() in presence.GetEntries")
		return nil, errors.InternalServerError("")
	}
	entries := make([]entity.TypingEntry, 0, len(fields))
	for user, raw := range fields {
		var entry entity.TypingEntry
		if jsonerr := json.Unmarshal([]byte(raw), &entry); jsonerr != nil {
			logger.WithCtx(ctx).Warn().Err(jsonerr).Str("user", user).Msg("Skipping undecodable typing entry")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// RedisSink writes entries through Repository from a bounded queue, off the session's path.
type RedisSink struct {
	repo   Repository
	logger log.Logger
	queue  chan entity.TypingEntry

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewRedisSink(repo Repository, logger log.Logger, size int) *RedisSink {
	if size <= 0 {
		size = 1
	}
	return &RedisSink{
		repo:   repo,
		logger: logger,
		queue:  make(chan entity.TypingEntry, size),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Record enqueues entry, it is dropped when the queue is full.
func (s *RedisSink) Record(entry entity.TypingEntry) {
	select {
	case s.queue <- entry:
	default:
		s.logger.Warn().Int64("bug_id", int64(entry.BugID)).Int64("user_id", int64(entry.UserID)).Msg("Presence sink queue full, dropping entry")
	}
}

// Run drains the queue until Close is called, then flushes what is left.
func (s *RedisSink) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case entry := <-s.queue:
			s.save(ctx, entry)
		case <-s.stop:
			for {
				select {
				case entry := <-s.queue:
					s.save(ctx, entry)
				default:
					return
				}
			}
		}
	}
}

func (s *RedisSink) save(ctx context.Context, entry entity.TypingEntry) {
	// Failures are already logged by the repository
	_ = s.repo.SaveEntry(ctx, s.logger, entry)
}

// Close stops Run after the queue is flushed, bounded by ctx.
func (s *RedisSink) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
