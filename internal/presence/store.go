// Typing presence store of Tracker, one entry per (bug, user).

package presence

import (
	"Tracker/internal/entity"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
)

const defaultShards = 32

// Sink receives every entry written to the Store. Record must not block.
type Sink interface {
	Record(entry entity.TypingEntry)
}

type key struct {
	bug  entity.BugID
	user entity.UserID
}

// Entries of a user always live in the same shard so ClearUser locks only one of them.
type shard struct {
	mu      sync.RWMutex
	entries map[key]entity.TypingEntry
}

// Store is safe for concurrent use. No I/O happens under its locks.
type Store struct {
	clock  quartz.Clock
	shards []*shard
	sink   Sink
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the real clock, tests pass a quartz mock.
func WithClock(clock quartz.Clock) Option {
	return func(s *Store) { s.clock = clock }
}

// WithSink mirrors every write into sink.
func WithSink(sink Sink) Option {
	return func(s *Store) { s.sink = sink }
}

func NewStore(opts ...Option) *Store {
	s := &Store{clock: quartz.NewReal(), shards: make([]*shard, defaultShards)}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[key]entity.TypingEntry)}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) shardOf(user entity.UserID) *shard {
	return s.shards[uint64(user)%uint64(len(s.shards))]
}

// Upsert creates or overwrites the entry of (bug, identity.ID) and stamps it with the current time.
func (s *Store) Upsert(group entity.GroupKey, bug entity.BugID, identity entity.Identity, isTyping bool) entity.TypingEntry {
	entry := entity.TypingEntry{
		Group:     group,
		BugID:     bug,
		UserID:    identity.ID,
		Username:  identity.Username,
		IsTyping:  isTyping,
		UpdatedAt: s.clock.Now(),
	}
	sh := s.shardOf(identity.ID)
	sh.mu.Lock()
	sh.entries[key{bug, identity.ID}] = entry
	sh.mu.Unlock()

	if s.sink != nil {
		s.sink.Record(entry)
	}
	return entry
}

func (s *Store) Get(bug entity.BugID, user entity.UserID) (entity.TypingEntry, bool) {
	sh := s.shardOf(user)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	entry, ok := sh.entries[key{bug, user}]
	return entry, ok
}

// Typing returns the users currently typing on bug, ordered by user id.
func (s *Store) Typing(bug entity.BugID) []entity.TypingEntry {
	var typing []entity.TypingEntry
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k, entry := range sh.entries {
			if k.bug == bug && entry.IsTyping {
				typing = append(typing, entry)
			}
		}
		sh.mu.RUnlock()
	}
	sort.Slice(typing, func(i, j int) bool { return typing[i].UserID < typing[j].UserID })
	return typing
}

// ClearUser marks every entry of user as not typing and returns the entries it changed, ordered by bug.
func (s *Store) ClearUser(user entity.UserID) []entity.TypingEntry {
	now := s.clock.Now()
	var cleared []entity.TypingEntry

	sh := s.shardOf(user)
	sh.mu.Lock()
	for k, entry := range sh.entries {
		if k.user != user || !entry.IsTyping {
			continue
		}
		entry.IsTyping = false
		entry.UpdatedAt = now
		sh.entries[k] = entry
		cleared = append(cleared, entry)
	}
	sh.mu.Unlock()

	sort.Slice(cleared, func(i, j int) bool { return cleared[i].BugID < cleared[j].BugID })
	if s.sink != nil {
		for _, entry := range cleared {
			s.sink.Record(entry)
		}
	}
	return cleared
}

func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// Prune drops not-typing entries last updated before the cutoff and returns how many went.
func (s *Store) Prune(before time.Time) int {
	pruned := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, entry := range sh.entries {
			if !entry.IsTyping && entry.UpdatedAt.Before(before) {
				delete(sh.entries, k)
				pruned++
			}
		}
		sh.mu.Unlock()
	}
	return pruned
}

// RunJanitor prunes entries idle for longer than retention every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval, retention time.Duration) {
	ticker := s.clock.NewTicker(interval, "presence", "janitor")
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune(s.clock.Now().Add(-retention))
		}
	}
}
