// Service layer of the internal package presence.

package presence

import (
	"Tracker/internal/entity"
	"Tracker/pkg/log"
	"context"
	"sort"
	"time"
)

// Service layer of internal package presence which answers who is typing outside of the websocket path.
type Service interface {
	// Typing returns the users typing on bug, ordered by user id.
	Typing(ctx context.Context, bug entity.BugID) ([]entity.TypingEntry, error)
}

type service struct {
	store        *Store
	presenceRepo Repository
	retention    time.Duration
	logger       log.Logger
}

// Helps to access the service layer interface and call methods. Service object is passed from main.
// presenceRepo is nil when typing entries aren't mirrored, Typing then only sees this instance.
func NewService(store *Store, presenceRepo Repository, retention time.Duration, logger log.Logger) Service {
	return service{store, presenceRepo, retention, logger}
}

func (s service) Typing(ctx context.Context, bug entity.BugID) ([]entity.TypingEntry, error) {
	if s.presenceRepo == nil {
		return s.store.Typing(bug), nil
	}
	entries, dberr := s.presenceRepo.GetEntries(ctx, s.logger, bug)
	if dberr != nil {
		return nil, dberr
	}
	// The hash outlives single entries, a user which left mid-typing is stale after retention
	cutoff := s.store.clock.Now().Add(-s.retention)
	typing := make([]entity.TypingEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsTyping && entry.UpdatedAt.After(cutoff) {
			typing = append(typing, entry)
		}
	}
	sort.Slice(typing, func(i, j int) bool { return typing[i].UserID < typing[j].UserID })
	return typing, nil
}
