// Typing presence tests in Tracker.

package presence

import (
	"Tracker/internal/entity"
	"Tracker/internal/test"
	"Tracker/pkg/log"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	g     = entity.GroupFor("1")
	alice = entity.Identity{ID: 1, Username: "alice"}
	bob   = entity.Identity{ID: 2, Username: "bob"}
)

type recordingSink struct {
	mu      sync.Mutex
	entries []entity.TypingEntry
}

func (s *recordingSink) Record(entry entity.TypingEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *recordingSink) recorded() []entity.TypingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.TypingEntry(nil), s.entries...)
}

func TestUpsertKeepsOneEntryPerPair(t *testing.T) {
	clock := quartz.NewMock(t)
	store := NewStore(WithClock(clock))

	first := store.Upsert(g, 7, alice, true)
	clock.Advance(time.Second)
	second := store.Upsert(g, 7, alice, false)

	assert.Equal(t, 1, store.Len())
	got, ok := store.Get(7, alice.ID)
	require.True(t, ok)
	assert.False(t, got.IsTyping)
	assert.Equal(t, second.UpdatedAt, got.UpdatedAt)
	assert.True(t, got.UpdatedAt.After(first.UpdatedAt))

	_, ok = store.Get(7, bob.ID)
	assert.False(t, ok)
}

func TestTypingListsActiveUsers(t *testing.T) {
	store := NewStore()
	store.Upsert(g, 7, bob, true)
	store.Upsert(g, 7, alice, true)
	store.Upsert(g, 8, alice, true)
	store.Upsert(g, 7, entity.Identity{ID: 3, Username: "carol"}, false)

	typing := store.Typing(7)
	require.Len(t, typing, 2)
	assert.Equal(t, alice.ID, typing[0].UserID)
	assert.Equal(t, bob.ID, typing[1].UserID)
	assert.Empty(t, store.Typing(9))
}

func TestClearUser(t *testing.T) {
	sink := &recordingSink{}
	store := NewStore(WithSink(sink))
	store.Upsert(g, 9, alice, true)
	store.Upsert(g, 7, alice, true)
	store.Upsert(g, 8, alice, false)
	store.Upsert(g, 7, bob, true)

	cleared := store.ClearUser(alice.ID)
	require.Len(t, cleared, 2)
	assert.Equal(t, entity.BugID(7), cleared[0].BugID)
	assert.Equal(t, entity.BugID(9), cleared[1].BugID)
	assert.Equal(t, g, cleared[0].Group)
	assert.False(t, cleared[0].IsTyping)
	assert.Empty(t, store.Typing(9))
	assert.Len(t, store.Typing(7), 1)
	assert.Equal(t, 4, store.Len())

	// Nothing left to clear
	assert.Empty(t, store.ClearUser(alice.ID))
	assert.Len(t, sink.recorded(), 6)
}

func TestPrune(t *testing.T) {
	clock := quartz.NewMock(t)
	store := NewStore(WithClock(clock))
	store.Upsert(g, 1, alice, false)
	store.Upsert(g, 2, alice, true)
	clock.Advance(time.Minute)
	store.Upsert(g, 3, bob, false)

	assert.Equal(t, 1, store.Prune(clock.Now().Add(-30*time.Second)))
	_, ok := store.Get(1, alice.ID)
	assert.False(t, ok)
	_, ok = store.Get(2, alice.ID)
	assert.True(t, ok, "typing entries are never pruned")
	_, ok = store.Get(3, bob.ID)
	assert.True(t, ok)
}

func TestRunJanitor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	clock := quartz.NewMock(t)
	store := NewStore(WithClock(clock))
	store.Upsert(g, 1, alice, false)

	trap := clock.Trap().NewTicker("presence", "janitor")
	defer trap.Close()
	janitorCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		store.RunJanitor(janitorCtx, time.Minute, 2*time.Minute)
	}()
	trap.MustWait(ctx).MustRelease(ctx)

	clock.Advance(time.Minute).MustWait(ctx)
	assert.Equal(t, 1, store.Len())

	clock.Advance(time.Minute).MustWait(ctx)
	clock.Advance(time.Minute).MustWait(ctx)
	require.Eventually(t, func() bool { return store.Len() == 0 }, 5*time.Second, 10*time.Millisecond)

	stop()
	<-done
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for u := 1; u <= 16; u++ {
		wg.Add(1)
		go func(id entity.UserID) {
			defer wg.Done()
			for bug := entity.BugID(1); bug <= 20; bug++ {
				store.Upsert(g, bug, entity.Identity{ID: id}, true)
				store.Typing(bug)
			}
			store.ClearUser(id)
		}(entity.UserID(u))
	}
	wg.Wait()
	assert.Equal(t, 16*20, store.Len())
	assert.Empty(t, store.Typing(5))
}

func TestRedisSink(t *testing.T) {
	ctx := context.Background()
	client, server := test.MockRedis(t)
	repo := NewRepository(client, time.Hour)
	sink := NewRedisSink(repo, log.NewNop(), 16)
	go sink.Run(ctx)

	store := NewStore(WithSink(sink))
	store.Upsert(g, 7, alice, true)
	store.Upsert(g, 7, bob, true)
	store.ClearUser(bob.ID)
	require.NoError(t, sink.Close(ctx))

	entries, err := repo.GetEntries(ctx, log.NewNop(), 7)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	byUser := map[entity.UserID]entity.TypingEntry{}
	for _, entry := range entries {
		byUser[entry.UserID] = entry
	}
	assert.True(t, byUser[alice.ID].IsTyping)
	assert.False(t, byUser[bob.ID].IsTyping)

	members, err := server.Members("typing-user:1")
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, members)
	left, err := client.Client().SCard(ctx, "typing-user:2").Result()
	require.NoError(t, err)
	assert.Zero(t, left)
	assert.Greater(t, server.TTL("typing:7"), time.Duration(0))
}

func TestRedisSinkDropsWhenFull(t *testing.T) {
	client, _ := test.MockRedis(t)
	sink := NewRedisSink(NewRepository(client, time.Hour), log.NewNop(), 1)

	// Run was never started, the second entry can't be queued
	sink.Record(entity.TypingEntry{BugID: 1, UserID: 1, IsTyping: true})
	sink.Record(entity.TypingEntry{BugID: 2, UserID: 1, IsTyping: true})
	assert.Len(t, sink.queue, 1)
}
