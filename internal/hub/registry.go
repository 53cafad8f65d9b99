// Group registry of Tracker, maps a group key to the sessions currently joined to it.

package hub

import (
	"Tracker/internal/entity"
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultShards = 64

// ErrGroupMismatch is returned when a member is joined to a group other than its own.
var ErrGroupMismatch = errors.New("member belongs to another group")

// Member is a session handle as seen by the registry and the dispatcher.
type Member interface {
	// ID is unique per connection.
	ID() string
	Identity() entity.Identity
	// Group is fixed for the lifetime of the member.
	Group() entity.GroupKey
	// Deliver enqueues an encoded message, it returns once the message is queued or ctx is done.
	Deliver(ctx context.Context, msg []byte) error
	// Close tears the member down, it is safe to call more than once.
	Close(reason error)
}

type shard struct {
	mu     sync.RWMutex
	groups map[entity.GroupKey]map[string]Member
}

// Registry is safe for concurrent use. Groups in different shards never contend on a lock.
type Registry struct {
	shards []*shard
}

func NewRegistry() *Registry {
	r := &Registry{shards: make([]*shard, defaultShards)}
	for i := range r.shards {
		r.shards[i] = &shard{groups: make(map[entity.GroupKey]map[string]Member)}
	}
	return r
}

func (r *Registry) shardOf(group entity.GroupKey) *shard {
	return r.shards[xxhash.Sum64String(string(group))%uint64(len(r.shards))]
}

// Join adds member to the group, the group is created on first join. Joining twice is a no-op.
func (r *Registry) Join(group entity.GroupKey, member Member) error {
	if member.Group() != group {
		return ErrGroupMismatch
	}
	sh := r.shardOf(group)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	members := sh.groups[group]
	if members == nil {
		members = make(map[string]Member)
		sh.groups[group] = members
	}
	members[member.ID()] = member
	return nil
}

// Leave removes member from the group, empty groups are dropped. No-op when absent.
func (r *Registry) Leave(group entity.GroupKey, member Member) {
	sh := r.shardOf(group)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	members := sh.groups[group]
	if members == nil {
		return
	}
	delete(members, member.ID())
	if len(members) == 0 {
		delete(sh.groups, group)
	}
}

// MembersOf returns a snapshot of the group, callers deliver to it without holding any lock.
func (r *Registry) MembersOf(group entity.GroupKey) []Member {
	sh := r.shardOf(group)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	members := sh.groups[group]
	snapshot := make([]Member, 0, len(members))
	for _, m := range members {
		snapshot = append(snapshot, m)
	}
	return snapshot
}

func (r *Registry) Count(group entity.GroupKey) int {
	sh := r.shardOf(group)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.groups[group])
}

// Groups returns every group with at least one member, sorted.
func (r *Registry) Groups() []entity.GroupKey {
	var groups []entity.GroupKey
	for _, sh := range r.shards {
		sh.mu.RLock()
		for g := range sh.groups {
			groups = append(groups, g)
		}
		sh.mu.RUnlock()
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}

// Len is the number of joined members across all groups.
func (r *Registry) Len() int {
	n := 0
	for _, sh := range r.shards {
		sh.mu.RLock()
		for _, members := range sh.groups {
			n += len(members)
		}
		sh.mu.RUnlock()
	}
	return n
}
