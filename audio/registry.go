package audio

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// SessionFactory builds a session for a guild seen for the first time.
// Creations are serialized by the registry, so the factory runs at most once
// per guild and may safely register side tables keyed by the session it
// returns.
type SessionFactory func(guildID snowflake.ID) *Session

// Registry maps guild IDs to their playback sessions. Lookups are lock-free;
// creation takes a mutex so concurrent requests for the same guild always
// converge on a single session built by a single factory call.
type Registry struct {
	sessions sync.Map // snowflake.ID -> *Session
	mu       sync.Mutex
	factory  SessionFactory
}

func NewRegistry(factory SessionFactory) *Registry {
	return &Registry{factory: factory}
}

// GetOrCreate returns the guild's session, creating it on first use.
func (r *Registry) GetOrCreate(guildID snowflake.ID) *Session {
	if v, ok := r.sessions.Load(guildID); ok {
		return v.(*Session)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.sessions.Load(guildID); ok {
		return v.(*Session)
	}
	created := r.factory(guildID)
	r.sessions.Store(guildID, created)
	return created
}

// Get returns the guild's session without creating one.
func (r *Registry) Get(guildID snowflake.ID) (*Session, bool) {
	v, ok := r.sessions.Load(guildID)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// Range calls fn for each active session until fn returns false.
func (r *Registry) Range(fn func(*Session) bool) {
	r.sessions.Range(func(_, value any) bool {
		return fn(value.(*Session))
	})
}

// Evict closes and removes a guild's session. The next request for the
// guild starts from a fresh session.
func (r *Registry) Evict(ctx context.Context, guildID snowflake.ID) {
	v, ok := r.sessions.LoadAndDelete(guildID)
	if !ok {
		return
	}
	v.(*Session).Close(ctx)
}

// Shutdown closes every session, disconnecting all voice connections.
func (r *Registry) Shutdown(ctx context.Context) {
	var wg sync.WaitGroup
	r.sessions.Range(func(key, value any) bool {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close(ctx)
		}(value.(*Session))
		r.sessions.Delete(key)
		return true
	})
	wg.Wait()
}
