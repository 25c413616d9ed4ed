// Package session tracks admin sessions: the directory token each one uses
// and the record set and review state each reviewer is working on.
package session

import (
	"sync"
	"time"

	"github.com/baechuer/roadside-admin/internal/directory"
	"github.com/baechuer/roadside-admin/internal/review"
)

// Workspace is what one reviewer has on screen.
type Workspace struct {
	View     *directory.View
	Workflow *review.Workflow

	lastSeen time.Time
}

// Factory builds a fresh workspace for a new session.
type Factory func() *Workspace

// Registry maps session ids to workspaces. Workspaces idle for longer than
// the TTL are evicted on the next lookup.
type Registry struct {
	mu      sync.Mutex
	build   Factory
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*Workspace
}

func NewRegistry(build Factory, ttl time.Duration) *Registry {
	return &Registry{
		build:   build,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*Workspace),
	}
}

// Get returns the workspace for sessionID, creating it on first use.
func (r *Registry) Get(sessionID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evictLocked(now)

	ws, ok := r.entries[sessionID]
	if !ok {
		ws = r.build()
		r.entries[sessionID] = ws
	}
	ws.lastSeen = now
	return ws
}

// Drop forgets the workspace of a session.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionID)
}

// Len is the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) evictLocked(now time.Time) {
	if r.ttl <= 0 {
		return
	}
	for id, ws := range r.entries {
		if now.Sub(ws.lastSeen) > r.ttl {
			delete(r.entries, id)
		}
	}
}
