package room

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"
)

var ErrRoomNotFound = errors.New("room not found")

// Registry owns every live room. All reads and writes go through one mutex:
// code reservation and the delete-on-empty rule both need to be atomic and the
// traffic never justifies anything finer.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room
	codes *Generator
	now   func() time.Time
}

func NewRegistry(codes *Generator) *Registry {
	if codes == nil {
		codes = NewGenerator(DefaultCodeLength)
	}
	return &Registry{
		rooms: make(map[string]*room),
		codes: codes,
		now:   time.Now,
	}
}

// Create reserves a code that no live room holds and stores an empty room under it.
func (r *Registry) Create() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	code := r.codes.Generate(func(c string) bool {
		_, taken := r.rooms[c]
		return taken
	})
	r.rooms[code] = newRoom(r.now())
	slog.Debug("room created", "room", code)
	return code
}

func (r *Registry) Exists(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[code]
	return ok
}

func (r *Registry) Get(code string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		Code:     code,
		Members:  sortedMembers(rm),
		Messages: slices.Clone(rm.messages),
	}, true
}

func (r *Registry) Delete(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteLocked(code)
}

func (r *Registry) AddMember(code, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	rm.members[name] = struct{}{}
	return nil
}

// RemoveMember drops name from the room. A room left without members is
// deleted before the lock is released, so nobody can observe it empty.
func (r *Registry) RemoveMember(code, name string) (removed, deleted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return false, false
	}
	if _, member := rm.members[name]; !member {
		return false, false
	}
	delete(rm.members, name)
	if len(rm.members) == 0 {
		r.deleteLocked(code)
		return true, true
	}
	return true, false
}

func (r *Registry) AppendMessage(code string, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return ErrRoomNotFound
	}
	rm.messages = append(rm.messages, msg)
	return nil
}

// Members returns the current roster, sorted for stable output.
func (r *Registry) Members(code string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[code]
	if !ok {
		return nil, false
	}
	return sortedMembers(rm), true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Sweep deletes rooms that were created more than grace ago and still have
// no members, i.e. rooms whose creator never connected.
func (r *Registry) Sweep(grace time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-grace)
	swept := 0
	for code, rm := range r.rooms {
		if len(rm.members) == 0 && rm.createdAt.Before(cutoff) {
			r.deleteLocked(code)
			swept++
		}
	}
	return swept
}

// RunJanitor calls Sweep every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval, grace time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(grace); n > 0 {
				slog.Info("swept abandoned rooms", "count", n)
			}
		}
	}
}

func (r *Registry) deleteLocked(code string) {
	if _, ok := r.rooms[code]; !ok {
		return
	}
	delete(r.rooms, code)
	slog.Debug("room deleted", "room", code)
}

func sortedMembers(rm *room) []string {
	members := make([]string, 0, len(rm.members))
	for name := range rm.members {
		members = append(members, name)
	}
	slices.Sort(members)
	return members
}
