package lobby

import "sync"

// Registry tracks every open channel per identity. It is the process-wide
// presence map; an identity is online iff it has at least one channel.
// Contention is low, so a single coarse lock covers the whole structure.
type Registry struct {
	mu    sync.Mutex
	conns map[string]map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: map[string]map[string]Conn{}}
}

func (r *Registry) Add(identity string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.conns[identity]
	if set == nil {
		set = map[string]Conn{}
		r.conns[identity] = set
	}
	set[c.ID()] = c
}

// Remove drops one channel and reports whether the identity is now fully
// offline (its channel set became empty).
func (r *Registry) Remove(identity string, c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.conns[identity]
	if set == nil {
		return false
	}
	delete(set, c.ID())
	if len(set) == 0 {
		delete(r.conns, identity)
		return true
	}
	return false
}

func (r *Registry) Conns(identity string) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Conn, 0, len(r.conns[identity]))
	for _, c := range r.conns[identity] {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Online(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns[identity]) > 0
}

// Broadcast sends an event to every channel of every identity.
func (r *Registry) Broadcast(event string, payload any) {
	r.mu.Lock()
	targets := make([]Conn, 0, len(r.conns))
	for _, set := range r.conns {
		for _, c := range set {
			targets = append(targets, c)
		}
	}
	r.mu.Unlock()
	for _, c := range targets {
		c.Send(event, payload)
	}
}
