package ws

import "sync"

// Registry tracks the connections that are currently open. It is the
// liveness source for host takeover.
type Registry struct {
	clients map[string]*Client
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
	}
}

// Register records an open connection
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.GetConnID()] = c
}

// Unregister forgets a connection
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, connID)
}

// IsLive implements app.Liveness
func (r *Registry) IsLive(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[connID]
	return ok
}

// Count returns the number of open connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// CloseAll closes every open connection
func (r *Registry) CloseAll() {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}
