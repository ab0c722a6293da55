package registry

import (
	"sync"

	"github.com/Aleksey-Sartakov/messenger/internal/core/contracts"
)

// Registry tracks which local connection sessions are attached to which
// fan-out channel. All mutation goes through Add and Remove under one lock;
// an unknown channel is a defined empty result.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[string]contracts.Client // channel → session id → client
	total    int
}

func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]map[string]contracts.Client),
	}
}

func (r *Registry) Add(c contracts.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	channel := c.Channel()
	if r.channels[channel] == nil {
		r.channels[channel] = make(map[string]contracts.Client)
	}
	if _, exists := r.channels[channel][c.SessionID()]; !exists {
		r.total++
	}
	r.channels[channel][c.SessionID()] = c
}

func (r *Registry) Remove(c contracts.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	channel := c.Channel()
	sessions, ok := r.channels[channel]
	if !ok {
		return
	}
	if _, exists := sessions[c.SessionID()]; exists {
		delete(sessions, c.SessionID())
		r.total--
	}
	if len(sessions) == 0 {
		delete(r.channels, channel)
	}
}

func (r *Registry) get(channel string) []contracts.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := r.channels[channel]
	if len(sessions) == 0 {
		return nil
	}
	clients := make([]contracts.Client, 0, len(sessions))
	for _, c := range sessions {
		clients = append(clients, c)
	}
	return clients
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}
