// Copyright (c) 2026 LovePing. All rights reserved.
// Author: FaelSemW

package presence

import (
	"sync"
)

// Registry tracks the set of currently-open live connections per
// authenticated user. A user may hold several connections at once
// (phone and laptop); presence only transitions to offline when the
// last one goes away.
//
// # Concurrency
//
// All methods are safe for concurrent use. Register and Deregister
// report occupancy atomically with the mutation, so exactly one caller
// observes the first-connection and last-connection transitions.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[string]Sender // userID -> connID -> connection
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[string]Sender)}
}

// Register adds a connection for the given user.
//
// # Returns
//   - first: true when this is the user's only open connection, i.e.
//     the user just transitioned from offline to online.
func (registry *Registry) Register(userID string, connection Sender) (first bool) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	set, ok := registry.conns[userID]
	if !ok {
		set = make(map[string]Sender)
		registry.conns[userID] = set
	}
	set[connection.ID()] = connection

	return len(set) == 1
}

// Deregister removes a connection for the given user.
//
// # Returns
//   - remaining: the number of connections the user still has open.
//     The caller that observes zero owns the offline transition; the
//     atomicity of count-with-removal guarantees exactly one such
//     caller even under concurrent disconnects.
func (registry *Registry) Deregister(userID, connectionID string) (remaining int) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	set, ok := registry.conns[userID]
	if !ok {
		return 0
	}

	delete(set, connectionID)
	if len(set) == 0 {
		delete(registry.conns, userID)
		return 0
	}

	return len(set)
}

// Connections returns a snapshot of the user's open connections.
// The returned slice is a copy; it stays valid after concurrent
// register/deregister calls.
func (registry *Registry) Connections(userID string) []Sender {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	set := registry.conns[userID]
	if len(set) == 0 {
		return nil
	}

	connections := make([]Sender, 0, len(set))
	for _, connection := range set {
		connections = append(connections, connection)
	}
	return connections
}

// Count returns the number of open connections for the user.
func (registry *Registry) Count(userID string) int {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return len(registry.conns[userID])
}
