// Package bonus describes the one-time actions that credit points.
package bonus

import (
	"fmt"
	"sort"
	"sync"

	"brand-ranking/internal/model"
)

// ActionShareFirstTime is granted the first time a user shares the app.
const ActionShareFirstTime = "share_first_time"

// Action is a one-time bonus. Name is the key recorded per user and TxType
// labels its ledger entry.
type Action struct {
	Name   string
	Points int64
	TxType string
}

// Registry manages bonus actions by name. It is safe for concurrent use.
type Registry struct {
	actions map[string]Action
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]Action),
	}
}

// NewDefaultRegistry returns a registry holding the share bonus worth
// sharePoints.
func NewDefaultRegistry(sharePoints int64) (*Registry, error) {
	r := NewRegistry()
	if err := r.Register(Action{Name: ActionShareFirstTime, Points: sharePoints, TxType: model.TxTypeShareBonus}); err != nil {
		return nil, fmt.Errorf("failed to register share bonus: %w", err)
	}
	return r, nil
}

// Register adds an action, replacing any action with the same name.
func (r *Registry) Register(a Action) error {
	if a.Name == "" {
		return fmt.Errorf("bonus action name cannot be empty")
	}
	if a.Points < 0 {
		return fmt.Errorf("bonus action %q has negative points", a.Name)
	}

	if a.TxType == "" {
		a.TxType = a.Name
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[a.Name] = a
	return nil
}

// Get retrieves an action by name.
func (r *Registry) Get(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	return a, ok
}

// Names returns the registered action names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered actions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions)
}
