// Package groups caches group records and guards the parent relation
// against cycles.
package groups

import (
	"context"
	"errors"
	"sync"

	"github.com/TalissonJunior/traccar/pkg/logger"
	"github.com/TalissonJunior/traccar/pkg/models"
)

// ErrGroupCycle rejects writes that would loop the group hierarchy.
var ErrGroupCycle = errors.New("cycle in group hierarchy")

// Storage persists group records.
type Storage interface {
	GetGroups(ctx context.Context) ([]*models.Group, error)
	AddGroup(ctx context.Context, group *models.Group) error
	UpdateGroup(ctx context.Context, group *models.Group) error
}

// Manager is the in-memory view of the group forest.
type Manager struct {
	storage Storage
	log     logger.Logger

	mu        sync.RWMutex
	items     map[int64]*models.Group
	refreshed bool
}

// NewManager creates an empty group manager backed by storage.
func NewManager(storage Storage, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewBasic()
	}

	return &Manager{
		storage: storage,
		log:     log.WithComponent("groups"),
		items:   make(map[int64]*models.Group),
	}
}

// ByID returns the cached group, or nil when unknown.
func (m *Manager) ByID(groupID int64) *models.Group {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.items[groupID]
}

// All returns the ids of every known group. An empty result at cold
// start triggers a one-shot refresh from storage; later empty results
// are trusted.
func (m *Manager) All(ctx context.Context) []int64 {
	m.ensureRefreshed(ctx)

	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}

	return ids
}

// ensureRefreshed runs the one-shot cold-start refresh when the cache
// is still empty.
func (m *Manager) ensureRefreshed(ctx context.Context) {
	m.mu.RLock()
	empty := len(m.items) == 0
	refreshed := m.refreshed
	m.mu.RUnlock()

	if empty && !refreshed {
		if err := m.Refresh(ctx); err != nil {
			m.log.Warn().Err(err).Msg("Group refresh error")
		}
	}
}

// Refresh reloads the cache from storage.
func (m *Manager) Refresh(ctx context.Context) error {
	groups, err := m.storage.GetGroups(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[int64]*models.Group, len(groups))
	for _, group := range groups {
		m.items[group.ID] = group
	}

	m.refreshed = true

	return nil
}

// Add inserts a group; the write happens only if the cycle check passes.
func (m *Manager) Add(ctx context.Context, group *models.Group) error {
	// The walk needs the existing forest; seed it on a cold cache.
	m.ensureRefreshed(ctx)

	if err := m.checkCycles(group); err != nil {
		return err
	}

	if err := m.storage.AddGroup(ctx, group); err != nil {
		return err
	}

	m.mu.Lock()
	m.items[group.ID] = group
	m.mu.Unlock()

	return nil
}

// Update rewrites a group; the write happens only if the cycle check
// passes.
func (m *Manager) Update(ctx context.Context, group *models.Group) error {
	m.ensureRefreshed(ctx)

	if err := m.checkCycles(group); err != nil {
		return err
	}

	if err := m.storage.UpdateGroup(ctx, group); err != nil {
		return err
	}

	m.mu.Lock()
	m.items[group.ID] = group
	m.mu.Unlock()

	return nil
}

// checkCycles walks the parent chain from the candidate; revisiting an
// id means the write would close a loop. The walk ends when a parent is
// unknown.
func (m *Manager) checkCycles(group *models.Group) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	visited := make(map[int64]struct{})

	for current := group; current != nil; current = m.items[current.GroupID] {
		if _, ok := visited[current.ID]; ok {
			return ErrGroupCycle
		}

		visited[current.ID] = struct{}{}
	}

	return nil
}
