package memory

import (
	"context"
	"sync"

	"canteen/internal/domain/model"
	repo "canteen/internal/repository"
)

// Menu はメモリ上のメニュー参照。
// Putはローカル起動とテストでの投入用。
type Menu struct {
	mu    sync.RWMutex
	items map[model.MenuItemID]model.MenuItem
}

func NewMenu(items ...model.MenuItem) *Menu {
	m := &Menu{items: make(map[model.MenuItemID]model.MenuItem, len(items))}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *Menu) Put(item model.MenuItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
}

func (m *Menu) FindByID(ctx context.Context, id model.MenuItemID) (model.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return model.MenuItem{}, repo.ErrNotFound
	}
	return it, nil
}
