package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory Store for tests and ephemeral deployments.
// All state is lost on process exit.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[int64]*User
	groups       map[int64]*Group
	orders       []*Order
	transactions []*Transaction
	admins       map[adminKey]bool // value: is_super
}

type adminKey struct {
	userID int64
	chatID int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[int64]*User),
		groups: make(map[int64]*Group),
		admins: make(map[adminKey]bool),
	}
}

func (m *MemoryStore) GetUser(_ context.Context, userID int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (m *MemoryStore) SaveUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *MemoryStore) GetGroup(_ context.Context, chatID int64) (*Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	group, ok := m.groups[chatID]
	if !ok {
		return nil, nil
	}
	copied := *group
	return &copied, nil
}

func (m *MemoryStore) SaveGroup(_ context.Context, group *Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *group
	m.groups[group.ChatID] = &copied
	return nil
}

func (m *MemoryStore) AddOrder(_ context.Context, order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *order
	m.orders = append(m.orders, &copied)
	return nil
}

func (m *MemoryStore) AddTransaction(_ context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *tx
	m.transactions = append(m.transactions, &copied)
	return nil
}

func (m *MemoryStore) RecentOrders(_ context.Context, chatID int64, limit int) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*Order
	for _, order := range m.orders {
		if order.ChatID == chatID {
			copied := *order
			matched = append(matched, &copied)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MemoryStore) RecentTransactions(_ context.Context, chatID int64, limit int) ([]*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*Transaction
	for _, tx := range m.transactions {
		if tx.ChatID == chatID {
			copied := *tx
			matched = append(matched, &copied)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MemoryStore) OrderCount(_ context.Context, chatID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, order := range m.orders {
		if order.ChatID == chatID {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) ClearGroup(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders := m.orders[:0]
	for _, order := range m.orders {
		if order.ChatID != chatID {
			orders = append(orders, order)
		}
	}
	m.orders = orders

	transactions := m.transactions[:0]
	for _, tx := range m.transactions {
		if tx.ChatID != chatID {
			transactions = append(transactions, tx)
		}
	}
	m.transactions = transactions

	if group, ok := m.groups[chatID]; ok {
		group.TotalAmount = decimal.Zero
		group.UpdatedAt = time.Now()
	}
	return nil
}

func (m *MemoryStore) IsSuperAdmin(_ context.Context, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for key, super := range m.admins {
		if key.userID == userID && super {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) IsGroupAdmin(_ context.Context, userID, chatID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.admins[adminKey{userID: userID, chatID: chatID}]
	return ok, nil
}

func (m *MemoryStore) GrantAdmin(_ context.Context, userID, chatID int64, super bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.admins[adminKey{userID: userID, chatID: chatID}] = super
	return nil
}

func (m *MemoryStore) Cleanup(_ context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0

	orders := m.orders[:0]
	for _, order := range m.orders {
		if order.CreatedAt.Before(olderThan) {
			removed++
			continue
		}
		orders = append(orders, order)
	}
	m.orders = orders

	transactions := m.transactions[:0]
	for _, tx := range m.transactions {
		if tx.CreatedAt.Before(olderThan) {
			removed++
			continue
		}
		transactions = append(transactions, tx)
	}
	m.transactions = transactions

	return removed, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
