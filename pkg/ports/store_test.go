package ports_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// mockStore is a minimal map-backed SnapshotStore used to exercise the contract itself.
type mockStore struct {
	mu   sync.Mutex
	data map[string]*domain.Snapshot
}

func (m *mockStore) Save(ctx context.Context, key string, s *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = s
	return nil
}

func (m *mockStore) Load(ctx context.Context, key string) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[key]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return s, nil
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func TestSnapshotStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, &mockStore{data: make(map[string]*domain.Snapshot)})
}
