package cartresolver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunucuics/ICS-APP-BACK/internal/cache"
	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
	"github.com/sunucuics/ICS-APP-BACK/internal/repository"
)

// MockCartRepository implements repository.CartRepository for testing
type MockCartRepository struct {
	mu          sync.Mutex
	items       []domain.CartItem
	itemsErr    error
	arrayItems  []domain.CartItem
	arrayErr    error
	mapItems    []domain.CartItem
	mapErr      error
	clearCalls  int
	listCalls   int
	shapesAsked []string
}

func (m *MockCartRepository) ListItems(_ context.Context, _ string) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	m.shapesAsked = append(m.shapesAsked, "cart_items")
	return m.items, m.itemsErr
}

func (m *MockCartRepository) LegacyArrayItems(_ context.Context, _ string) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shapesAsked = append(m.shapesAsked, "legacy_array")
	return m.arrayItems, m.arrayErr
}

func (m *MockCartRepository) LegacyMapItems(_ context.Context, _ string) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shapesAsked = append(m.shapesAsked, "legacy_map")
	return m.mapItems, m.mapErr
}

func (m *MockCartRepository) Clear(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCalls++
	return nil
}

// MockCache implements cache.CartCache for testing
type MockCache struct {
	mu      sync.Mutex
	carts   map[string]*domain.Cart
	getErr  error
	deletes int
}

func NewMockCache() *MockCache {
	return &MockCache{carts: make(map[string]*domain.Cart)}
}

func (m *MockCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if c, ok := m.carts[userID]; ok {
		return c, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *MockCache) Set(_ context.Context, userID string, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = cart
	return nil
}

func (m *MockCache) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	m.deletes++
	return nil
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestResolve_FirstShapeWins(t *testing.T) {
	repo := &MockCartRepository{
		items:      []domain.CartItem{{ProductID: "p1", Quantity: 2}},
		arrayItems: []domain.CartItem{{ProductID: "legacy", Quantity: 1}},
	}
	r := New(repo, NewMockCache(), testLogger())

	items, err := r.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ProductID)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, []string{"cart_items"}, repo.shapesAsked)
}

func TestResolve_FallsBackThroughShapes(t *testing.T) {
	repo := &MockCartRepository{
		itemsErr: repository.ErrCartNotFound,
		arrayErr: repository.ErrCartNotFound,
		mapItems: []domain.CartItem{{ProductID: "p9", Quantity: 0}},
	}
	r := New(repo, NewMockCache(), testLogger())

	items, err := r.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p9", items[0].ProductID)
	assert.Equal(t, 1, items[0].Quantity, "zero quantity is clamped to one")

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, []string{"cart_items", "legacy_array", "legacy_map"}, repo.shapesAsked)
}

func TestResolve_ShapeErrorFallsThrough(t *testing.T) {
	repo := &MockCartRepository{
		itemsErr:   errors.New("mongo timeout"),
		arrayItems: []domain.CartItem{{ProductID: "p2", Quantity: 3}},
	}
	r := New(repo, NewMockCache(), testLogger())

	items, err := r.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "p2", items[0].ProductID)
}

func TestResolve_AllEmpty(t *testing.T) {
	repo := &MockCartRepository{
		itemsErr: repository.ErrCartNotFound,
		arrayErr: repository.ErrCartNotFound,
		mapErr:   repository.ErrCartNotFound,
	}
	r := New(repo, NewMockCache(), testLogger())

	items, err := r.Resolve(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, items)
}

func TestResolve_CacheHitSkipsStore(t *testing.T) {
	repo := &MockCartRepository{itemsErr: repository.ErrCartNotFound}
	mc := NewMockCache()
	mc.carts["u1"] = &domain.Cart{
		UserID: "u1",
		Items:  []domain.CartItem{{ProductID: "cached", Quantity: 1}},
	}
	r := New(repo, mc, testLogger())

	items, err := r.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "cached", items[0].ProductID)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, 0, repo.listCalls)
}

func TestResolve_CacheFailureDegradesToStore(t *testing.T) {
	repo := &MockCartRepository{
		items: []domain.CartItem{{ProductID: "p1", Quantity: 1}},
	}
	mc := NewMockCache()
	mc.getErr = errors.New("redis down")
	r := New(repo, mc, testLogger())

	items, err := r.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "p1", items[0].ProductID)
}

func TestClear_InvalidatesCache(t *testing.T) {
	repo := &MockCartRepository{}
	mc := NewMockCache()
	mc.carts["u1"] = &domain.Cart{UserID: "u1"}
	r := New(repo, mc, testLogger())

	require.NoError(t, r.Clear(context.Background(), "u1"))

	repo.mu.Lock()
	assert.Equal(t, 1, repo.clearCalls)
	repo.mu.Unlock()

	mc.mu.Lock()
	defer mc.mu.Unlock()
	assert.Equal(t, 1, mc.deletes)
}
