package address

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
	"github.com/sunucuics/ICS-APP-BACK/internal/repository"
)

// MockAddressRepo implements repository.AddressRepository for testing
type MockAddressRepo struct {
	byID   *domain.Address
	active *domain.Address
	newest *domain.Address
	err    error
}

func (m *MockAddressRepo) FindByID(_ context.Context, _, _ string) (*domain.Address, error) {
	return m.answer(m.byID)
}

func (m *MockAddressRepo) FindActive(_ context.Context, _ string) (*domain.Address, error) {
	return m.answer(m.active)
}

func (m *MockAddressRepo) FindNewest(_ context.Context, _ string) (*domain.Address, error) {
	return m.answer(m.newest)
}

func (m *MockAddressRepo) answer(a *domain.Address) (*domain.Address, error) {
	if m.err != nil {
		return nil, m.err
	}
	if a == nil {
		return nil, repository.ErrAddressNotFound
	}
	return a, nil
}

// MockUserRepo implements repository.UserRepository for testing
type MockUserRepo struct {
	user *domain.User
	err  error
}

func (m *MockUserRepo) FindByID(_ context.Context, _ string) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.user == nil {
		return nil, repository.ErrUserNotFound
	}
	return m.user, nil
}

func addr(city string) *domain.Address {
	return &domain.Address{City: city, District: "Merkez", FullName: "Ayşe Yılmaz"}
}

func newTestResolver(addresses *MockAddressRepo, users *MockUserRepo) *Resolver {
	return NewResolver(addresses, users, slog.Default())
}

func TestResolve_ExplicitIDWins(t *testing.T) {
	r := newTestResolver(
		&MockAddressRepo{byID: addr("İstanbul"), active: addr("Ankara")},
		&MockUserRepo{},
	)

	res := r.Resolve(context.Background(), "u1", "addr-1")

	assert.Equal(t, "explicit_id", res.Source)
	assert.Equal(t, "İstanbul", res.Address.City)
	assert.False(t, res.Missing)
}

func TestResolve_NoExplicitIDUsesActive(t *testing.T) {
	r := newTestResolver(
		&MockAddressRepo{byID: addr("İstanbul"), active: addr("Ankara")},
		&MockUserRepo{},
	)

	res := r.Resolve(context.Background(), "u1", "")

	assert.Equal(t, "active", res.Source)
	assert.Equal(t, "Ankara", res.Address.City)
}

func TestResolve_FallsToNewest(t *testing.T) {
	r := newTestResolver(
		&MockAddressRepo{newest: addr("İzmir")},
		&MockUserRepo{},
	)

	res := r.Resolve(context.Background(), "u1", "")

	assert.Equal(t, "newest", res.Source)
	assert.Equal(t, "İzmir", res.Address.City)
}

func TestResolve_FallsToUserEmbedded(t *testing.T) {
	r := newTestResolver(
		&MockAddressRepo{},
		&MockUserRepo{user: &domain.User{ID: "u1", Address: addr("Bursa")}},
	)

	res := r.Resolve(context.Background(), "u1", "")

	assert.Equal(t, "user_embedded", res.Source)
	assert.Equal(t, "Bursa", res.Address.City)
}

func TestResolve_FallsToUserArray(t *testing.T) {
	r := newTestResolver(
		&MockAddressRepo{},
		&MockUserRepo{user: &domain.User{ID: "u1", Addresses: []domain.Address{*addr("Adana"), *addr("Mersin")}}},
	)

	res := r.Resolve(context.Background(), "u1", "")

	assert.Equal(t, "user_array", res.Source)
	assert.Equal(t, "Adana", res.Address.City)
}

func TestResolve_NothingFoundFlagsMissing(t *testing.T) {
	r := newTestResolver(&MockAddressRepo{}, &MockUserRepo{})

	res := r.Resolve(context.Background(), "u1", "")

	assert.True(t, res.Missing)
	assert.Equal(t, "none", res.Source)
	assert.True(t, res.Address.IsZero())
}

func TestResolve_LookupErrorDoesNotMaskLaterStrategies(t *testing.T) {
	r := newTestResolver(
		&MockAddressRepo{err: errors.New("mongo timeout")},
		&MockUserRepo{user: &domain.User{ID: "u1", Address: addr("Bursa")}},
	)

	res := r.Resolve(context.Background(), "u1", "addr-1")

	assert.Equal(t, "user_embedded", res.Source)
	assert.Equal(t, "Bursa", res.Address.City)
}
