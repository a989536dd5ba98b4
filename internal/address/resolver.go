package address

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sunucuics/ICS-APP-BACK/internal/domain"
	"github.com/sunucuics/ICS-APP-BACK/internal/repository"
)

// Resolution is the outcome of the fallback chain. Source names the strategy
// that produced the address; Missing is set when every strategy came up
// empty, in which case the order ships with an empty address snapshot and
// the flag tells support to chase the customer.
type Resolution struct {
	Address domain.Address
	Source  string
	Missing bool
}

// Resolver picks the delivery address for a checkout. Strategies run in a
// fixed order and the first one that yields an address wins; lookup failures
// are logged and treated as "no answer" so a flaky read never masks the
// strategies behind it.
type Resolver struct {
	addresses repository.AddressRepository
	users     repository.UserRepository
	logger    *slog.Logger
}

func NewResolver(addresses repository.AddressRepository, users repository.UserRepository, logger *slog.Logger) *Resolver {
	return &Resolver{
		addresses: addresses,
		users:     users,
		logger:    logger.With("component", "address"),
	}
}

type strategy struct {
	name string
	pick func(ctx context.Context, userID, addressID string) (domain.Address, bool)
}

func (r *Resolver) strategies() []strategy {
	return []strategy{
		{"explicit_id", r.byExplicitID},
		{"active", r.activeAddress},
		{"newest", r.newestAddress},
		{"user_embedded", r.userEmbedded},
		{"user_array", r.userArrayFirst},
	}
}

// Resolve walks the chain: explicit id, active address, most recent address,
// the profile's embedded address, the first entry of the profile's address
// array, and finally an empty address flagged missing.
func (r *Resolver) Resolve(ctx context.Context, userID, addressID string) Resolution {
	for _, s := range r.strategies() {
		if addr, ok := s.pick(ctx, userID, addressID); ok {
			return Resolution{Address: addr, Source: s.name}
		}
	}
	return Resolution{Source: "none", Missing: true}
}

func (r *Resolver) byExplicitID(ctx context.Context, userID, addressID string) (domain.Address, bool) {
	if addressID == "" {
		return domain.Address{}, false
	}
	addr, err := r.addresses.FindByID(ctx, userID, addressID)
	if err != nil {
		if !errors.Is(err, repository.ErrAddressNotFound) {
			r.logger.WarnContext(ctx, "address lookup by id failed", "error", err)
		}
		return domain.Address{}, false
	}
	return *addr, true
}

func (r *Resolver) activeAddress(ctx context.Context, userID, _ string) (domain.Address, bool) {
	addr, err := r.addresses.FindActive(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrAddressNotFound) {
			r.logger.WarnContext(ctx, "active address lookup failed", "error", err)
		}
		return domain.Address{}, false
	}
	return *addr, true
}

func (r *Resolver) newestAddress(ctx context.Context, userID, _ string) (domain.Address, bool) {
	addr, err := r.addresses.FindNewest(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrAddressNotFound) {
			r.logger.WarnContext(ctx, "newest address lookup failed", "error", err)
		}
		return domain.Address{}, false
	}
	return *addr, true
}

func (r *Resolver) userEmbedded(ctx context.Context, userID, _ string) (domain.Address, bool) {
	user, ok := r.loadUser(ctx, userID)
	if !ok || user.Address == nil || user.Address.IsZero() {
		return domain.Address{}, false
	}
	return *user.Address, true
}

func (r *Resolver) userArrayFirst(ctx context.Context, userID, _ string) (domain.Address, bool) {
	user, ok := r.loadUser(ctx, userID)
	if !ok || len(user.Addresses) == 0 {
		return domain.Address{}, false
	}
	first := user.Addresses[0]
	if first.IsZero() {
		return domain.Address{}, false
	}
	return first, true
}

func (r *Resolver) loadUser(ctx context.Context, userID string) (*domain.User, bool) {
	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			r.logger.WarnContext(ctx, "user lookup failed", "error", err)
		}
		return nil, false
	}
	return user, true
}
