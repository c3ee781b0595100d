// Package priority ranks competing data sources by configurable provider and
// device-type priority tables.
package priority

import (
	"context"
	"slices"
	"strings"

	"github.com/the-momentum/open-wearables-sub000/internal/domain"
)

// DefaultPriority applies when a provider or device type has no explicit entry.
const DefaultPriority = 99

// Repository captures the ranking table persistence operations.
type Repository interface {
	ProviderPriorities(ctx context.Context) (map[domain.Provider]int, error)
	DeviceTypePriorities(ctx context.Context) (map[domain.DeviceType]int, error)
	UpsertProviderPriority(ctx context.Context, provider domain.Provider, priority int) error
	UpsertDeviceTypePriority(ctx context.Context, deviceType domain.DeviceType, priority int) error
	// Replace* swap the whole table in one transaction so readers never observe
	// a partially-updated ranking.
	ReplaceProviderPriorities(ctx context.Context, priorities map[domain.Provider]int) error
	ReplaceDeviceTypePriorities(ctx context.Context, priorities map[domain.DeviceType]int) error
	// EnsureProviderPriority inserts the provider with the supplied priority,
	// or with max(existing)+1 when priority is nil, doing nothing if present.
	EnsureProviderPriority(ctx context.Context, provider domain.Provider, priority *int) error
}

// defaultProviderPriorities seeds the ranking for providers auto-created during
// identity resolution. Providers outside this table get max(existing)+1.
var defaultProviderPriorities = map[domain.Provider]int{
	domain.ProviderApple:    1,
	domain.ProviderGarmin:   2,
	domain.ProviderOura:     3,
	domain.ProviderWhoop:    4,
	domain.ProviderPolar:    5,
	domain.ProviderFitbit:   6,
	domain.ProviderSuunto:   7,
	domain.ProviderWithings: 8,
}

// defaultDeviceTypePriorities is the built-in device type ranking used when the
// table has not been configured.
var defaultDeviceTypePriorities = map[domain.DeviceType]int{
	domain.DeviceTypeWatch:   1,
	domain.DeviceTypeRing:    2,
	domain.DeviceTypeBand:    3,
	domain.DeviceTypePhone:   4,
	domain.DeviceTypeScale:   5,
	domain.DeviceTypeOther:   6,
	domain.DeviceTypeUnknown: 7,
}

// Resolver answers ranking queries and applies administrative priority changes.
type Resolver struct {
	repo Repository
}

// NewResolver constructs a Resolver.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// ProviderPriorityOrder returns the configured provider ranking, or the
// built-in defaults when nothing has been configured.
func (r *Resolver) ProviderPriorityOrder(ctx context.Context) (map[domain.Provider]int, error) {
	priorities, err := r.repo.ProviderPriorities(ctx)
	if err != nil {
		return nil, err
	}
	if len(priorities) == 0 {
		return cloneMap(defaultProviderPriorities), nil
	}
	return priorities, nil
}

// DeviceTypePriorityOrder returns the configured device type ranking, or the
// built-in defaults when nothing has been configured.
func (r *Resolver) DeviceTypePriorityOrder(ctx context.Context) (map[domain.DeviceType]int, error) {
	priorities, err := r.repo.DeviceTypePriorities(ctx)
	if err != nil {
		return nil, err
	}
	if len(priorities) == 0 {
		return cloneMap(defaultDeviceTypePriorities), nil
	}
	return priorities, nil
}

// RankDataSources sorts sources by (provider priority, device type priority,
// device model). The order is total: ties on both priorities break on the
// device model string, absent models comparing as "", so identical input always
// produces identical output.
func (r *Resolver) RankDataSources(ctx context.Context, sources []domain.DataSource) ([]domain.DataSource, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	providerOrder, err := r.ProviderPriorityOrder(ctx)
	if err != nil {
		return nil, err
	}
	deviceOrder, err := r.DeviceTypePriorityOrder(ctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]domain.DataSource, len(sources))
	copy(ranked, sources)
	slices.SortStableFunc(ranked, func(a, b domain.DataSource) int {
		if c := priorityOf(providerOrder, a.Provider) - priorityOf(providerOrder, b.Provider); c != 0 {
			return c
		}
		if c := priorityOf(deviceOrder, a.DeviceType) - priorityOf(deviceOrder, b.DeviceType); c != 0 {
			return c
		}
		return strings.Compare(domain.Deref(a.DeviceModel), domain.Deref(b.DeviceModel))
	})
	return ranked, nil
}

// BestDataSource returns the top-ranked source, or nil for empty input. An
// empty input is a legitimate outcome, not an error.
func (r *Resolver) BestDataSource(ctx context.Context, sources []domain.DataSource) (*domain.DataSource, error) {
	ranked, err := r.RankDataSources(ctx, sources)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, nil
	}
	return &ranked[0], nil
}

// SetProviderPriority upserts one provider ranking entry.
func (r *Resolver) SetProviderPriority(ctx context.Context, provider domain.Provider, priority int) error {
	if _, err := domain.ParseProvider(string(provider)); err != nil {
		return err
	}
	return r.repo.UpsertProviderPriority(ctx, provider, priority)
}

// SetDeviceTypePriority upserts one device type ranking entry.
func (r *Resolver) SetDeviceTypePriority(ctx context.Context, deviceType domain.DeviceType, priority int) error {
	if !slices.Contains(domain.DeviceTypes(), deviceType) {
		return domain.ErrUnknownDeviceType
	}
	return r.repo.UpsertDeviceTypePriority(ctx, deviceType, priority)
}

// ReplaceProviderPriorities swaps the provider ranking table atomically.
func (r *Resolver) ReplaceProviderPriorities(ctx context.Context, priorities map[domain.Provider]int) error {
	for provider := range priorities {
		if _, err := domain.ParseProvider(string(provider)); err != nil {
			return err
		}
	}
	return r.repo.ReplaceProviderPriorities(ctx, priorities)
}

// ReplaceDeviceTypePriorities swaps the device type ranking table atomically.
func (r *Resolver) ReplaceDeviceTypePriorities(ctx context.Context, priorities map[domain.DeviceType]int) error {
	for deviceType := range priorities {
		if !slices.Contains(domain.DeviceTypes(), deviceType) {
			return domain.ErrUnknownDeviceType
		}
	}
	return r.repo.ReplaceDeviceTypePriorities(ctx, priorities)
}

// EnsureProviderPriority provisions a ranking entry for a provider first seen
// during identity resolution, using the documented default when one exists.
func (r *Resolver) EnsureProviderPriority(ctx context.Context, provider domain.Provider) error {
	var priority *int
	if seeded, ok := defaultProviderPriorities[provider]; ok {
		priority = &seeded
	}
	return r.repo.EnsureProviderPriority(ctx, provider, priority)
}

func priorityOf[K comparable](order map[K]int, key K) int {
	if priority, ok := order[key]; ok {
		return priority
	}
	return DefaultPriority
}

func cloneMap[K comparable](source map[K]int) map[K]int {
	out := make(map[K]int, len(source))
	for key, value := range source {
		out[key] = value
	}
	return out
}
