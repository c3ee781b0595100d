// Package identity resolves vendor device identities to canonical DataSource rows.
package identity

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/the-momentum/open-wearables-sub000/internal/domain"
	"github.com/the-momentum/open-wearables-sub000/internal/observability"
)

// Repository captures the persistence operations the resolver needs. Inserts
// are conflict tolerant: a row lost to a concurrent writer is not an error.
type Repository interface {
	FindByIdentity(ctx context.Context, provider domain.Provider, key domain.IdentityKey) (*domain.DataSource, error)
	// Insert attempts to create the row. It reports false without error when a
	// concurrent writer already created the same identity.
	Insert(ctx context.Context, source domain.DataSource) (bool, error)
	// FillOptionalFields sets currently-NULL optional columns from the supplied
	// row without overwriting populated ones.
	FillOptionalFields(ctx context.Context, source domain.DataSource) error
	FindByIdentities(ctx context.Context, provider domain.Provider, keys []domain.IdentityKey) ([]domain.DataSource, error)
	InsertBatch(ctx context.Context, sources []domain.DataSource) error
}

// PriorityProvisioner auto-creates a provider ranking entry the first time a
// provider is seen during resolution.
type PriorityProvisioner interface {
	EnsureProviderPriority(ctx context.Context, provider domain.Provider) error
}

// Input carries the identity attributes supplied by an ingestion adapter.
// Optional fields are empty strings when absent.
type Input struct {
	UserID             string
	Provider           domain.Provider
	DeviceModel        string
	SoftwareVersion    string
	Source             string
	OriginalSourceName string
}

// BatchIdentity is one member of a bulk resolution request.
type BatchIdentity struct {
	UserID      string
	DeviceModel string
	Source      string
}

// Resolver implements the ensure-or-create contract for data sources.
type Resolver struct {
	repo       Repository
	priorities PriorityProvisioner
	logger     *log.Logger
}

// Option configures optional behaviour for the Resolver.
type Option func(*Resolver)

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver constructs a Resolver.
func NewResolver(repo Repository, priorities PriorityProvisioner, opts ...Option) *Resolver {
	r := &Resolver{
		repo:       repo,
		priorities: priorities,
		logger:     log.New(log.Writer(), "[identity] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureDataSource looks up the identity and creates it if absent. Repeated and
// concurrent calls for the same identity converge on one row: the insert is
// conflict tolerant and the loser of a race re-reads the winner's row.
func (r *Resolver) EnsureDataSource(ctx context.Context, input Input) (*domain.DataSource, error) {
	if input.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if _, err := domain.ParseProvider(string(input.Provider)); err != nil {
		return nil, fmt.Errorf("provider %q: %w", input.Provider, err)
	}

	key := domain.IdentityKey{
		UserID:      input.UserID,
		DeviceModel: input.DeviceModel,
		Source:      input.Source,
	}

	existing, err := r.repo.FindByIdentity(ctx, input.Provider, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return r.fillMissing(ctx, existing, input)
	}

	if err := r.priorities.EnsureProviderPriority(ctx, input.Provider); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	candidate := domain.DataSource{
		ID:                 uuid.NewString(),
		UserID:             input.UserID,
		Provider:           input.Provider,
		DeviceModel:        domain.Ptr(input.DeviceModel),
		SoftwareVersion:    domain.Ptr(input.SoftwareVersion),
		Source:             domain.Ptr(input.Source),
		DeviceType:         InferDeviceType(input.DeviceModel, input.OriginalSourceName),
		OriginalSourceName: domain.Ptr(input.OriginalSourceName),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	inserted, err := r.repo.Insert(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if inserted {
		return &candidate, nil
	}

	// A concurrent writer won the race; adopt its row.
	observability.RecordIdentityRace()
	r.logger.Printf("identity race for user=%s provider=%s, re-reading", input.UserID, input.Provider)
	winner, err := r.repo.FindByIdentity(ctx, input.Provider, key)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, fmt.Errorf("data source vanished after conflicting insert for user %s", input.UserID)
	}
	return r.fillMissing(ctx, winner, input)
}

// fillMissing copies supplied values into unset optional fields and re-infers
// the device type when it is still unknown. Populated fields are never overwritten.
func (r *Resolver) fillMissing(ctx context.Context, existing *domain.DataSource, input Input) (*domain.DataSource, error) {
	changed := false
	if existing.DeviceModel == nil && input.DeviceModel != "" {
		existing.DeviceModel = domain.Ptr(input.DeviceModel)
		changed = true
	}
	if existing.SoftwareVersion == nil && input.SoftwareVersion != "" {
		existing.SoftwareVersion = domain.Ptr(input.SoftwareVersion)
		changed = true
	}
	if existing.Source == nil && input.Source != "" {
		existing.Source = domain.Ptr(input.Source)
		changed = true
	}
	if existing.OriginalSourceName == nil && input.OriginalSourceName != "" {
		existing.OriginalSourceName = domain.Ptr(input.OriginalSourceName)
		changed = true
	}
	if existing.DeviceType == "" || existing.DeviceType == domain.DeviceTypeUnknown {
		inferred := InferDeviceType(domain.Deref(existing.DeviceModel), domain.Deref(existing.OriginalSourceName))
		if inferred != existing.DeviceType {
			existing.DeviceType = inferred
			changed = true
		}
	}
	if !changed {
		return existing, nil
	}

	existing.UpdatedAt = time.Now().UTC()
	if err := r.repo.FillOptionalFields(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// EnsureDataSourcesBatch resolves every identity in one read, one conflict
// tolerant bulk insert, and one re-read. The returned map is total over the
// input set regardless of how many concurrent writers raced the call.
func (r *Resolver) EnsureDataSourcesBatch(ctx context.Context, provider domain.Provider, identities []BatchIdentity) (map[domain.IdentityKey]string, error) {
	if _, err := domain.ParseProvider(string(provider)); err != nil {
		return nil, fmt.Errorf("provider %q: %w", provider, err)
	}
	if len(identities) == 0 {
		return map[domain.IdentityKey]string{}, nil
	}

	keys := make([]domain.IdentityKey, 0, len(identities))
	seen := make(map[domain.IdentityKey]struct{}, len(identities))
	for _, identity := range identities {
		key := domain.IdentityKey{
			UserID:      identity.UserID,
			DeviceModel: identity.DeviceModel,
			Source:      identity.Source,
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	existing, err := r.repo.FindByIdentities(ctx, provider, keys)
	if err != nil {
		return nil, err
	}

	resolved := make(map[domain.IdentityKey]string, len(keys))
	for _, source := range existing {
		resolved[source.Identity()] = source.ID
	}

	missing := make([]domain.DataSource, 0)
	missingKeys := make([]domain.IdentityKey, 0)
	now := time.Now().UTC()
	for _, key := range keys {
		if _, ok := resolved[key]; ok {
			continue
		}
		missingKeys = append(missingKeys, key)
		missing = append(missing, domain.DataSource{
			ID:          uuid.NewString(),
			UserID:      key.UserID,
			Provider:    provider,
			DeviceModel: domain.Ptr(key.DeviceModel),
			Source:      domain.Ptr(key.Source),
			DeviceType:  InferDeviceType(key.DeviceModel, ""),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if len(missing) == 0 {
		return resolved, nil
	}

	if err := r.priorities.EnsureProviderPriority(ctx, provider); err != nil {
		return nil, err
	}
	if err := r.repo.InsertBatch(ctx, missing); err != nil {
		return nil, err
	}

	// Re-read the previously missing tuples to pick up ids assigned by
	// whichever writer won each insert.
	created, err := r.repo.FindByIdentities(ctx, provider, missingKeys)
	if err != nil {
		return nil, err
	}
	for _, source := range created {
		resolved[source.Identity()] = source.ID
	}

	for _, key := range keys {
		if _, ok := resolved[key]; !ok {
			return nil, fmt.Errorf("batch resolution left identity unresolved for user %s", key.UserID)
		}
	}
	return resolved, nil
}
