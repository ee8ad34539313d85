package repository

import (
	"context"
	"fmt"

	"github.com/jbweber/homelab/provisiond/internal/datastore"
	"github.com/jbweber/homelab/provisiond/internal/domain"
)

// DomainRepository manages network domains and their controller host lists.
type DomainRepository interface {
	// Save creates a domain together with its ordered controller hosts
	Save(ctx context.Context, d domain.Domain) (domain.Domain, error)

	// FindByID retrieves a domain by its ID
	FindByID(ctx context.Context, id int64) (domain.Domain, error)

	// FindByName retrieves a domain by its name
	FindByName(ctx context.Context, name string) (domain.Domain, error)
}

// domainRepositoryImpl implements DomainRepository
type domainRepositoryImpl struct {
	ds *datastore.Datastore
}

// NewDomainRepository creates a new domain repository
func NewDomainRepository(ds *datastore.Datastore) DomainRepository {
	return &domainRepositoryImpl{ds: ds}
}

// Save creates a domain
func (r *domainRepositoryImpl) Save(ctx context.Context, d domain.Domain) (domain.Domain, error) {
	saved, err := r.ds.CreateDomain(d)
	if err != nil {
		return domain.Domain{}, fmt.Errorf("failed to create domain: %w", err)
	}
	return saved, nil
}

// FindByID retrieves a domain by its ID
func (r *domainRepositoryImpl) FindByID(ctx context.Context, id int64) (domain.Domain, error) {
	d, err := r.ds.GetDomain(id)
	if err != nil {
		return domain.Domain{}, fmt.Errorf("failed to find domain: %w", err)
	}
	if d == nil {
		return domain.Domain{}, fmt.Errorf("domain with ID %d: %w", id, ErrNotFound)
	}
	return *d, nil
}

// FindByName retrieves a domain by its name
func (r *domainRepositoryImpl) FindByName(ctx context.Context, name string) (domain.Domain, error) {
	d, err := r.ds.GetDomainByName(name)
	if err != nil {
		return domain.Domain{}, fmt.Errorf("failed to find domain by name: %w", err)
	}
	if d == nil {
		return domain.Domain{}, fmt.Errorf("domain with name %s: %w", name, ErrNotFound)
	}
	return *d, nil
}
