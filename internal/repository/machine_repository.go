package repository

import (
	"context"
	"fmt"

	"github.com/jbweber/homelab/provisiond/internal/datastore"
	"github.com/jbweber/homelab/provisiond/internal/domain"
)

// MachineRepository extends the generic Repository with machine-specific
// operations.
type MachineRepository interface {
	Repository[domain.Machine, int64]

	// FindByFQDN retrieves a machine by its FQDN
	FindByFQDN(ctx context.Context, fqdn string) (domain.Machine, error)

	// FindActiveByDomain retrieves all active machines of a domain with
	// their group/architecture/domain references resolved
	FindActiveByDomain(ctx context.Context, domainID int64) ([]domain.Machine, error)

	// Resolve populates the group/architecture/domain references of a
	// machine for command construction
	Resolve(ctx context.Context, m *domain.Machine) error
}

// machineRepositoryImpl implements MachineRepository
type machineRepositoryImpl struct {
	ds *datastore.Datastore
}

// NewMachineRepository creates a new machine repository
func NewMachineRepository(ds *datastore.Datastore) MachineRepository {
	return &machineRepositoryImpl{ds: ds}
}

// Save creates or updates a machine
func (r *machineRepositoryImpl) Save(ctx context.Context, machine domain.Machine) (domain.Machine, error) {
	if machine.ID == 0 {
		created, err := r.ds.CreateMachine(machine)
		if err != nil {
			return domain.Machine{}, fmt.Errorf("failed to create machine: %w", err)
		}
		return created, nil
	}
	updated, err := r.ds.UpdateMachine(machine)
	if err != nil {
		return domain.Machine{}, fmt.Errorf("failed to update machine: %w", err)
	}
	return updated, nil
}

// FindByID retrieves a machine by its ID
func (r *machineRepositoryImpl) FindByID(ctx context.Context, id int64) (domain.Machine, error) {
	machine, err := r.ds.GetMachine(id)
	if err != nil {
		return domain.Machine{}, fmt.Errorf("failed to find machine: %w", err)
	}
	if machine == nil {
		return domain.Machine{}, fmt.Errorf("machine with ID %d: %w", id, ErrNotFound)
	}
	return *machine, nil
}

// FindAll retrieves all machines
func (r *machineRepositoryImpl) FindAll(ctx context.Context) ([]domain.Machine, error) {
	machines, err := r.ds.ListMachines()
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	return machines, nil
}

// DeleteByID removes a machine by its ID. The machine's power device is
// removed with it (cascade).
func (r *machineRepositoryImpl) DeleteByID(ctx context.Context, id int64) error {
	if err := r.ds.DeleteMachine(id); err != nil {
		return fmt.Errorf("failed to delete machine: %w", err)
	}
	return nil
}

// ExistsByID checks if a machine exists by its ID
func (r *machineRepositoryImpl) ExistsByID(ctx context.Context, id int64) (bool, error) {
	machine, err := r.ds.GetMachine(id)
	if err != nil {
		return false, fmt.Errorf("failed to check machine existence: %w", err)
	}
	return machine != nil, nil
}

// FindByFQDN retrieves a machine by its FQDN
func (r *machineRepositoryImpl) FindByFQDN(ctx context.Context, fqdn string) (domain.Machine, error) {
	machine, err := r.ds.GetMachineByFQDN(fqdn)
	if err != nil {
		return domain.Machine{}, fmt.Errorf("failed to find machine by FQDN: %w", err)
	}
	if machine == nil {
		return domain.Machine{}, fmt.Errorf("machine with FQDN %s: %w", fqdn, ErrNotFound)
	}
	return *machine, nil
}

// FindActiveByDomain retrieves all active machines of a domain, resolved
// for command construction.
func (r *machineRepositoryImpl) FindActiveByDomain(ctx context.Context, domainID int64) ([]domain.Machine, error) {
	machines, err := r.ds.ListActiveMachinesByDomain(domainID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active machines: %w", err)
	}
	for i := range machines {
		if err := r.ds.ResolveMachine(&machines[i]); err != nil {
			return nil, fmt.Errorf("failed to resolve machine %s: %w", machines[i].FQDN, err)
		}
	}
	return machines, nil
}

// Resolve populates the group/architecture/domain references of a machine
func (r *machineRepositoryImpl) Resolve(ctx context.Context, m *domain.Machine) error {
	if err := r.ds.ResolveMachine(m); err != nil {
		return fmt.Errorf("failed to resolve machine %s: %w", m.FQDN, err)
	}
	return nil
}
