package repository

import (
	"context"
	"errors"

	"github.com/jbweber/homelab/provisiond/internal/domain"
)

// ProvisioningStores bundles the repositories behind the interfaces the
// provisioning orchestrator and the power switcher consume
// (cobbler.Inventory, power.DomainSource).
type ProvisioningStores struct {
	Machines MachineRepository
	Devices  PowerDeviceRepository
	Domains  DomainRepository
}

// ActiveMachines lists the active machines of a domain, resolved for
// command construction.
func (s *ProvisioningStores) ActiveMachines(ctx context.Context, domainID int64) ([]domain.Machine, error) {
	return s.Machines.FindActiveByDomain(ctx, domainID)
}

// PowerDevice returns the power device of a machine, nil when it has none.
func (s *ProvisioningStores) PowerDevice(ctx context.Context, machineID int64) (*domain.PowerDevice, error) {
	device, err := s.Devices.FindByMachineID(ctx, machineID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

// DomainByID resolves a domain with its ordered controller host list.
func (s *ProvisioningStores) DomainByID(ctx context.Context, id int64) (domain.Domain, error) {
	return s.Domains.FindByID(ctx, id)
}
