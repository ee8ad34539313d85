package repository

import (
	"context"
	"fmt"

	"github.com/jbweber/homelab/provisiond/internal/datastore"
	"github.com/jbweber/homelab/provisiond/internal/domain"
)

// PowerDeviceRepository manages the power control configuration attached
// to machines. Save always runs validation and field normalization before
// anything reaches the database.
type PowerDeviceRepository interface {
	// Save validates, normalizes and persists a power device
	Save(ctx context.Context, device domain.PowerDevice) (domain.PowerDevice, error)

	// FindByMachineID retrieves the power device of a machine with its
	// management BMC and control device references resolved
	FindByMachineID(ctx context.Context, machineID int64) (domain.PowerDevice, error)

	// DeleteByMachineID removes the power device of a machine
	DeleteByMachineID(ctx context.Context, machineID int64) error
}

// powerDeviceRepositoryImpl implements PowerDeviceRepository
type powerDeviceRepositoryImpl struct {
	ds *datastore.Datastore
}

// NewPowerDeviceRepository creates a new power device repository
func NewPowerDeviceRepository(ds *datastore.Datastore) PowerDeviceRepository {
	return &powerDeviceRepositoryImpl{ds: ds}
}

// Save validates and persists a power device. The owning machine must
// exist; the control device, if referenced, is looked up so validation
// can check its system type.
func (r *powerDeviceRepositoryImpl) Save(ctx context.Context, device domain.PowerDevice) (domain.PowerDevice, error) {
	owner, err := r.ds.GetMachine(device.MachineID)
	if err != nil {
		return domain.PowerDevice{}, fmt.Errorf("failed to look up owning machine: %w", err)
	}
	if owner == nil {
		return domain.PowerDevice{}, fmt.Errorf("machine with ID %d: %w", device.MachineID, ErrNotFound)
	}

	var control *domain.Machine
	if device.ControlDeviceID != nil {
		control, err = r.ds.GetMachine(*device.ControlDeviceID)
		if err != nil {
			return domain.PowerDevice{}, fmt.Errorf("failed to look up control device: %w", err)
		}
	}

	if err := device.ValidateAndNormalize(*owner, control); err != nil {
		return domain.PowerDevice{}, err
	}

	saved, err := r.ds.UpsertPowerDevice(device)
	if err != nil {
		return domain.PowerDevice{}, fmt.Errorf("failed to save power device: %w", err)
	}
	return r.resolve(saved)
}

// FindByMachineID retrieves the power device of a machine
func (r *powerDeviceRepositoryImpl) FindByMachineID(ctx context.Context, machineID int64) (domain.PowerDevice, error) {
	device, err := r.ds.GetPowerDevice(machineID)
	if err != nil {
		return domain.PowerDevice{}, fmt.Errorf("failed to find power device: %w", err)
	}
	if device == nil {
		return domain.PowerDevice{}, fmt.Errorf("power device for machine %d: %w", machineID, ErrNotFound)
	}
	return r.resolve(*device)
}

// DeleteByMachineID removes the power device of a machine
func (r *powerDeviceRepositoryImpl) DeleteByMachineID(ctx context.Context, machineID int64) error {
	if err := r.ds.DeletePowerDevice(machineID); err != nil {
		return fmt.Errorf("failed to delete power device: %w", err)
	}
	return nil
}

// resolve populates the management BMC and control device references.
func (r *powerDeviceRepositoryImpl) resolve(device domain.PowerDevice) (domain.PowerDevice, error) {
	if device.ManagementBMCID != nil {
		bmc, err := r.ds.GetMachine(*device.ManagementBMCID)
		if err != nil {
			return domain.PowerDevice{}, fmt.Errorf("failed to resolve management BMC: %w", err)
		}
		device.ManagementBMC = bmc
	}
	if device.ControlDeviceID != nil {
		control, err := r.ds.GetMachine(*device.ControlDeviceID)
		if err != nil {
			return domain.PowerDevice{}, fmt.Errorf("failed to resolve control device: %w", err)
		}
		device.ControlDevice = control
	}
	return device, nil
}
