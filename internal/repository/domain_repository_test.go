package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/homelab/provisiond/internal/datastore"
	"github.com/jbweber/homelab/provisiond/internal/domain"
	"github.com/jbweber/homelab/provisiond/internal/testutil"
)

func TestDomainRepository_SaveAndFind(t *testing.T) {
	ds, err := datastore.New(testutil.NewTestDSN("TestDomainRepository_SaveAndFind"))
	require.NoError(t, err)

	repo := NewDomainRepository(ds)
	ctx := context.Background()

	saved, err := repo.Save(ctx, domain.Domain{
		Name:           "lab.example.com",
		TFTPServer:     "tftp.example.com",
		CobblerServers: []string{"c1.example.com", "c2.example.com", "c3.example.com"},
	})
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "lab.example.com", found.Name)
	// Controller hosts come back in configured order; failover depends on it.
	assert.Equal(t, []string{"c1.example.com", "c2.example.com", "c3.example.com"}, found.CobblerServers)

	byName, err := repo.FindByName(ctx, "lab.example.com")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, byName.ID)

	_, err = repo.FindByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindByName(ctx, "nope.example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServerConfigRepository(t *testing.T) {
	ds, err := datastore.New(testutil.NewTestDSN("TestServerConfigRepository"))
	require.NoError(t, err)

	repo := NewServerConfigRepository(ds)
	ctx := context.Background()

	// Absent keys read as empty, not as an error.
	value, err := repo.ByKey(ctx, "remotepower.ipmi.password")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, repo.Set(ctx, "remotepower.ipmi.password", "secret"))
	value, err = repo.ByKey(ctx, "remotepower.ipmi.password")
	require.NoError(t, err)
	assert.Equal(t, "secret", value)

	// Set overwrites.
	require.NoError(t, repo.Set(ctx, "remotepower.ipmi.password", "rotated"))
	value, err = repo.ByKey(ctx, "remotepower.ipmi.password")
	require.NoError(t, err)
	assert.Equal(t, "rotated", value)
}

func TestProvisioningStores(t *testing.T) {
	ds, err := datastore.New(testutil.NewTestDSN("TestProvisioningStores"))
	require.NoError(t, err)

	stores := &ProvisioningStores{
		Machines: NewMachineRepository(ds),
		Devices:  NewPowerDeviceRepository(ds),
		Domains:  NewDomainRepository(ds),
	}
	ctx := context.Background()

	d, err := stores.Domains.Save(ctx, domain.Domain{
		Name:           "example.com",
		CobblerServers: []string{"c1.example.com"},
	})
	require.NoError(t, err)

	arch, err := ds.CreateArchitecture(domain.Architecture{Name: "x86_64", DefaultProfile: "x86_64:p:install"})
	require.NoError(t, err)

	machine, err := stores.Machines.Save(ctx, domain.Machine{
		FQDN: "host-a.example.com", Active: true, DomainID: d.ID, ArchitectureID: arch.ID,
	})
	require.NoError(t, err)

	machines, err := stores.ActiveMachines(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, machines, 1)
	assert.Equal(t, "host-a.example.com", machines[0].FQDN)

	// No power device reads as nil, not as an error.
	device, err := stores.PowerDevice(ctx, machine.ID)
	require.NoError(t, err)
	assert.Nil(t, device)

	resolved, err := stores.DomainByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1.example.com"}, resolved.CobblerServers)
}
