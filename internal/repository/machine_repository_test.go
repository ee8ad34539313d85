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

// newFixture opens a fresh in-memory datastore and seeds the domain and
// architecture every machine needs.
func newFixture(t *testing.T, testName string) (*datastore.Datastore, domain.Domain, domain.Architecture) {
	t.Helper()
	ds, err := datastore.New(testutil.NewTestDSN(testName))
	require.NoError(t, err)

	d, err := ds.CreateDomain(domain.Domain{
		Name:           "example.com",
		CobblerServers: []string{"cobbler1.example.com", "cobbler2.example.com"},
	})
	require.NoError(t, err)

	arch, err := ds.CreateArchitecture(domain.Architecture{
		Name:           "x86_64",
		DefaultProfile: "x86_64:SLE-15-SP5:install",
	})
	require.NoError(t, err)

	return ds, d, arch
}

func newMachine(fqdn string, d domain.Domain, arch domain.Architecture) domain.Machine {
	return domain.Machine{
		FQDN:           fqdn,
		IPv4:           "192.168.1.100",
		Active:         true,
		DomainID:       d.ID,
		ArchitectureID: arch.ID,
	}
}

func TestMachineRepository_Save(t *testing.T) {
	ds, d, arch := newFixture(t, "TestMachineRepository_Save")
	repo := NewMachineRepository(ds)
	ctx := context.Background()

	saved, err := repo.Save(ctx, newMachine("host-a.example.com", d, arch))
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.Equal(t, "host-a.example.com", saved.FQDN)

	// Update
	saved.IPv4 = "192.168.1.101"
	updated, err := repo.Save(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)

	found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.101", found.IPv4)
}

func TestMachineRepository_FindByID(t *testing.T) {
	ds, d, arch := newFixture(t, "TestMachineRepository_FindByID")
	repo := NewMachineRepository(ds)
	ctx := context.Background()

	saved, err := repo.Save(ctx, newMachine("host-a.example.com", d, arch))
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, found.ID)
	assert.Equal(t, "host-a.example.com", found.FQDN)

	// Test not found
	_, err = repo.FindByID(ctx, 99999)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMachineRepository_FindByFQDN(t *testing.T) {
	ds, d, arch := newFixture(t, "TestMachineRepository_FindByFQDN")
	repo := NewMachineRepository(ds)
	ctx := context.Background()

	saved, err := repo.Save(ctx, newMachine("host-a.example.com", d, arch))
	require.NoError(t, err)

	found, err := repo.FindByFQDN(ctx, "host-a.example.com")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, found.ID)

	_, err = repo.FindByFQDN(ctx, "nope.example.com")
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMachineRepository_BMCRoundTrip(t *testing.T) {
	ds, d, arch := newFixture(t, "TestMachineRepository_BMCRoundTrip")
	repo := NewMachineRepository(ds)
	ctx := context.Background()

	machine := newMachine("host-a.example.com", d, arch)
	machine.BMC = &domain.BMC{FQDN: "bmc-a.example.com", MAC: "aa:bb:cc:dd:ee:ff"}
	saved, err := repo.Save(ctx, machine)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, found.BMC)
	assert.Equal(t, "bmc-a.example.com", found.BMC.FQDN)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", found.BMC.MAC)
	assert.True(t, found.HasBMC())

	// Machines without a BMC come back with a nil reference.
	plain, err := repo.Save(ctx, newMachine("host-b.example.com", d, arch))
	require.NoError(t, err)
	found, err = repo.FindByID(ctx, plain.ID)
	require.NoError(t, err)
	assert.Nil(t, found.BMC)
}

func TestMachineRepository_FindActiveByDomain(t *testing.T) {
	ds, d, arch := newFixture(t, "TestMachineRepository_FindActiveByDomain")
	repo := NewMachineRepository(ds)
	ctx := context.Background()

	_, err := repo.Save(ctx, newMachine("b.example.com", d, arch))
	require.NoError(t, err)
	_, err = repo.Save(ctx, newMachine("a.example.com", d, arch))
	require.NoError(t, err)

	inactive := newMachine("c.example.com", d, arch)
	inactive.Active = false
	_, err = repo.Save(ctx, inactive)
	require.NoError(t, err)

	machines, err := repo.FindActiveByDomain(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, machines, 2)
	assert.Equal(t, "a.example.com", machines[0].FQDN)
	assert.Equal(t, "b.example.com", machines[1].FQDN)

	// References come back resolved, ready for command construction.
	require.NotNil(t, machines[0].Architecture)
	assert.Equal(t, "x86_64:SLE-15-SP5:install", machines[0].Architecture.DefaultProfile)
	require.NotNil(t, machines[0].Domain)
	assert.Equal(t, []string{"cobbler1.example.com", "cobbler2.example.com"}, machines[0].Domain.CobblerServers)
}

func TestMachineRepository_Resolve(t *testing.T) {
	ds, d, arch := newFixture(t, "TestMachineRepository_Resolve")
	repo := NewMachineRepository(ds)
	ctx := context.Background()

	group, err := ds.CreateMachineGroup(domain.MachineGroup{
		Name:         "compute",
		DHCPFilename: "pxelinux/{{ machine.hostname }}",
	})
	require.NoError(t, err)

	machine := newMachine("host-a.example.com", d, arch)
	machine.GroupID = &group.ID
	saved, err := repo.Save(ctx, machine)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Resolve(ctx, &found))
	require.NotNil(t, found.Group)
	assert.Equal(t, "compute", found.Group.Name)
	require.NotNil(t, found.Architecture)
	require.NotNil(t, found.Domain)
}

func TestMachineRepository_DeleteByID(t *testing.T) {
	ds, d, arch := newFixture(t, "TestMachineRepository_DeleteByID")
	repo := NewMachineRepository(ds)
	ctx := context.Background()

	saved, err := repo.Save(ctx, newMachine("host-a.example.com", d, arch))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByID(ctx, saved.ID))

	_, err = repo.FindByID(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := repo.ExistsByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}
