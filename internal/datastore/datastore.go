package datastore

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"

	"github.com/jbweber/homelab/provisiond/internal/domain"
	"github.com/jbweber/homelab/provisiond/internal/migrations"
)

// Datastore provides raw SQL access to the inventory database.
type Datastore struct {
	DB *sql.DB
}

// New opens the database at path, enables foreign keys and runs all
// migrations.
func New(path string) (*Datastore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Datastore{DB: db}, nil
}

// migrate runs all registered migrations against db.
func migrate(db *sql.DB) error {
	migrator := migrations.NewMigrator(db)
	for _, migration := range migrations.GetInitialMigrations() {
		migrator.AddMigration(migration)
	}
	for _, migration := range migrations.GetPerformanceMigrations() {
		migrator.AddMigration(migration)
	}
	if err := migrator.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Printf("failed to close rows: %v", err)
	}
}

// --- domains ---

// CreateDomain inserts a new domain together with its ordered controller
// host list.
func (ds *Datastore) CreateDomain(d domain.Domain) (domain.Domain, error) {
	if d.Name == "" {
		return domain.Domain{}, fmt.Errorf("domain name is required")
	}
	res, err := ds.DB.Exec("INSERT INTO domains (name, tftp_server) VALUES (?, ?)", d.Name, d.TFTPServer)
	if err != nil {
		return domain.Domain{}, err
	}
	d.ID, err = res.LastInsertId()
	if err != nil {
		return domain.Domain{}, err
	}
	for i, fqdn := range d.CobblerServers {
		_, err = ds.DB.Exec(
			"INSERT INTO domain_cobbler_servers (domain_id, fqdn, position) VALUES (?, ?, ?)",
			d.ID, fqdn, i)
		if err != nil {
			return domain.Domain{}, err
		}
	}
	return d, nil
}

// GetDomain retrieves a domain by ID, nil if it does not exist.
func (ds *Datastore) GetDomain(id int64) (*domain.Domain, error) {
	var d domain.Domain
	err := ds.DB.QueryRow("SELECT id, name, tftp_server FROM domains WHERE id = ?", id).
		Scan(&d.ID, &d.Name, &d.TFTPServer)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if d.CobblerServers, err = ds.listCobblerServers(d.ID); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDomainByName retrieves a domain by name, nil if it does not exist.
func (ds *Datastore) GetDomainByName(name string) (*domain.Domain, error) {
	var d domain.Domain
	err := ds.DB.QueryRow("SELECT id, name, tftp_server FROM domains WHERE name = ?", name).
		Scan(&d.ID, &d.Name, &d.TFTPServer)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if d.CobblerServers, err = ds.listCobblerServers(d.ID); err != nil {
		return nil, err
	}
	return &d, nil
}

// listCobblerServers returns the controller host FQDNs of a domain in
// configured order.
func (ds *Datastore) listCobblerServers(domainID int64) ([]string, error) {
	rows, err := ds.DB.Query(
		"SELECT fqdn FROM domain_cobbler_servers WHERE domain_id = ? ORDER BY position ASC", domainID)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)
	var servers []string
	for rows.Next() {
		var fqdn string
		if err := rows.Scan(&fqdn); err != nil {
			return nil, err
		}
		servers = append(servers, fqdn)
	}
	return servers, rows.Err()
}

// --- machine groups / architectures ---

// CreateMachineGroup inserts a new machine group.
func (ds *Datastore) CreateMachineGroup(g domain.MachineGroup) (domain.MachineGroup, error) {
	if g.Name == "" {
		return domain.MachineGroup{}, fmt.Errorf("group name is required")
	}
	res, err := ds.DB.Exec(
		"INSERT INTO machine_groups (name, dhcp_filename, tftp_server) VALUES (?, ?, ?)",
		g.Name, g.DHCPFilename, g.TFTPServer)
	if err != nil {
		return domain.MachineGroup{}, err
	}
	g.ID, err = res.LastInsertId()
	return g, err
}

// GetMachineGroup retrieves a machine group by ID, nil if it does not exist.
func (ds *Datastore) GetMachineGroup(id int64) (*domain.MachineGroup, error) {
	var g domain.MachineGroup
	err := ds.DB.QueryRow(
		"SELECT id, name, dhcp_filename, tftp_server FROM machine_groups WHERE id = ?", id).
		Scan(&g.ID, &g.Name, &g.DHCPFilename, &g.TFTPServer)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateArchitecture inserts a new architecture.
func (ds *Datastore) CreateArchitecture(a domain.Architecture) (domain.Architecture, error) {
	if a.Name == "" {
		return domain.Architecture{}, fmt.Errorf("architecture name is required")
	}
	res, err := ds.DB.Exec(
		"INSERT INTO architectures (name, dhcp_filename, default_profile) VALUES (?, ?, ?)",
		a.Name, a.DHCPFilename, a.DefaultProfile)
	if err != nil {
		return domain.Architecture{}, err
	}
	a.ID, err = res.LastInsertId()
	return a, err
}

// GetArchitecture retrieves an architecture by ID, nil if it does not exist.
func (ds *Datastore) GetArchitecture(id int64) (*domain.Architecture, error) {
	var a domain.Architecture
	err := ds.DB.QueryRow(
		"SELECT id, name, dhcp_filename, default_profile FROM architectures WHERE id = ?", id).
		Scan(&a.ID, &a.Name, &a.DHCPFilename, &a.DefaultProfile)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// --- machines ---

const machineColumns = `id, fqdn, ipv4, ipv6, system_type, active, dhcp_filename,
	tftp_server, hypervisor_fqdn, domain_id, group_id, architecture_id, bmc_fqdn, bmc_mac`

func scanMachine(row interface{ Scan(...any) error }) (*domain.Machine, error) {
	var m domain.Machine
	var bmcFQDN, bmcMAC string
	err := row.Scan(&m.ID, &m.FQDN, &m.IPv4, &m.IPv6, &m.SystemType, &m.Active,
		&m.DHCPFilename, &m.TFTPServer, &m.HypervisorFQDN,
		&m.DomainID, &m.GroupID, &m.ArchitectureID, &bmcFQDN, &bmcMAC)
	if err != nil {
		return nil, err
	}
	if bmcFQDN != "" {
		m.BMC = &domain.BMC{FQDN: bmcFQDN, MAC: bmcMAC}
	}
	return &m, nil
}

// CreateMachine inserts a new machine, validating required fields.
func (ds *Datastore) CreateMachine(m domain.Machine) (domain.Machine, error) {
	if m.FQDN == "" {
		return domain.Machine{}, fmt.Errorf("machine FQDN is required")
	}
	if m.DomainID == 0 {
		return domain.Machine{}, fmt.Errorf("machine domain is required")
	}
	if m.ArchitectureID == 0 {
		return domain.Machine{}, fmt.Errorf("machine architecture is required")
	}
	var bmcFQDN, bmcMAC string
	if m.BMC != nil {
		bmcFQDN, bmcMAC = m.BMC.FQDN, m.BMC.MAC
	}
	res, err := ds.DB.Exec(`INSERT INTO machines
		(fqdn, ipv4, ipv6, system_type, active, dhcp_filename, tftp_server,
		 hypervisor_fqdn, domain_id, group_id, architecture_id, bmc_fqdn, bmc_mac)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.FQDN, m.IPv4, m.IPv6, m.SystemType, m.Active, m.DHCPFilename, m.TFTPServer,
		m.HypervisorFQDN, m.DomainID, m.GroupID, m.ArchitectureID, bmcFQDN, bmcMAC)
	if err != nil {
		return domain.Machine{}, err
	}
	m.ID, err = res.LastInsertId()
	return m, err
}

// UpdateMachine updates an existing machine's details by ID.
func (ds *Datastore) UpdateMachine(m domain.Machine) (domain.Machine, error) {
	if m.ID == 0 {
		return domain.Machine{}, fmt.Errorf("machine ID is required")
	}
	if m.FQDN == "" {
		return domain.Machine{}, fmt.Errorf("machine FQDN is required")
	}
	var bmcFQDN, bmcMAC string
	if m.BMC != nil {
		bmcFQDN, bmcMAC = m.BMC.FQDN, m.BMC.MAC
	}
	_, err := ds.DB.Exec(`UPDATE machines SET fqdn = ?, ipv4 = ?, ipv6 = ?,
		system_type = ?, active = ?, dhcp_filename = ?, tftp_server = ?,
		hypervisor_fqdn = ?, domain_id = ?, group_id = ?, architecture_id = ?,
		bmc_fqdn = ?, bmc_mac = ? WHERE id = ?`,
		m.FQDN, m.IPv4, m.IPv6, m.SystemType, m.Active, m.DHCPFilename, m.TFTPServer,
		m.HypervisorFQDN, m.DomainID, m.GroupID, m.ArchitectureID, bmcFQDN, bmcMAC, m.ID)
	if err != nil {
		return domain.Machine{}, err
	}
	return m, nil
}

// GetMachine retrieves a machine by ID, nil if it does not exist.
func (ds *Datastore) GetMachine(id int64) (*domain.Machine, error) {
	row := ds.DB.QueryRow("SELECT "+machineColumns+" FROM machines WHERE id = ?", id)
	m, err := scanMachine(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// GetMachineByFQDN retrieves a machine by FQDN, nil if it does not exist.
func (ds *Datastore) GetMachineByFQDN(fqdn string) (*domain.Machine, error) {
	row := ds.DB.QueryRow("SELECT "+machineColumns+" FROM machines WHERE fqdn = ?", fqdn)
	m, err := scanMachine(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// ListMachines returns all machines, ordered by FQDN.
func (ds *Datastore) ListMachines() ([]domain.Machine, error) {
	rows, err := ds.DB.Query("SELECT " + machineColumns + " FROM machines ORDER BY fqdn ASC")
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)
	var machines []domain.Machine
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, err
		}
		machines = append(machines, *m)
	}
	return machines, rows.Err()
}

// ListActiveMachinesByDomain returns all active machines of a domain,
// ordered by FQDN.
func (ds *Datastore) ListActiveMachinesByDomain(domainID int64) ([]domain.Machine, error) {
	rows, err := ds.DB.Query(
		"SELECT "+machineColumns+" FROM machines WHERE domain_id = ? AND active = 1 ORDER BY fqdn ASC",
		domainID)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)
	var machines []domain.Machine
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, err
		}
		machines = append(machines, *m)
	}
	return machines, rows.Err()
}

// DeleteMachine removes a machine by ID. The power device, if any, goes
// with it via ON DELETE CASCADE.
func (ds *Datastore) DeleteMachine(id int64) error {
	_, err := ds.DB.Exec("DELETE FROM machines WHERE id = ?", id)
	return err
}

// ResolveMachine populates the Group, Architecture and Domain references
// of a machine for command construction.
func (ds *Datastore) ResolveMachine(m *domain.Machine) error {
	if m.GroupID != nil {
		group, err := ds.GetMachineGroup(*m.GroupID)
		if err != nil {
			return err
		}
		m.Group = group
	}
	arch, err := ds.GetArchitecture(m.ArchitectureID)
	if err != nil {
		return err
	}
	m.Architecture = arch
	d, err := ds.GetDomain(m.DomainID)
	if err != nil {
		return err
	}
	m.Domain = d
	return nil
}

// --- power devices ---

// UpsertPowerDevice inserts or replaces the power device of a machine.
// Validation happens in the repository layer before this is reached.
func (ds *Datastore) UpsertPowerDevice(d domain.PowerDevice) (domain.PowerDevice, error) {
	if d.MachineID == 0 {
		return domain.PowerDevice{}, fmt.Errorf("power device machine ID is required")
	}
	_, err := ds.DB.Exec(`INSERT INTO power_devices
		(machine_id, hardware_type, management_bmc_id, control_device_id, port, device_index, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(machine_id) DO UPDATE SET
			hardware_type = excluded.hardware_type,
			management_bmc_id = excluded.management_bmc_id,
			control_device_id = excluded.control_device_id,
			port = excluded.port,
			device_index = excluded.device_index,
			comment = excluded.comment,
			updated_at = CURRENT_TIMESTAMP`,
		d.MachineID, int(d.HardwareType), d.ManagementBMCID, d.ControlDeviceID,
		d.Port, d.DeviceIndex, d.Comment)
	if err != nil {
		return domain.PowerDevice{}, err
	}
	saved, err := ds.GetPowerDevice(d.MachineID)
	if err != nil {
		return domain.PowerDevice{}, err
	}
	return *saved, nil
}

// GetPowerDevice retrieves the power device of a machine, nil if the
// machine has none.
func (ds *Datastore) GetPowerDevice(machineID int64) (*domain.PowerDevice, error) {
	var d domain.PowerDevice
	var hardwareType int
	err := ds.DB.QueryRow(`SELECT machine_id, hardware_type, management_bmc_id,
		control_device_id, port, device_index, comment, created_at, updated_at
		FROM power_devices WHERE machine_id = ?`, machineID).
		Scan(&d.MachineID, &hardwareType, &d.ManagementBMCID, &d.ControlDeviceID,
			&d.Port, &d.DeviceIndex, &d.Comment, &d.Created, &d.Updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.HardwareType = domain.HardwareType(hardwareType)
	return &d, nil
}

// DeletePowerDevice removes the power device of a machine.
func (ds *Datastore) DeletePowerDevice(machineID int64) error {
	_, err := ds.DB.Exec("DELETE FROM power_devices WHERE machine_id = ?", machineID)
	return err
}

// --- server configuration ---

// SetConfig stores a configuration key/value pair.
func (ds *Datastore) SetConfig(key, value string) error {
	_, err := ds.DB.Exec(
		"INSERT INTO server_config (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	return err
}

// GetConfig retrieves a configuration value by key, nil if the key is
// not present.
func (ds *Datastore) GetConfig(key string) (*string, error) {
	var value string
	err := ds.DB.QueryRow("SELECT value FROM server_config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
