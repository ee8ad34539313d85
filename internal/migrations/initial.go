package migrations

import (
	"database/sql"
)

// GetInitialMigrations returns all initial migrations
func GetInitialMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_inventory_tables",
			Up: func(db *sql.DB) error {
				statements := []string{
					`CREATE TABLE IF NOT EXISTS domains (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						name TEXT NOT NULL UNIQUE,
						tftp_server TEXT NOT NULL DEFAULT ''
					)`,
					`CREATE TABLE IF NOT EXISTS domain_cobbler_servers (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						domain_id INTEGER NOT NULL,
						fqdn TEXT NOT NULL,
						position INTEGER NOT NULL DEFAULT 0,
						FOREIGN KEY (domain_id) REFERENCES domains(id) ON DELETE CASCADE
					)`,
					`CREATE TABLE IF NOT EXISTS machine_groups (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						name TEXT NOT NULL UNIQUE,
						dhcp_filename TEXT NOT NULL DEFAULT '',
						tftp_server TEXT NOT NULL DEFAULT ''
					)`,
					`CREATE TABLE IF NOT EXISTS architectures (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						name TEXT NOT NULL UNIQUE,
						dhcp_filename TEXT NOT NULL DEFAULT '',
						default_profile TEXT NOT NULL DEFAULT ''
					)`,
					`CREATE TABLE IF NOT EXISTS machines (
						id INTEGER PRIMARY KEY AUTOINCREMENT,
						fqdn TEXT NOT NULL UNIQUE,
						ipv4 TEXT NOT NULL DEFAULT '',
						ipv6 TEXT NOT NULL DEFAULT '',
						system_type TEXT NOT NULL DEFAULT '',
						active INTEGER NOT NULL DEFAULT 1,
						dhcp_filename TEXT NOT NULL DEFAULT '',
						tftp_server TEXT NOT NULL DEFAULT '',
						hypervisor_fqdn TEXT NOT NULL DEFAULT '',
						domain_id INTEGER NOT NULL,
						group_id INTEGER,
						architecture_id INTEGER NOT NULL,
						bmc_fqdn TEXT NOT NULL DEFAULT '',
						bmc_mac TEXT NOT NULL DEFAULT '',
						FOREIGN KEY (domain_id) REFERENCES domains(id),
						FOREIGN KEY (group_id) REFERENCES machine_groups(id),
						FOREIGN KEY (architecture_id) REFERENCES architectures(id)
					)`,
					`CREATE TABLE IF NOT EXISTS power_devices (
						machine_id INTEGER PRIMARY KEY,
						hardware_type INTEGER NOT NULL,
						management_bmc_id INTEGER,
						control_device_id INTEGER,
						port INTEGER,
						device_index INTEGER,
						comment TEXT NOT NULL DEFAULT '',
						created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
						updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
						FOREIGN KEY (machine_id) REFERENCES machines(id) ON DELETE CASCADE,
						FOREIGN KEY (management_bmc_id) REFERENCES machines(id) ON DELETE CASCADE,
						FOREIGN KEY (control_device_id) REFERENCES machines(id) ON DELETE CASCADE
					)`,
					`CREATE TABLE IF NOT EXISTS server_config (
						key TEXT PRIMARY KEY,
						value TEXT NOT NULL
					)`,
				}

				for _, stmt := range statements {
					if _, err := db.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
			Down: func(db *sql.DB) error {
				// Drop tables in reverse order due to foreign key constraints
				tables := []string{
					"server_config",
					"power_devices",
					"machines",
					"architectures",
					"machine_groups",
					"domain_cobbler_servers",
					"domains",
				}
				for _, table := range tables {
					if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

// GetPerformanceMigrations returns performance optimization migrations
func GetPerformanceMigrations() []Migration {
	return []Migration{
		{
			Version: 10,
			Name:    "add_performance_indices",
			Up: func(db *sql.DB) error {
				indices := []string{
					"CREATE INDEX IF NOT EXISTS idx_machines_fqdn ON machines(fqdn)",
					"CREATE INDEX IF NOT EXISTS idx_machines_domain_id ON machines(domain_id)",
					"CREATE INDEX IF NOT EXISTS idx_machines_group_id ON machines(group_id)",
					"CREATE INDEX IF NOT EXISTS idx_domain_cobbler_servers_domain_id ON domain_cobbler_servers(domain_id)",
					"CREATE INDEX IF NOT EXISTS idx_power_devices_control_device_id ON power_devices(control_device_id)",
				}

				for _, indexSQL := range indices {
					if _, err := db.Exec(indexSQL); err != nil {
						return err
					}
				}

				return nil
			},
			Down: func(db *sql.DB) error {
				indices := []string{
					"DROP INDEX IF EXISTS idx_machines_fqdn",
					"DROP INDEX IF EXISTS idx_machines_domain_id",
					"DROP INDEX IF EXISTS idx_machines_group_id",
					"DROP INDEX IF EXISTS idx_domain_cobbler_servers_domain_id",
					"DROP INDEX IF EXISTS idx_power_devices_control_device_id",
				}

				for _, indexSQL := range indices {
					if _, err := db.Exec(indexSQL); err != nil {
						return err
					}
				}

				return nil
			},
		},
	}
}
