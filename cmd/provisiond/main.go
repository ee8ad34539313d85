package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jbweber/homelab/provisiond/internal/api"
	"github.com/jbweber/homelab/provisiond/internal/cobbler"
	"github.com/jbweber/homelab/provisiond/internal/config"
	"github.com/jbweber/homelab/provisiond/internal/datastore"
	"github.com/jbweber/homelab/provisiond/internal/domain"
	"github.com/jbweber/homelab/provisiond/internal/power"
	"github.com/jbweber/homelab/provisiond/internal/repository"
)

var configPath string

func main() {
	log.SetFormatter(&nested.Formatter{})

	root := &cobra.Command{
		Use:   "provisiond",
		Short: "Remote power control and netboot provisioning service",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/provisiond/config.yaml", "config file path")

	root.AddCommand(serveCmd(), syncCmd(), powerCmd(), statusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config and opens the datastore.
func setup() (*config.Config, *datastore.Datastore, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	ds, err := cfg.OpenDatastore()
	if err != nil {
		return nil, nil, err
	}
	return cfg, ds, nil
}

// stores builds the repository bundle the orchestrator consumes.
func stores(ds *datastore.Datastore) (*repository.ProvisioningStores, repository.ServerConfigRepository) {
	return &repository.ProvisioningStores{
		Machines: repository.NewMachineRepository(ds),
		Devices:  repository.NewPowerDeviceRepository(ds),
		Domains:  repository.NewDomainRepository(ds),
	}, repository.NewServerConfigRepository(ds)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ds, err := setup()
			if err != nil {
				return err
			}

			r := chi.NewRouter()
			r.Use(middleware.Logger)
			r.Use(middleware.Recoverer)

			api.NewAPI(ds, cfg.SSHDialer()).RegisterRoutes(r)

			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				if _, err := fmt.Fprintln(w, "provisiond is running"); err != nil {
					log.WithError(err).Warn("failed to write response")
				}
			})

			log.WithField("addr", cfg.ListenAddr).Info("starting provisiond")
			return http.ListenAndServe(cfg.ListenAddr, r)
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <domain>",
		Short: "Synchronize a domain's machines into its cobbler servers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ds, err := setup()
			if err != nil {
				return err
			}
			provisioning, configRepo := stores(ds)

			ctx := context.Background()
			d, err := provisioning.Domains.FindByName(ctx, args[0])
			if err != nil {
				return err
			}
			return cobbler.DeployDomain(ctx, d, cfg.SSHDialer(), cobbler.Options{
				Inventory:   provisioning,
				Config:      configRepo,
				Credentials: power.NewCredentialResolver(configRepo),
			})
		},
	}
}

func powerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "power <fqdn> <action>",
		Short: "Perform a power action on a machine",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ds, err := setup()
			if err != nil {
				return err
			}
			provisioning, configRepo := stores(ds)

			ctx := context.Background()
			machine, err := provisioning.Machines.FindByFQDN(ctx, args[0])
			if err != nil {
				return err
			}
			action := domain.PowerAction(args[1])
			if !action.Valid() {
				return fmt.Errorf("invalid power action %q", args[1])
			}

			switcher := power.NewSwitcher(provisioning, provisioning, configRepo,
				power.NewCredentialResolver(configRepo), cfg.SSHDialer())
			switcher.Perform(ctx, machine, action)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <fqdn>",
		Short: "Query the power status of a machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ds, err := setup()
			if err != nil {
				return err
			}
			provisioning, configRepo := stores(ds)

			ctx := context.Background()
			machine, err := provisioning.Machines.FindByFQDN(ctx, args[0])
			if err != nil {
				return err
			}

			switcher := power.NewSwitcher(provisioning, provisioning, configRepo,
				power.NewCredentialResolver(configRepo), cfg.SSHDialer())
			fmt.Println(switcher.GetStatus(ctx, machine))
			return nil
		},
	}
}
