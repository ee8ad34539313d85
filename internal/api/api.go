package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/jbweber/homelab/provisiond/internal/datastore"
	"github.com/jbweber/homelab/provisiond/internal/power"
	"github.com/jbweber/homelab/provisiond/internal/remote"
	"github.com/jbweber/homelab/provisiond/internal/repository"
)

// API holds repository dependencies for clean data access
type API struct {
	machines *Machines
	devices  *PowerDevices
	power    *Power
	sync     *Sync
}

// NewAPI wires the API from a datastore and a session dialer.
func NewAPI(ds *datastore.Datastore, dialer remote.Dialer) *API {
	machineRepo := repository.NewMachineRepository(ds)
	deviceRepo := repository.NewPowerDeviceRepository(ds)
	domainRepo := repository.NewDomainRepository(ds)
	configRepo := repository.NewServerConfigRepository(ds)

	stores := &repository.ProvisioningStores{
		Machines: machineRepo,
		Devices:  deviceRepo,
		Domains:  domainRepo,
	}
	credentials := power.NewCredentialResolver(configRepo)
	switcher := power.NewSwitcher(stores, stores, configRepo, credentials, dialer)

	return &API{
		machines: NewMachines(machineRepo),
		devices:  NewPowerDevices(machineRepo, deviceRepo),
		power:    NewPower(machineRepo, switcher),
		sync:     NewSync(domainRepo, stores, configRepo, credentials, dialer),
	}
}

// RegisterRoutes registers all API routes on the router
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v0", func(r chi.Router) {
		r.Get("/machines", a.machines.ListMachinesHandler)
		r.Post("/machines", a.machines.CreateMachineHandler)
		r.Get("/machines/{id}", a.machines.GetMachineHandler)
		r.Delete("/machines/{id}", a.machines.DeleteMachineHandler)

		r.Get("/machines/{id}/power-device", a.devices.GetPowerDeviceHandler)
		r.Put("/machines/{id}/power-device", a.devices.PutPowerDeviceHandler)
		r.Delete("/machines/{id}/power-device", a.devices.DeletePowerDeviceHandler)

		r.Post("/machines/{id}/power", a.power.PowerActionHandler)
		r.Get("/machines/{id}/power/status", a.power.PowerStatusHandler)

		r.Post("/domains/{id}/sync", a.sync.SyncDomainHandler)
	})
}
