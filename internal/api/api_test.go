package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/homelab/provisiond/internal/datastore"
	"github.com/jbweber/homelab/provisiond/internal/domain"
	"github.com/jbweber/homelab/provisiond/internal/remote"
	"github.com/jbweber/homelab/provisiond/internal/testutil"
)

type apiFixture struct {
	router *chi.Mux
	ds     *datastore.Datastore
	dialer *remote.StaticDialer
	domain domain.Domain
	arch   domain.Architecture
}

func setupTestAPI(t *testing.T, testName string) *apiFixture {
	t.Helper()
	testDS, err := datastore.New(testutil.NewTestDSN(testName))
	require.NoError(t, err)

	d, err := testDS.CreateDomain(domain.Domain{
		Name:           "example.com",
		CobblerServers: []string{"cobbler.example.com"},
	})
	require.NoError(t, err)
	arch, err := testDS.CreateArchitecture(domain.Architecture{
		Name:           "x86_64",
		DefaultProfile: "x86_64:SLE-15-SP5:install",
	})
	require.NoError(t, err)

	dialer := &remote.StaticDialer{Sessions: map[string]remote.Session{}}
	r := chi.NewRouter()
	NewAPI(testDS, dialer).RegisterRoutes(r)

	return &apiFixture{router: r, ds: testDS, dialer: dialer, domain: d, arch: arch}
}

func (f *apiFixture) createMachine(t *testing.T, req CreateMachineRequest) MachineResponse {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	httpReq := httptest.NewRequest("POST", "/api/v0/machines", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httpReq)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp MachineResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestCreateMachine(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_CreateMachine")

	resp := f.createMachine(t, CreateMachineRequest{
		FQDN:           "host-a.example.com",
		IPv4:           "192.168.1.100",
		Active:         true,
		DomainID:       f.domain.ID,
		ArchitectureID: f.arch.ID,
		BMCFQDN:        "bmc-a.example.com",
		BMCMAC:         "aa:bb:cc:dd:ee:ff",
	})
	assert.NotZero(t, resp.ID)
	assert.Equal(t, "host-a.example.com", resp.FQDN)
	assert.Equal(t, "bmc-a.example.com", resp.BMCFQDN)
}

func TestCreateMachine_InvalidJSON(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_CreateMachine_InvalidJSON")

	req := httptest.NewRequest("POST", "/api/v0/machines", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMachineHandler_NotFound(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_GetMachine_NotFound")
	req := httptest.NewRequest("GET", "/api/v0/machines/99999", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMachineHandler_InvalidID(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_GetMachine_InvalidID")
	req := httptest.NewRequest("GET", "/api/v0/machines/invalid", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListMachines_Empty(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_ListMachines_Empty")

	req := httptest.NewRequest("GET", "/api/v0/machines", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var response []MachineResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Len(t, response, 0)
}

func TestDeleteMachine(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_DeleteMachine")
	resp := f.createMachine(t, CreateMachineRequest{
		FQDN: "host-a.example.com", Active: true,
		DomainID: f.domain.ID, ArchitectureID: f.arch.ID,
	})

	req := httptest.NewRequest("DELETE", "/api/v0/machines/"+idPath(resp.ID), nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest("GET", "/api/v0/machines/"+idPath(resp.ID), nil)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPutPowerDevice(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_PutPowerDevice")
	owner := f.createMachine(t, CreateMachineRequest{
		FQDN: "host-a.example.com", Active: true,
		DomainID: f.domain.ID, ArchitectureID: f.arch.ID,
		BMCFQDN: "bmc-a.example.com",
	})
	bmcHost := f.createMachine(t, CreateMachineRequest{
		FQDN: "bmc-a.example.com", Active: true,
		DomainID: f.domain.ID, ArchitectureID: f.arch.ID,
	})

	port := 3
	body, _ := json.Marshal(PutPowerDeviceRequest{
		HardwareType:    "IPMI",
		ManagementBMCID: &bmcHost.ID,
		Port:            &port,
	})
	req := httptest.NewRequest("PUT", "/api/v0/machines/"+idPath(owner.ID)+"/power-device", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp PowerDeviceResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "IPMI", resp.HardwareType)
	assert.Nil(t, resp.Port, "unused fields are dropped during normalization")

	// Round trip through GET.
	req = httptest.NewRequest("GET", "/api/v0/machines/"+idPath(owner.ID)+"/power-device", nil)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPutPowerDevice_UnknownHardwareType(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_PutPowerDevice_UnknownType")
	owner := f.createMachine(t, CreateMachineRequest{
		FQDN: "host-a.example.com", Active: true,
		DomainID: f.domain.ID, ArchitectureID: f.arch.ID,
	})

	body, _ := json.Marshal(PutPowerDeviceRequest{HardwareType: "smoke-signals"})
	req := httptest.NewRequest("PUT", "/api/v0/machines/"+idPath(owner.ID)+"/power-device", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutPowerDevice_InvalidConfiguration(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_PutPowerDevice_Invalid")
	owner := f.createMachine(t, CreateMachineRequest{
		FQDN: "host-a.example.com", Active: true,
		DomainID: f.domain.ID, ArchitectureID: f.arch.ID,
	})

	// Telnet without a control device and port.
	body, _ := json.Marshal(PutPowerDeviceRequest{HardwareType: "Telnet"})
	req := httptest.NewRequest("PUT", "/api/v0/machines/"+idPath(owner.ID)+"/power-device", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPutPowerDevice_MachineNotFound(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_PutPowerDevice_MachineNotFound")

	body, _ := json.Marshal(PutPowerDeviceRequest{HardwareType: "s390"})
	req := httptest.NewRequest("PUT", "/api/v0/machines/99999/power-device", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPowerDevice_NotFound(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_GetPowerDevice_NotFound")
	owner := f.createMachine(t, CreateMachineRequest{
		FQDN: "host-a.example.com", Active: true,
		DomainID: f.domain.ID, ArchitectureID: f.arch.ID,
	})

	req := httptest.NewRequest("GET", "/api/v0/machines/"+idPath(owner.ID)+"/power-device", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPowerActionHandler(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_PowerAction")
	machine := f.createMachine(t, CreateMachineRequest{
		FQDN: "host-a.example.com", Active: true,
		DomainID: f.domain.ID, ArchitectureID: f.arch.ID,
	})

	session := remote.NewScriptedSession()
	session.SetPath("/usr/bin/cobbler", true)
	session.Set("/usr/bin/cobbler system list", remote.ScriptedResult{
		Stdout: "host-a.example.com\n", ExitStatus: 0,
	})
	session.Set("/usr/bin/cobbler system poweron --name=host-a.example.com",
		remote.ScriptedResult{ExitStatus: 0})
	f.dialer.Sessions["cobbler.example.com"] = session

	body, _ := json.Marshal(PowerActionRequest{Action: "on"})
	req := httptest.NewRequest("POST", "/api/v0/machines/"+idPath(machine.ID)+"/power", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, session.Executed, "/usr/bin/cobbler system poweron --name=host-a.example.com")
}

func TestPowerActionHandler_InvalidAction(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_PowerAction_Invalid")
	machine := f.createMachine(t, CreateMachineRequest{
		FQDN: "host-a.example.com", Active: true,
		DomainID: f.domain.ID, ArchitectureID: f.arch.ID,
	})

	body, _ := json.Marshal(PowerActionRequest{Action: "explode"})
	req := httptest.NewRequest("POST", "/api/v0/machines/"+idPath(machine.ID)+"/power", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPowerActionHandler_MachineNotFound(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_PowerAction_MachineNotFound")

	body, _ := json.Marshal(PowerActionRequest{Action: "on"})
	req := httptest.NewRequest("POST", "/api/v0/machines/99999/power", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPowerStatusHandler(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_PowerStatus")
	machine := f.createMachine(t, CreateMachineRequest{
		FQDN: "host-a.example.com", Active: true,
		DomainID: f.domain.ID, ArchitectureID: f.arch.ID,
	})

	session := remote.NewScriptedSession()
	session.Set("/usr/bin/cobbler system list", remote.ScriptedResult{
		Stdout: "host-a.example.com\n", ExitStatus: 0,
	})
	session.Set("/usr/bin/cobbler system powerstatus --name=host-a.example.com",
		remote.ScriptedResult{Stdout: "Power is Off\n", ExitStatus: 0})
	f.dialer.Sessions["cobbler.example.com"] = session

	req := httptest.NewRequest("GET", "/api/v0/machines/"+idPath(machine.ID)+"/power/status", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp PowerStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "off", resp.Status)
}

func TestSyncDomainHandler(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_SyncDomain")
	f.createMachine(t, CreateMachineRequest{
		FQDN: "host-a.example.com", IPv4: "192.168.1.1", Active: true,
		DomainID: f.domain.ID, ArchitectureID: f.arch.ID,
	})

	session := remote.NewScriptedSession()
	session.SetPath("/usr/bin/cobbler", true)
	session.Set("/usr/bin/cobbler version", remote.ScriptedResult{ExitStatus: 0})
	session.Set("/usr/bin/cobbler system list", remote.ScriptedResult{
		Stdout: "host-a.example.com\n", ExitStatus: 0,
	})
	f.dialer.Sessions["cobbler.example.com"] = session

	req := httptest.NewRequest("POST", "/api/v0/domains/"+idPath(f.domain.ID)+"/sync", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	assert.True(t, session.Closed)
}

func TestSyncDomainHandler_NotFound(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_SyncDomain_NotFound")

	req := httptest.NewRequest("POST", "/api/v0/domains/99999/sync", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncDomainHandler_ControllerUnavailable(t *testing.T) {
	f := setupTestAPI(t, "TestAPI_SyncDomain_Unavailable")

	// No cobbler binary on the controller host.
	f.dialer.Sessions["cobbler.example.com"] = remote.NewScriptedSession()

	req := httptest.NewRequest("POST", "/api/v0/domains/"+idPath(f.domain.ID)+"/sync", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func idPath(id int64) string {
	return strconv.FormatInt(id, 10)
}
