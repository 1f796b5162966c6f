package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/ptzlink/internal/camhttp"
	"github.com/muurk/ptzlink/internal/config"
	"github.com/muurk/ptzlink/internal/firmware"
	"github.com/muurk/ptzlink/internal/variables"
	"github.com/muurk/ptzlink/internal/visca"
)

const mockDeviceConf = `var devname="PTZ-Studio"; var versioninfo="SOC v6.3.34 - ARM 7.1.41"; var serial_num="P1234567"; var device_model="F53.HI";`

type transportCall struct {
	op     string
	host   string
	port   int
	reason string
	status visca.Status
}

// fakeTransport records Open and Close; sends always succeed
type fakeTransport struct {
	mu    sync.Mutex
	calls []transportCall
}

func (f *fakeTransport) Open(host string, port int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, transportCall{op: "open", host: host, port: port})
}

func (f *fakeTransport) Close(reason string, status visca.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, transportCall{op: "close", reason: reason, status: status})
}

func (f *fakeTransport) SendCommand(ctx context.Context, cmd visca.Command) error {
	return nil
}

func (f *fakeTransport) SendInquiry(ctx context.Context, q visca.Inquiry) (visca.Answer, error) {
	return visca.Answer{}, nil
}

func (f *fakeTransport) snapshot() []transportCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transportCall(nil), f.calls...)
}

// fakeCamera serves the three CGI endpoints and counts requests
type fakeCamera struct {
	server   *httptest.Server
	requests atomic.Int32
	failConf atomic.Bool
}

func newFakeCamera(t *testing.T) *fakeCamera {
	t.Helper()
	cam := &fakeCamera{}
	cam.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cam.requests.Add(1)
		switch r.URL.RawQuery {
		case "get_device_conf":
			if cam.failConf.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte(mockDeviceConf))
		case "get_tally_status":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":{"tally_mode":"1"}}`))
		case "get_advance_image_conf":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`{"data":{"wdr":"off"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(cam.server.Close)
	return cam
}

func (cam *fakeCamera) clientFactory(o config.Options) *camhttp.Client {
	return camhttp.New(camhttp.Config{
		BaseURL:  cam.server.URL,
		Username: o.HTTPUsername,
		Password: o.HTTPPassword,
	})
}

type fakeFirmware struct {
	calls     atomic.Int32
	available string
	err       error
	// block, when set, holds every Check until it is closed
	block chan struct{}
}

func (f *fakeFirmware) Check(ctx context.Context, model, deviceVersion string) (*firmware.Advisory, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &firmware.Advisory{Current: firmware.NormalizeDeviceVersion(deviceVersion), Available: f.available}, nil
}

type harness struct {
	transport *fakeTransport
	camera    *fakeCamera
	firmware  *fakeFirmware
	store     *variables.Store
	ctrl      *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		transport: &fakeTransport{},
		camera:    newFakeCamera(t),
		firmware:  &fakeFirmware{available: "6.3.40"},
		store:     variables.NewStore(),
	}
	h.ctrl = New(h.transport, h.store, Config{
		Firmware:      h.firmware,
		NewHTTPClient: h.camera.clientFactory,
	})
	t.Cleanup(h.ctrl.Shutdown)
	return h
}

func baseConfig() map[string]any {
	return map[string]any{
		"host":             "192.168.1.50",
		"port":             5678,
		"httpUsername":     "admin",
		"httpPassword":     "admin",
		"httpPollInterval": 0,
		"debugLogging":     false,
	}
}

func with(raw map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	out[key] = value
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestReconcile_FirstCallRestarts(t *testing.T) {
	h := newHarness(t)

	if got := h.ctrl.Reconcile(context.Background(), baseConfig()); got != OutcomeRestarted {
		t.Fatalf("Reconcile() = %v, want restarted", got)
	}

	calls := h.transport.snapshot()
	if len(calls) != 1 || calls[0].op != "open" || calls[0].host != "192.168.1.50" || calls[0].port != 5678 {
		t.Errorf("transport calls = %+v, want one open", calls)
	}

	// Polling disabled: identity is published immediately
	wantIDs := []string{"device_name", "firmware_version", "serial_number", "model", "firmware_update"}
	defs := h.store.Definitions()
	if len(defs) != len(wantIDs) {
		t.Fatalf("definitions = %+v", defs)
	}
	for i, id := range wantIDs {
		if defs[i].ID != id {
			t.Errorf("definitions[%d] = %s, want %s", i, defs[i].ID, id)
		}
	}

	values := h.store.Values()
	want := map[string]string{
		"device_name":      "PTZ-Studio",
		"firmware_version": "SOC v6.3.34 - ARM 7.1.41",
		"serial_number":    "P1234567",
		"model":            "F53.HI",
		"firmware_update":  "6.3.40",
	}
	for k, v := range want {
		if values[k] != v {
			t.Errorf("values[%s] = %q, want %q", k, values[k], v)
		}
	}
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t)
	if snap := h.ctrl.Snapshot(); snap != (Snapshot{}) {
		t.Errorf("Snapshot() before any reconcile = %+v", snap)
	}

	h.ctrl.Reconcile(context.Background(), with(baseConfig(), "httpPollInterval", 1500))
	want := Snapshot{
		Host:           "192.168.1.50",
		Port:           5678,
		HasCredentials: true,
		Polling:        true,
		PollIntervalMS: 1500,
		LastOutcome:    "restarted",
	}
	if got := h.ctrl.Snapshot(); got != want {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
}

func TestSnapshot_DoesNotWaitForReconcile(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Reconcile(context.Background(), baseConfig())

	h.firmware.block = make(chan struct{})
	before := h.firmware.calls.Load()
	done := make(chan struct{})
	go func() {
		h.ctrl.Reconcile(context.Background(), with(baseConfig(), "host", "192.168.1.60"))
		close(done)
	}()
	waitFor(t, "firmware check", func() bool { return h.firmware.calls.Load() > before })

	got := make(chan Snapshot, 1)
	go func() { got <- h.ctrl.Snapshot() }()
	select {
	case snap := <-got:
		if snap.Host != "192.168.1.50" {
			t.Errorf("Snapshot().Host = %s mid-reconcile, want previous host", snap.Host)
		}
	case <-time.After(time.Second):
		t.Fatal("Snapshot() blocked behind a reconciliation")
	}

	close(h.firmware.block)
	<-done
	if snap := h.ctrl.Snapshot(); snap.Host != "192.168.1.60" {
		t.Errorf("Snapshot().Host = %s, want 192.168.1.60", snap.Host)
	}
}

func TestReconcile_Unchanged(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Reconcile(context.Background(), baseConfig())
	requests := h.camera.requests.Load()

	if got := h.ctrl.Reconcile(context.Background(), baseConfig()); got != OutcomeUnchanged {
		t.Errorf("Reconcile() = %v, want unchanged", got)
	}
	if len(h.transport.snapshot()) != 1 {
		t.Errorf("transport touched: %+v", h.transport.snapshot())
	}
	if h.camera.requests.Load() != requests {
		t.Error("unchanged reconcile issued HTTP requests")
	}
}

func TestReconcile_DebugLoggingOnlyIsInPlace(t *testing.T) {
	h := newHarness(t)
	cfg := with(baseConfig(), "httpPollInterval", 20)
	h.ctrl.Reconcile(context.Background(), cfg)

	h.ctrl.mu.Lock()
	poller := h.ctrl.st.poller
	client := h.ctrl.st.client
	h.ctrl.mu.Unlock()
	if poller == nil {
		t.Fatal("poller not started")
	}

	if got := h.ctrl.Reconcile(context.Background(), with(cfg, "debugLogging", true)); got != OutcomeInPlace {
		t.Fatalf("Reconcile() = %v, want in_place", got)
	}

	if calls := h.transport.snapshot(); len(calls) != 1 {
		t.Errorf("transport calls = %+v, want only the first open", calls)
	}
	h.ctrl.mu.Lock()
	defer h.ctrl.mu.Unlock()
	if h.ctrl.st.poller != poller || h.ctrl.st.client != client {
		t.Error("in-place update replaced the poller or client")
	}
	if !h.ctrl.st.opts.DebugLogging {
		t.Error("DebugLogging not applied")
	}
	select {
	case <-poller.Done():
		t.Error("poller stopped by in-place update")
	default:
	}
}

func TestReconcile_HostClearedClosesWithoutHTTP(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Reconcile(context.Background(), baseConfig())
	requests := h.camera.requests.Load()
	firmwareCalls := h.firmware.calls.Load()

	if got := h.ctrl.Reconcile(context.Background(), with(baseConfig(), "host", nil)); got != OutcomeNoHost {
		t.Fatalf("Reconcile() = %v, want no_host", got)
	}

	calls := h.transport.snapshot()
	last := calls[len(calls)-1]
	if last.op != "close" || last.reason != ReasonNoHost || last.status != visca.StatusBadConfig {
		t.Errorf("last transport call = %+v, want close(no host specified, bad_config)", last)
	}
	if h.camera.requests.Load() != requests || h.firmware.calls.Load() != firmwareCalls {
		t.Error("no-host reconcile issued HTTP requests")
	}
	h.ctrl.mu.Lock()
	client := h.ctrl.st.client
	h.ctrl.mu.Unlock()
	if client != nil {
		t.Error("HTTP client kept after host cleared")
	}
	if snap := h.ctrl.Snapshot(); snap.Host != "" || snap.Polling || snap.LastOutcome != "no_host" {
		t.Errorf("Snapshot() = %+v after host cleared", snap)
	}
}

func TestReconcile_InvalidHostIsNoHost(t *testing.T) {
	h := newHarness(t)
	if got := h.ctrl.Reconcile(context.Background(), with(baseConfig(), "host", "not-an-ip")); got != OutcomeNoHost {
		t.Errorf("Reconcile() = %v, want no_host", got)
	}
	if h.camera.requests.Load() != 0 {
		t.Error("HTTP issued without a host")
	}
}

func TestReconcile_NoCredentials(t *testing.T) {
	h := newHarness(t)
	cfg := with(with(baseConfig(), "httpPassword", ""), "httpPollInterval", 10)

	if got := h.ctrl.Reconcile(context.Background(), cfg); got != OutcomeRestarted {
		t.Fatalf("Reconcile() = %v, want restarted", got)
	}
	if h.camera.requests.Load() != 0 || h.firmware.calls.Load() != 0 {
		t.Error("HTTP issued without credentials")
	}
	if h.store.DefinitionWrites() != 1 || len(h.store.Definitions()) != 0 {
		t.Errorf("want one empty definition publish, got %d writes: %+v",
			h.store.DefinitionWrites(), h.store.Definitions())
	}

	h.ctrl.mu.Lock()
	defer h.ctrl.mu.Unlock()
	if h.ctrl.st.poller != nil {
		t.Error("poller started without credentials")
	}
}

func TestReconcile_IdentityFailureOmitsFields(t *testing.T) {
	h := newHarness(t)
	h.camera.failConf.Store(true)
	h.firmware.err = errors.New("camera model unknown")

	if got := h.ctrl.Reconcile(context.Background(), baseConfig()); got != OutcomeRestarted {
		t.Fatalf("Reconcile() = %v", got)
	}

	defs := h.store.Definitions()
	if len(defs) != 1 || defs[0].ID != FirmwareUpdateDefinition.ID {
		t.Errorf("definitions = %+v, want only firmware_update", defs)
	}
	if got := h.store.Values()["firmware_update"]; got != firmware.NoUpdate {
		t.Errorf("firmware_update = %q, want %q", got, firmware.NoUpdate)
	}
}

func TestReconcile_PollerSeededWithIdentity(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Reconcile(context.Background(), with(baseConfig(), "httpPollInterval", 10))

	waitFor(t, "first poll cycle", func() bool { return h.store.DefinitionWrites() > 0 })

	got := make(map[string]bool)
	for _, d := range h.store.Definitions() {
		got[d.ID] = true
	}
	for _, id := range []string{"device_name", "model", "firmware_update", "tally_mode", "img_wdr"} {
		if !got[id] {
			t.Errorf("definition %s missing: %+v", id, h.store.Definitions())
		}
	}

	waitFor(t, "values", func() bool { return h.store.Values()["img_wdr"] == "off" })
	if h.store.Values()["device_name"] != "PTZ-Studio" {
		t.Error("identity value not published with first cycle")
	}
	if h.store.DefinitionWrites() != 1 {
		t.Errorf("DefinitionWrites = %d, want 1", h.store.DefinitionWrites())
	}
}

func TestReconcile_RestartStopsOldPoller(t *testing.T) {
	h := newHarness(t)
	cfg := with(baseConfig(), "httpPollInterval", 10)
	h.ctrl.Reconcile(context.Background(), cfg)

	h.ctrl.mu.Lock()
	old := h.ctrl.st.poller
	h.ctrl.mu.Unlock()

	if got := h.ctrl.Reconcile(context.Background(), with(cfg, "httpPollInterval", 20)); got != OutcomeRestarted {
		t.Fatalf("Reconcile() = %v, want restarted", got)
	}

	select {
	case <-old.Done():
	case <-time.After(time.Second):
		t.Fatal("old poller still running after restart")
	}

	calls := h.transport.snapshot()
	if len(calls) != 2 || calls[1].op != "open" {
		t.Errorf("transport calls = %+v, want two opens", calls)
	}
}

func TestShutdown(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Reconcile(context.Background(), with(baseConfig(), "httpPollInterval", 10))
	waitFor(t, "first poll cycle", func() bool { return h.store.DefinitionWrites() > 0 })

	h.ctrl.Shutdown()

	calls := h.transport.snapshot()
	last := calls[len(calls)-1]
	if last.op != "close" || last.reason != ReasonShutdown || last.status != visca.StatusDisconnected {
		t.Errorf("last transport call = %+v", last)
	}

	// Nothing is published once Shutdown returns
	h.store.Reset()
	time.Sleep(50 * time.Millisecond)
	if len(h.store.Values()) != 0 {
		t.Errorf("values published after shutdown: %v", h.store.Values())
	}

	if got := h.ctrl.Reconcile(context.Background(), baseConfig()); got != OutcomeUnchanged {
		t.Errorf("Reconcile() after Shutdown = %v, want unchanged", got)
	}
	if len(h.transport.snapshot()) != len(calls) {
		t.Error("transport used after shutdown")
	}

	h.ctrl.Shutdown()
}

func TestApply(t *testing.T) {
	h := newHarness(t)

	h.ctrl.Apply(with(baseConfig(), "host", "10.0.0.1"))
	h.ctrl.Apply(with(baseConfig(), "host", "10.0.0.2"))

	waitFor(t, "apply", func() bool { return h.ctrl.Snapshot().Host == "10.0.0.2" })

	// The first Apply may or may not have been reconciled before the second
	// replaced it, but the last open is always the latest target
	calls := h.transport.snapshot()
	if last := calls[len(calls)-1]; last.op != "open" || last.host != "10.0.0.2" {
		t.Errorf("last transport call = %+v", last)
	}
}

func TestOutcomeString(t *testing.T) {
	tests := map[Outcome]string{
		OutcomeUnchanged: "unchanged",
		OutcomeInPlace:   "in_place",
		OutcomeNoHost:    "no_host",
		OutcomeRestarted: "restarted",
		Outcome(42):      "unknown",
	}
	for o, want := range tests {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(o), got, want)
		}
	}
}
