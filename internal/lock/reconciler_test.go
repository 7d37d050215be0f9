package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/halo-bridge/internal/cloud"
	"github.com/nerrad567/halo-bridge/internal/infrastructure/logging"
)

// fakeAPI scripts the remote device API.
type fakeAPI struct {
	mu      sync.Mutex
	homes   []cloud.Home
	devices map[string][]cloud.Device // keyed by home id
	records map[string]cloud.Device   // keyed by device id

	setStatusErr   error
	setStatusCalls []string // "deviceID:action"
}

func (f *fakeAPI) Homes(_ context.Context) ([]cloud.Home, error) {
	return f.homes, nil
}

func (f *fakeAPI) Devices(_ context.Context, homeID string) ([]cloud.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.devices[homeID], nil
}

func (f *fakeAPI) Device(_ context.Context, deviceID string) (*cloud.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[deviceID]
	if !ok {
		return nil, errors.New("no record")
	}
	return &record, nil
}

func (f *fakeAPI) SetStatus(_ context.Context, deviceID, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setStatusErr != nil {
		return f.setStatusErr
	}
	f.setStatusCalls = append(f.setStatusCalls, deviceID+":"+action)
	return nil
}

// recordingEvents captures lifecycle notifications.
type recordingEvents struct {
	mu         sync.Mutex
	discovered []string
	updated    []string
	removed    []string
}

func (e *recordingEvents) LockDiscovered(lock Lock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.discovered = append(e.discovered, lock.DeviceID)
}

func (e *recordingEvents) LockUpdated(lock Lock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.updated = append(e.updated, lock.DeviceID)
}

func (e *recordingEvents) LockRemoved(lock Lock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removed = append(e.removed, lock.DeviceID)
}

// recordingTelemetry captures command outcome records.
type recordingTelemetry struct {
	mu       sync.Mutex
	commands []string // "lockID:action:ok|failed"
}

func (r *recordingTelemetry) RecordLockState(Lock) {}

func (r *recordingTelemetry) RecordCommand(lockID, action string, success bool, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	outcome := "failed"
	if success {
		outcome = "ok"
	}
	r.commands = append(r.commands, lockID+":"+action+":"+outcome)
}

func newTestReconciler(api CloudAPI, events Events, homeName string) (*Reconciler, *Registry) {
	registry := NewRegistry(newMemRepo(), logging.Default())
	r := NewReconciler(api, registry, events, nil, ReconcilerConfig{
		HomeName:     homeName,
		PollInterval: time.Hour,
	}, logging.Default())
	return r, registry
}

func TestResolveHome(t *testing.T) {
	homes := []cloud.Home{
		{HomeID: "h-a", HomeName: "Loft"},
		{HomeID: "h-b", HomeName: "Cabin"},
	}

	tests := []struct {
		name       string
		homes      []cloud.Home
		configured string
		wantID     string
		wantErr    error
	}{
		{"exact match", homes, "Cabin", "h-b", nil},
		{"other home", homes, "Loft", "h-a", nil},
		{"no match", homes, "Beach House", "", ErrHomeNotFound},
		{"case sensitive", homes, "cabin", "", ErrHomeNotFound},
		{
			"ambiguous",
			[]cloud.Home{{HomeID: "h1", HomeName: "Home"}, {HomeID: "h2", HomeName: "Home"}},
			"Home", "", ErrHomeAmbiguous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestReconciler(&fakeAPI{homes: tt.homes}, nil, tt.configured)

			err := r.ResolveHome(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveHome error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveHome: %v", err)
			}
			if r.HomeID() != tt.wantID {
				t.Errorf("HomeID = %q, want %q", r.HomeID(), tt.wantID)
			}
		})
	}
}

func TestReconcilePureDiff(t *testing.T) {
	api := &fakeAPI{
		homes: []cloud.Home{{HomeID: "h1", HomeName: "Home"}},
		devices: map[string][]cloud.Device{
			"h1": {
				testDevice("dev-a", "Lock A", "Locked", 90),
				testDevice("dev-b", "Lock B", "Locked", 90),
			},
		},
	}
	events := &recordingEvents{}
	r, registry := newTestReconciler(api, events, "Home")
	ctx := context.Background()

	if err := r.ResolveHome(ctx); err != nil {
		t.Fatalf("ResolveHome: %v", err)
	}

	// R1 = {A, B}
	if err := r.Reconcile(ctx); err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	if len(events.discovered) != 2 {
		t.Fatalf("discovered %v, want dev-a and dev-b", events.discovered)
	}

	// R2 = {B, C}: A removed, C discovered, B updated.
	api.mu.Lock()
	api.devices["h1"] = []cloud.Device{
		testDevice("dev-b", "Lock B", "Unlocked", 85),
		testDevice("dev-c", "Lock C", "Locked", 95),
	}
	api.mu.Unlock()
	events.discovered = nil
	events.updated = nil

	if err := r.Reconcile(ctx); err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}

	if len(events.discovered) != 1 || events.discovered[0] != "dev-c" {
		t.Errorf("discovered = %v, want [dev-c]", events.discovered)
	}
	if len(events.removed) != 1 || events.removed[0] != "dev-a" {
		t.Errorf("removed = %v, want [dev-a]", events.removed)
	}
	if len(events.updated) != 1 || events.updated[0] != "dev-b" {
		t.Errorf("updated = %v, want [dev-b]", events.updated)
	}

	// Registry mirrors R2.
	if len(registry.List()) != 2 {
		t.Errorf("registry has %d locks, want 2", len(registry.List()))
	}
	if _, err := registry.Get(StableID("dev-a")); !errors.Is(err, ErrLockNotFound) {
		t.Error("dev-a should be gone from the registry")
	}
}

func TestReconcileIdempotent(t *testing.T) {
	api := &fakeAPI{
		homes: []cloud.Home{{HomeID: "h1", HomeName: "Home"}},
		devices: map[string][]cloud.Device{
			"h1": {testDevice("dev-a", "Lock A", "Locked", 90)},
		},
	}
	events := &recordingEvents{}
	r, _ := newTestReconciler(api, events, "Home")
	ctx := context.Background()

	if err := r.ResolveHome(ctx); err != nil {
		t.Fatalf("ResolveHome: %v", err)
	}
	if err := r.Reconcile(ctx); err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}

	events.discovered = nil
	events.removed = nil

	if err := r.Reconcile(ctx); err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if len(events.discovered) != 0 {
		t.Errorf("unchanged list rediscovered %v", events.discovered)
	}
	if len(events.removed) != 0 {
		t.Errorf("unchanged list removed %v", events.removed)
	}
}

func TestSetLockStateSuccess(t *testing.T) {
	api := &fakeAPI{
		homes: []cloud.Home{{HomeID: "h1", HomeName: "Home"}},
		devices: map[string][]cloud.Device{
			"h1": {testDevice("dev-a", "Lock A", "Unlocked", 90)},
		},
	}
	r, registry := newTestReconciler(api, nil, "Home")
	ctx := context.Background()

	r.ResolveHome(ctx)
	r.Reconcile(ctx)

	id := StableID("dev-a")
	if err := r.SetLockState(ctx, id, StateSecured); err != nil {
		t.Fatalf("SetLockState: %v", err)
	}

	if len(api.setStatusCalls) != 1 || api.setStatusCalls[0] != "dev-a:lock" {
		t.Errorf("SetStatus calls = %v, want [dev-a:lock]", api.setStatusCalls)
	}

	lock, _ := registry.Get(id)
	if lock.DoorStatus != StateSecured || lock.TargetState != StateSecured {
		t.Errorf("state after command = %s/%s, want optimistic secured/secured", lock.DoorStatus, lock.TargetState)
	}
}

func TestSetLockStateRemoteFailure(t *testing.T) {
	api := &fakeAPI{
		homes: []cloud.Home{{HomeID: "h1", HomeName: "Home"}},
		devices: map[string][]cloud.Device{
			"h1": {testDevice("dev-a", "Lock A", "Unlocked", 90)},
		},
	}
	r, registry := newTestReconciler(api, nil, "Home")
	ctx := context.Background()

	r.ResolveHome(ctx)
	r.Reconcile(ctx)

	api.setStatusErr = errors.New("remote rejected")

	id := StableID("dev-a")
	if err := r.SetLockState(ctx, id, StateSecured); err == nil {
		t.Fatal("SetLockState should surface the remote failure")
	}

	// No optimistic change on failure.
	lock, _ := registry.Get(id)
	if lock.DoorStatus != StateUnsecured || lock.TargetState != StateUnsecured {
		t.Errorf("state after failed command = %s/%s, want unchanged unsecured/unsecured", lock.DoorStatus, lock.TargetState)
	}
}

func TestSetLockStateIdempotent(t *testing.T) {
	api := &fakeAPI{
		homes: []cloud.Home{{HomeID: "h1", HomeName: "Home"}},
		devices: map[string][]cloud.Device{
			"h1": {testDevice("dev-a", "Lock A", "Locked", 90)},
		},
	}
	r, registry := newTestReconciler(api, nil, "Home")
	ctx := context.Background()

	r.ResolveHome(ctx)
	r.Reconcile(ctx)

	id := StableID("dev-a")

	// Locking an already secured lock issues the command again and
	// converges on the same state.
	if err := r.SetLockState(ctx, id, StateSecured); err != nil {
		t.Fatalf("SetLockState: %v", err)
	}
	if err := r.SetLockState(ctx, id, StateSecured); err != nil {
		t.Fatalf("repeated SetLockState: %v", err)
	}

	lock, _ := registry.Get(id)
	if lock.DoorStatus != StateSecured || lock.TargetState != StateSecured {
		t.Errorf("state = %s/%s, want secured/secured", lock.DoorStatus, lock.TargetState)
	}
}

func TestSetLockStateRecordsCommandOutcome(t *testing.T) {
	api := &fakeAPI{
		homes: []cloud.Home{{HomeID: "h1", HomeName: "Home"}},
		devices: map[string][]cloud.Device{
			"h1": {testDevice("dev-a", "Lock A", "Unlocked", 90)},
		},
	}
	telemetry := &recordingTelemetry{}
	registry := NewRegistry(newMemRepo(), logging.Default())
	r := NewReconciler(api, registry, nil, telemetry, ReconcilerConfig{
		HomeName:     "Home",
		PollInterval: time.Hour,
	}, logging.Default())
	ctx := context.Background()

	r.ResolveHome(ctx)
	r.Reconcile(ctx)

	id := StableID("dev-a")
	if err := r.SetLockState(ctx, id, StateSecured); err != nil {
		t.Fatalf("SetLockState: %v", err)
	}

	api.setStatusErr = errors.New("remote rejected")
	if err := r.SetLockState(ctx, id, StateUnsecured); err == nil {
		t.Fatal("SetLockState should surface the remote failure")
	}

	// Invalid targets never reach the remote, so nothing is recorded.
	r.SetLockState(ctx, id, StateJammed)

	want := []string{id + ":lock:ok", id + ":unlock:failed"}
	telemetry.mu.Lock()
	defer telemetry.mu.Unlock()
	if len(telemetry.commands) != len(want) {
		t.Fatalf("recorded commands = %v, want %v", telemetry.commands, want)
	}
	for i := range want {
		if telemetry.commands[i] != want[i] {
			t.Errorf("command[%d] = %q, want %q", i, telemetry.commands[i], want[i])
		}
	}
}

func TestSetLockStateInvalidTarget(t *testing.T) {
	api := &fakeAPI{
		homes: []cloud.Home{{HomeID: "h1", HomeName: "Home"}},
		devices: map[string][]cloud.Device{
			"h1": {testDevice("dev-a", "Lock A", "Locked", 90)},
		},
	}
	r, _ := newTestReconciler(api, nil, "Home")
	ctx := context.Background()

	r.ResolveHome(ctx)
	r.Reconcile(ctx)

	err := r.SetLockState(ctx, StableID("dev-a"), StateJammed)
	if !errors.Is(err, ErrInvalidAction) {
		t.Errorf("SetLockState(jammed) error = %v, want ErrInvalidAction", err)
	}
	if len(api.setStatusCalls) != 0 {
		t.Error("invalid target must not reach the remote API")
	}
}

func TestRunRequiresResolvedHome(t *testing.T) {
	r, _ := newTestReconciler(&fakeAPI{}, nil, "Home")

	if err := r.Run(context.Background()); !errors.Is(err, ErrHomeNotResolved) {
		t.Errorf("Run without ResolveHome error = %v, want ErrHomeNotResolved", err)
	}
}
