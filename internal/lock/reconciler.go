package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/halo-bridge/internal/cloud"
	"github.com/nerrad567/halo-bridge/internal/infrastructure/logging"
)

// CloudAPI is the slice of the remote API the reconciler consumes.
// cloud.Client implements it; tests substitute a fake.
type CloudAPI interface {
	Homes(ctx context.Context) ([]cloud.Home, error)
	Devices(ctx context.Context, homeID string) ([]cloud.Device, error)
	Device(ctx context.Context, deviceID string) (*cloud.Device, error)
	SetStatus(ctx context.Context, deviceID, action string) error
}

// Events receives lock lifecycle notifications. The MQTT publisher
// implements it; a nil-safe no-op is used when no boundary is wired.
type Events interface {
	LockDiscovered(lock Lock)
	LockUpdated(lock Lock)
	LockRemoved(lock Lock)
}

// Telemetry records poll observations and command outcomes. The
// telemetry recorder implements it.
type Telemetry interface {
	RecordLockState(lock Lock)
	RecordCommand(lockID, action string, success bool, durationMs float64)
}

// Reconciler keeps the local lock mirror aligned with the remote
// device list and drives the per-lock poll loops.
//
// Lifecycle: ResolveHome once, then Run. Run performs the initial
// reconcile pass, starts one poller per tracked lock, and (when
// configured) re-reconciles on a fixed period. Pollers for a lock
// start only after the reconcile pass that discovered it completes.
type Reconciler struct {
	api       CloudAPI
	registry  *Registry
	events    Events
	telemetry Telemetry
	logger    *logging.Logger

	homeName       string
	pollInterval   time.Duration
	resyncInterval time.Duration

	homeID string

	// pollers maps lock id to the cancel func of its poll goroutine.
	pollers  map[string]context.CancelFunc
	pollerMu sync.Mutex
}

// ReconcilerConfig carries the reconciler tunables.
type ReconcilerConfig struct {
	// HomeName selects the home by exact, case-sensitive name.
	HomeName string

	// PollInterval is the fixed period of each lock's poll loop.
	PollInterval time.Duration

	// ResyncInterval re-runs reconciliation on this period.
	// Zero reconciles once at startup only.
	ResyncInterval time.Duration
}

// NewReconciler creates a reconciler. events and telemetry may be nil.
func NewReconciler(cloudAPI CloudAPI, registry *Registry, events Events, telemetry Telemetry, cfg ReconcilerConfig, logger *logging.Logger) *Reconciler {
	if events == nil {
		events = noopEvents{}
	}
	if telemetry == nil {
		telemetry = noopTelemetry{}
	}
	return &Reconciler{
		api:            cloudAPI,
		registry:       registry,
		events:         events,
		telemetry:      telemetry,
		logger:         logger,
		homeName:       cfg.HomeName,
		pollInterval:   cfg.PollInterval,
		resyncInterval: cfg.ResyncInterval,
		pollers:        make(map[string]context.CancelFunc),
	}
}

// ResolveHome finds the configured home on the account.
//
// The match is exact and case-sensitive. Zero matches or more than one
// match is fatal: the bridge must never guess which home to manage.
func (r *Reconciler) ResolveHome(ctx context.Context) error {
	homes, err := r.api.Homes(ctx)
	if err != nil {
		return fmt.Errorf("listing homes: %w", err)
	}

	var matches []cloud.Home
	for _, home := range homes {
		if home.HomeName == r.homeName {
			matches = append(matches, home)
		}
	}

	switch len(matches) {
	case 0:
		return fmt.Errorf("%w: %q", ErrHomeNotFound, r.homeName)
	case 1:
		r.homeID = matches[0].HomeID
		r.logger.Info("home resolved", "home", r.homeName, "home_id", r.homeID)
		return nil
	default:
		return fmt.Errorf("%w: %q matches %d homes", ErrHomeAmbiguous, r.homeName, len(matches))
	}
}

// HomeID returns the resolved home identifier, empty before ResolveHome.
func (r *Reconciler) HomeID() string {
	return r.homeID
}

// Run performs the initial reconcile pass, starts the pollers, and
// blocks until ctx is cancelled. When a resync interval is configured,
// reconciliation repeats on that period; resync failures are transient
// (logged, previous mirror retained).
func (r *Reconciler) Run(ctx context.Context) error {
	if r.homeID == "" {
		return ErrHomeNotResolved
	}

	if err := r.Reconcile(ctx); err != nil {
		return fmt.Errorf("initial reconciliation: %w", err)
	}

	// Pollers start only after the reconcile pass completed.
	for _, lock := range r.registry.List() {
		r.startPoller(ctx, lock.ID, lock.DeviceID)
	}

	if r.resyncInterval <= 0 {
		<-ctx.Done()
		r.stopAllPollers()
		return nil
	}

	ticker := time.NewTicker(r.resyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.stopAllPollers()
			return nil
		case <-ticker.C:
			if err := r.Reconcile(ctx); err != nil {
				r.logger.Warn("periodic reconciliation failed, keeping current mirror", "error", err)
				continue
			}
			// Start pollers for locks discovered by this pass.
			for _, lock := range r.registry.List() {
				r.startPoller(ctx, lock.ID, lock.DeviceID)
			}
		}
	}
}

// Reconcile aligns the registry with the remote device list.
//
// The diff is a pure set comparison on stable ids:
//   - remote-only devices are discovered
//   - shared devices are updated in place
//   - local-only locks are removed (their pollers stop)
func (r *Reconciler) Reconcile(ctx context.Context) error {
	devices, err := r.api.Devices(ctx, r.homeID)
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}

	remote := make(map[string]cloud.Device, len(devices))
	for _, device := range devices {
		remote[StableID(device.DeviceID)] = device
	}

	for id, device := range remote {
		lock, created, err := r.registry.Upsert(ctx, device)
		if err != nil {
			return fmt.Errorf("reconciling device %s: %w", device.DeviceID, err)
		}
		if created {
			r.logger.Info("lock discovered",
				"lock_id", id,
				"name", lock.Name,
				"door_status", string(lock.DoorStatus),
				"battery", lock.BatteryPercent,
			)
			if lock.CriticalBattery() {
				r.logger.Warn("discovered lock battery critically low",
					"name", lock.Name,
					"battery", lock.BatteryPercent,
				)
			}
			r.events.LockDiscovered(*lock)
		} else {
			r.events.LockUpdated(*lock)
		}
		r.telemetry.RecordLockState(*lock)
	}

	for _, lock := range r.registry.List() {
		if _, ok := remote[lock.ID]; ok {
			continue
		}
		removed, err := r.registry.Remove(ctx, lock.ID)
		if err != nil {
			return fmt.Errorf("removing vanished lock %s: %w", lock.ID, err)
		}
		r.stopPoller(lock.ID)
		r.logger.Info("lock removed", "lock_id", lock.ID, "name", removed.Name)
		r.events.LockRemoved(*removed)
	}

	return nil
}

// SetLockState sends a lock/unlock command for the given lock.
//
// One PATCH, no retry. Only on remote acceptance does the local state
// move optimistically to the requested target; on failure nothing
// changes and the error surfaces to the caller.
func (r *Reconciler) SetLockState(ctx context.Context, id string, target State) error {
	lock, err := r.registry.Get(id)
	if err != nil {
		return err
	}

	action, err := target.Action()
	if err != nil {
		return err
	}

	start := time.Now()
	err = r.api.SetStatus(ctx, lock.DeviceID, action)
	durationMs := float64(time.Since(start)) / float64(time.Millisecond)
	r.telemetry.RecordCommand(id, action, err == nil, durationMs)
	if err != nil {
		return fmt.Errorf("commanding lock %s: %w", id, err)
	}

	updated, err := r.registry.ApplyCommand(ctx, id, target)
	if err != nil {
		return err
	}

	r.logger.Info("lock commanded", "lock_id", id, "action", action)
	r.events.LockUpdated(*updated)
	r.telemetry.RecordLockState(*updated)
	return nil
}

// startPoller launches the fixed-period poll loop for one lock.
// Idempotent: a lock that already has a poller keeps it.
func (r *Reconciler) startPoller(ctx context.Context, id, deviceID string) {
	r.pollerMu.Lock()
	defer r.pollerMu.Unlock()

	if _, running := r.pollers[id]; running {
		return
	}

	pollCtx, cancel := context.WithCancel(ctx)
	r.pollers[id] = cancel

	go func() {
		ticker := time.NewTicker(r.pollInterval)
		defer ticker.Stop()

		// Immediate first poll, then the fixed period.
		r.pollOnce(pollCtx, id, deviceID)
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				r.pollOnce(pollCtx, id, deviceID)
			}
		}
	}()
}

// pollOnce fetches the lock's remote record and folds it into the
// registry. Failures are transient: logged, previous state retained.
func (r *Reconciler) pollOnce(ctx context.Context, id, deviceID string) {
	device, err := r.api.Device(ctx, deviceID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn("poll failed, keeping last known state", "lock_id", id, "error", err)
		return
	}

	lock, changed, err := r.registry.ApplyPoll(ctx, id, *device)
	if err != nil {
		r.logger.Warn("could not apply poll result", "lock_id", id, "error", err)
		return
	}

	if changed {
		r.logger.Info("lock state changed",
			"lock_id", id,
			"name", lock.Name,
			"door_status", string(lock.DoorStatus),
		)
	}
	r.events.LockUpdated(*lock)
	r.telemetry.RecordLockState(*lock)
}

func (r *Reconciler) stopPoller(id string) {
	r.pollerMu.Lock()
	defer r.pollerMu.Unlock()

	if cancel, ok := r.pollers[id]; ok {
		cancel()
		delete(r.pollers, id)
	}
}

func (r *Reconciler) stopAllPollers() {
	r.pollerMu.Lock()
	defer r.pollerMu.Unlock()

	for id, cancel := range r.pollers {
		cancel()
		delete(r.pollers, id)
	}
}

type noopEvents struct{}

func (noopEvents) LockDiscovered(Lock) {}
func (noopEvents) LockUpdated(Lock)    {}
func (noopEvents) LockRemoved(Lock)    {}

type noopTelemetry struct{}

func (noopTelemetry) RecordLockState(Lock)                        {}
func (noopTelemetry) RecordCommand(string, string, bool, float64) {}
