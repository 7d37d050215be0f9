package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/halo-bridge/internal/cloud"
	"github.com/nerrad567/halo-bridge/internal/infrastructure/logging"
)

// Registry is the in-memory lock mirror backed by the SQLite
// repository. Reads come from the cache; every mutation writes through
// to the repository before the cache is updated.
//
// All returned locks are copies. Callers never hold references into
// the cache.
type Registry struct {
	repo   Repository
	logger *logging.Logger

	mu    sync.RWMutex
	locks map[string]*Lock
}

// NewRegistry creates a registry over the given repository.
func NewRegistry(repo Repository, logger *logging.Logger) *Registry {
	return &Registry{
		repo:   repo,
		logger: logger,
		locks:  make(map[string]*Lock),
	}
}

// RefreshCache loads the full lock mirror from the repository,
// replacing the in-memory cache. Called once at startup so restarts
// warm-start from the last known state.
func (r *Registry) RefreshCache(ctx context.Context) error {
	locks, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("warm-starting lock registry: %w", err)
	}

	fresh := make(map[string]*Lock, len(locks))
	for i := range locks {
		fresh[locks[i].ID] = locks[i].DeepCopy()
	}

	r.mu.Lock()
	r.locks = fresh
	r.mu.Unlock()

	r.logger.Info("lock registry warm-started", "locks", len(locks))
	return nil
}

// Get returns a copy of the lock with the given id.
func (r *Registry) Get(id string) (*Lock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lock, ok := r.locks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockNotFound, id)
	}
	return lock.DeepCopy(), nil
}

// List returns copies of all tracked locks.
func (r *Registry) List() []Lock {
	r.mu.RLock()
	defer r.mu.RUnlock()

	locks := make([]Lock, 0, len(r.locks))
	for _, lock := range r.locks {
		locks = append(locks, *lock.DeepCopy())
	}
	return locks
}

// Upsert reconciles one remote device record into the registry.
//
// A device not yet tracked is created (created=true). An existing lock
// has its metadata and observed state updated with the same realignment
// semantics as ApplyPoll.
//
// Returns a copy of the resulting lock and whether it was created.
func (r *Registry) Upsert(ctx context.Context, device cloud.Device) (*Lock, bool, error) {
	id := StableID(device.DeviceID)

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.locks[id]
	if !ok {
		fresh := newLockFromDevice(device, time.Now().UTC())
		if err := r.repo.Create(ctx, fresh); err != nil {
			return nil, false, fmt.Errorf("persisting discovered lock: %w", err)
		}
		r.locks[id] = fresh
		return fresh.DeepCopy(), true, nil
	}

	updated := existing.DeepCopy()
	updated.Name = device.DeviceName
	updated.Model = device.ModelNumber
	updated.Serial = device.SerialNumber
	applyObservation(updated, device)

	if err := r.repo.Update(ctx, updated); err != nil {
		return nil, false, fmt.Errorf("persisting lock update: %w", err)
	}
	r.locks[id] = updated
	return updated.DeepCopy(), false, nil
}

// ApplyPoll folds one poll observation into the tracked lock.
//
// If the observed state differs from the stored target, the target is
// realigned to the observation: a manually operated lock is never
// fought back to its previous target.
//
// Returns a copy of the lock and whether the observed state changed.
func (r *Registry) ApplyPoll(ctx context.Context, id string, device cloud.Device) (*Lock, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.locks[id]
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrLockNotFound, id)
	}

	previous := existing.DoorStatus
	updated := existing.DeepCopy()
	applyObservation(updated, device)
	changed := updated.DoorStatus != previous

	if err := r.repo.Update(ctx, updated); err != nil {
		return nil, false, fmt.Errorf("persisting poll result: %w", err)
	}
	r.locks[id] = updated
	return updated.DeepCopy(), changed, nil
}

// ApplyCommand records a successfully executed command optimistically:
// both the target and the observed state move to the commanded state.
// Must only be called after the remote accepted the command.
func (r *Registry) ApplyCommand(ctx context.Context, id string, target State) (*Lock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.locks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockNotFound, id)
	}

	updated := existing.DeepCopy()
	updated.TargetState = target
	updated.DoorStatus = target

	if err := r.repo.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("persisting command result: %w", err)
	}
	r.locks[id] = updated
	return updated.DeepCopy(), nil
}

// Remove drops a lock that disappeared from the remote device list.
// Returns a copy of the removed lock for event emission.
func (r *Registry) Remove(ctx context.Context, id string) (*Lock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.locks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockNotFound, id)
	}

	if err := r.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("removing lock: %w", err)
	}
	delete(r.locks, id)
	return existing.DeepCopy(), nil
}

// applyObservation folds a remote record's observed fields into a lock,
// realigning the target when the physical state diverged from it.
func applyObservation(lock *Lock, device cloud.Device) {
	state := StateFromDoorStatus(device.DoorStatus)

	lock.DoorStatus = state
	if state != lock.TargetState {
		lock.TargetState = state
	}
	lock.BatteryPercent = device.BatteryPercentage
	lock.BatteryStatus = device.BatteryStatus
	lock.UpdatedAt = time.Now().UTC()
}
