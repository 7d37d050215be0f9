package lock

import "errors"

// Sentinel errors for lock operations.
var (
	// ErrLockNotFound indicates the requested lock is not in the registry.
	ErrLockNotFound = errors.New("lock not found")

	// ErrLockExists indicates a create collided with an existing row.
	ErrLockExists = errors.New("lock already exists")

	// ErrHomeNotFound indicates no home on the account matches the
	// configured name. Fatal at startup.
	ErrHomeNotFound = errors.New("configured home not found")

	// ErrHomeAmbiguous indicates more than one home matches the
	// configured name. Fatal at startup.
	ErrHomeAmbiguous = errors.New("configured home name is ambiguous")

	// ErrInvalidAction indicates a command action outside lock/unlock.
	ErrInvalidAction = errors.New("invalid lock action")

	// ErrHomeNotResolved indicates Run was called before ResolveHome.
	ErrHomeNotResolved = errors.New("home not resolved")
)
