package lock

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/halo-bridge/internal/cloud"
)

// State is the closed set of lock states this bridge reasons about.
type State string

const (
	StateSecured   State = "secured"
	StateUnsecured State = "unsecured"
	StateJammed    State = "jammed"
	StateUnknown   State = "unknown"
)

// Battery thresholds.
const (
	// lowBatteryLevel marks a lock as low-battery at or below this
	// percentage. 40 is low, 41 is normal.
	lowBatteryLevel = 40

	// criticalBatteryLevel triggers a warning at discovery time.
	criticalBatteryLevel = 10
)

// idNamespace is the fixed UUID namespace for deriving stable lock
// identifiers from remote device ids. Changing it would orphan every
// persisted lock row, so it never changes.
var idNamespace = uuid.MustParse("9a1c4b6e-2f53-4c8d-8a07-6e1df25c3b41")

// StableID derives the local lock identifier from a remote device id.
// The mapping is deterministic: the same device id always yields the
// same UUID, across restarts and reinstalls.
func StableID(deviceID string) string {
	return uuid.NewSHA1(idNamespace, []byte(deviceID)).String()
}

// StateFromDoorStatus maps a remote door status string to a State.
//
// The mapping is total: every input yields a state, unrecognised
// values yield StateUnknown. The remote uses capitalised values
// ("Locked", "Unlocked", "Jammed").
func StateFromDoorStatus(doorStatus string) State {
	switch doorStatus {
	case "Locked":
		return StateSecured
	case "Unlocked":
		return StateUnsecured
	case "Jammed":
		return StateJammed
	default:
		return StateUnknown
	}
}

// StateFromAction maps a command action to the target state it
// requests. Only "lock" and "unlock" are valid commands.
func StateFromAction(action string) (State, error) {
	switch action {
	case "lock":
		return StateSecured, nil
	case "unlock":
		return StateUnsecured, nil
	default:
		return StateUnknown, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
}

// Action returns the remote command verb that requests this state.
// Only Secured and Unsecured are commandable.
func (s State) Action() (string, error) {
	switch s {
	case StateSecured:
		return "lock", nil
	case StateUnsecured:
		return "unlock", nil
	default:
		return "", fmt.Errorf("%w: state %q has no command", ErrInvalidAction, s)
	}
}

// Lock is the local mirror of one remote lock.
type Lock struct {
	// ID is the stable local identifier derived from DeviceID.
	ID string `json:"id"`

	// DeviceID is the remote device identifier.
	DeviceID string `json:"device_id"`

	Name   string `json:"name"`
	Model  string `json:"model"`
	Serial string `json:"serial"`

	// DoorStatus is the last observed state of the physical bolt.
	DoorStatus State `json:"door_status"`

	// TargetState is where the lock should be. Polls realign it when
	// the physical state diverges (manual actuation wins).
	TargetState State `json:"target_state"`

	BatteryPercent int    `json:"battery_percent"`
	BatteryStatus  string `json:"battery_status"`

	FirstSeen time.Time `json:"first_seen"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LowBattery reports whether the lock is at or below the low-battery
// threshold.
func (l *Lock) LowBattery() bool {
	return l.BatteryPercent <= lowBatteryLevel
}

// CriticalBattery reports whether the battery is critically low.
func (l *Lock) CriticalBattery() bool {
	return l.BatteryPercent <= criticalBatteryLevel
}

// DeepCopy returns an independent copy of the lock.
func (l *Lock) DeepCopy() *Lock {
	copied := *l
	return &copied
}

// newLockFromDevice builds a freshly discovered lock from its remote
// record. The initial target aligns with the observed state so the
// bridge never issues a command the user did not ask for.
func newLockFromDevice(device cloud.Device, now time.Time) *Lock {
	state := StateFromDoorStatus(device.DoorStatus)
	return &Lock{
		ID:             StableID(device.DeviceID),
		DeviceID:       device.DeviceID,
		Name:           device.DeviceName,
		Model:          device.ModelNumber,
		Serial:         device.SerialNumber,
		DoorStatus:     state,
		TargetState:    state,
		BatteryPercent: device.BatteryPercentage,
		BatteryStatus:  device.BatteryStatus,
		FirstSeen:      now,
		UpdatedAt:      now,
	}
}
