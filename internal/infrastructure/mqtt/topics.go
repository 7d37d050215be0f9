package mqtt

import "fmt"

// Topic structure constants.
const (
	// topicPrefix is the root namespace for all Halo Bridge topics.
	topicPrefix = "halobridge"
)

// Topics provides type-safe topic construction for the Halo Bridge MQTT namespace.
//
// Topic structure:
//
//	halobridge/lock/{lock_id}/state      - Retained lock state snapshots
//	halobridge/lock/{lock_id}/command    - Inbound lock/unlock commands
//	halobridge/lock/{lock_id}/event      - Lifecycle events (discovered, removed)
//	halobridge/system/status             - Bridge online/offline (LWT)
//
// Usage:
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.LockState("a1b2c3")  // "halobridge/lock/a1b2c3/state"
type Topics struct{}

// LockState returns the topic for a lock's retained state snapshot.
//
// Published by the bridge after every poll cycle and after successful
// command execution. Retained so late subscribers see current state.
func (t Topics) LockState(lockID string) string {
	return fmt.Sprintf("%s/lock/%s/state", topicPrefix, lockID)
}

// LockCommand returns the topic for inbound commands to a specific lock.
//
// Payload: {"action": "lock"} or {"action": "unlock"}
func (t Topics) LockCommand(lockID string) string {
	return fmt.Sprintf("%s/lock/%s/command", topicPrefix, lockID)
}

// LockEvent returns the topic for lifecycle events of a specific lock.
//
// Events: discovered, updated, removed.
func (t Topics) LockEvent(lockID string) string {
	return fmt.Sprintf("%s/lock/%s/event", topicPrefix, lockID)
}

// AllLockCommands returns a wildcard subscription matching every lock's
// command topic.
func (t Topics) AllLockCommands() string {
	return fmt.Sprintf("%s/lock/+/command", topicPrefix)
}

// AllLockStates returns a wildcard subscription matching every lock's
// state topic.
func (t Topics) AllLockStates() string {
	return fmt.Sprintf("%s/lock/+/state", topicPrefix)
}

// SystemStatus returns the bridge status topic (online/offline via LWT).
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", topicPrefix)
}
