package lock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/halo-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/halo-bridge/internal/infrastructure/mqtt"
)

// commandTimeout bounds a single command round trip triggered from the
// MQTT boundary.
const commandTimeout = 30 * time.Second

// Commander executes lock/unlock requests arriving over MQTT.
// The Reconciler implements it.
type Commander interface {
	SetLockState(ctx context.Context, id string, target State) error
}

// Publisher is the MQTT accessory boundary.
//
// It implements Events: state snapshots go to the retained per-lock
// state topic, lifecycle changes to the per-lock event topic. It also
// subscribes to the wildcard command topic and routes inbound
// lock/unlock requests to the Commander.
type Publisher struct {
	client *mqtt.Client
	topics mqtt.Topics
	logger *logging.Logger
}

// NewPublisher creates the MQTT boundary over a connected client.
func NewPublisher(client *mqtt.Client, logger *logging.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger,
	}
}

// statePayload is the retained state snapshot published per lock.
type statePayload struct {
	ID             string `json:"id"`
	DeviceID       string `json:"device_id"`
	Name           string `json:"name"`
	Model          string `json:"model"`
	Serial         string `json:"serial"`
	DoorStatus     string `json:"door_status"`
	TargetState    string `json:"target_state"`
	BatteryPercent int    `json:"battery_percent"`
	BatteryStatus  string `json:"battery_status"`
	LowBattery     bool   `json:"low_battery"`
	UpdatedAt      string `json:"updated_at"`
}

// eventPayload marks lifecycle transitions on the event topic.
type eventPayload struct {
	Event string `json:"event"`
	ID    string `json:"id"`
	Name  string `json:"name"`
}

// commandPayload is the expected body on the command topic.
type commandPayload struct {
	Action string `json:"action"`
}

// LockDiscovered publishes the discovery event and the initial state.
func (p *Publisher) LockDiscovered(lock Lock) {
	p.publishEvent("discovered", lock)
	p.publishState(lock)
}

// LockUpdated publishes the current state snapshot.
func (p *Publisher) LockUpdated(lock Lock) {
	p.publishState(lock)
}

// LockRemoved publishes the removal event and clears the retained
// state so late subscribers do not see a ghost lock.
func (p *Publisher) LockRemoved(lock Lock) {
	p.publishEvent("removed", lock)

	// Empty retained payload clears the topic on the broker.
	if err := p.client.Publish(p.topics.LockState(lock.ID), nil, true); err != nil {
		p.logger.Warn("could not clear retained lock state", "lock_id", lock.ID, "error", err)
	}
}

// SubscribeCommands routes inbound command messages to the Commander.
// Call once after the reconciler is ready.
func (p *Publisher) SubscribeCommands(commander Commander) error {
	topic := p.topics.AllLockCommands()

	err := p.client.Subscribe(topic, func(topic string, payload []byte) error {
		lockID, err := lockIDFromCommandTopic(topic)
		if err != nil {
			return err
		}

		var cmd commandPayload
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return fmt.Errorf("decoding command payload: %w", err)
		}

		target, err := StateFromAction(cmd.Action)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		if err := commander.SetLockState(ctx, lockID, target); err != nil {
			return fmt.Errorf("executing %s for lock %s: %w", cmd.Action, lockID, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to lock commands: %w", err)
	}

	return nil
}

func (p *Publisher) publishState(lock Lock) {
	payload := statePayload{
		ID:             lock.ID,
		DeviceID:       lock.DeviceID,
		Name:           lock.Name,
		Model:          lock.Model,
		Serial:         lock.Serial,
		DoorStatus:     string(lock.DoorStatus),
		TargetState:    string(lock.TargetState),
		BatteryPercent: lock.BatteryPercent,
		BatteryStatus:  lock.BatteryStatus,
		LowBattery:     lock.LowBattery(),
		UpdatedAt:      lock.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if err := p.client.PublishJSON(p.topics.LockState(lock.ID), payload, true); err != nil {
		p.logger.Warn("could not publish lock state", "lock_id", lock.ID, "error", err)
	}
}

func (p *Publisher) publishEvent(event string, lock Lock) {
	payload := eventPayload{Event: event, ID: lock.ID, Name: lock.Name}

	if err := p.client.PublishJSON(p.topics.LockEvent(lock.ID), payload, false); err != nil {
		p.logger.Warn("could not publish lock event", "lock_id", lock.ID, "event", event, "error", err)
	}
}

// lockIDFromCommandTopic extracts the lock id from
// "halobridge/lock/{id}/command".
func lockIDFromCommandTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[1] != "lock" || parts[3] != "command" {
		return "", fmt.Errorf("unexpected command topic %q", topic)
	}
	return parts[2], nil
}
