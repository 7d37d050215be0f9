package telemetry

import (
	"github.com/nerrad567/halo-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/halo-bridge/internal/lock"
)

// Recorder writes lock observations to InfluxDB.
//
// It implements lock.Telemetry. A Recorder built over a nil client is
// a no-op, so call sites never branch on whether telemetry is enabled.
type Recorder struct {
	client *influxdb.Client
}

// NewRecorder creates a recorder. client may be nil (telemetry disabled).
func NewRecorder(client *influxdb.Client) *Recorder {
	return &Recorder{client: client}
}

// RecordLockState writes one lock_state point for the observation.
func (r *Recorder) RecordLockState(l lock.Lock) {
	if r == nil || r.client == nil {
		return
	}

	r.client.WriteLockState(
		l.ID,
		l.DeviceID,
		string(l.DoorStatus),
		l.BatteryPercent,
		l.LowBattery(),
	)
}

// RecordCommand writes one lock_command point for a command outcome.
func (r *Recorder) RecordCommand(lockID, action string, success bool, durationMs float64) {
	if r == nil || r.client == nil {
		return
	}

	r.client.WriteCommandResult(lockID, action, success, durationMs)
}
