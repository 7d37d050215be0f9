package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteLockState writes a lock state observation to InfluxDB.
//
// Called after every poll cycle and after command execution. The write
// is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - lockID: Stable local identifier for the lock
//   - deviceID: Remote device identifier
//   - doorStatus: Current door state ("secured", "unsecured", "jammed", "unknown")
//   - batteryPercent: Battery level 0-100
//   - lowBattery: Whether the battery is at or below the low threshold
func (c *Client) WriteLockState(lockID, deviceID, doorStatus string, batteryPercent int, lowBattery bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"lock_state",
		map[string]string{
			"lock_id":   lockID,
			"device_id": deviceID,
		},
		map[string]interface{}{
			"door_status":     doorStatus,
			"battery_percent": batteryPercent,
			"low_battery":     lowBattery,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCommandResult records the outcome of a lock/unlock command.
//
// Parameters:
//   - lockID: Stable local identifier for the lock
//   - action: The command action ("lock" or "unlock")
//   - success: Whether the remote accepted the command
//   - durationMs: Round-trip time of the command request in milliseconds
func (c *Client) WriteCommandResult(lockID, action string, success bool, durationMs float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"lock_command",
		map[string]string{
			"lock_id": lockID,
			"action":  action,
		},
		map[string]interface{}{
			"success":     success,
			"duration_ms": durationMs,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
