package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
var (
	// ErrDisabled indicates InfluxDB is disabled in configuration.
	// Callers should treat this as a signal to skip telemetry, not a failure.
	ErrDisabled = errors.New("influxdb is disabled in configuration")

	// ErrConnectionFailed indicates the initial connection or ping failed.
	ErrConnectionFailed = errors.New("influxdb connection failed")

	// ErrNotConnected indicates an operation was attempted without an
	// active connection.
	ErrNotConnected = errors.New("influxdb client not connected")
)
