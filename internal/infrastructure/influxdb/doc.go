// Package influxdb provides time-series telemetry storage for Halo Bridge.
//
// It wraps the InfluxDB v2 client with non-blocking batched writes,
// connection health checks, and async error reporting. Lock state
// observations and command outcomes are recorded as points so battery
// drain and state history can be graphed.
//
// Telemetry is optional: when disabled in configuration, Connect
// returns ErrDisabled and the caller runs without a client.
package influxdb
