// Package telemetry records lock observations to the time-series
// store. It adapts the reconciliation engine's notifications to
// InfluxDB points and degrades to a no-op when telemetry is disabled.
package telemetry
