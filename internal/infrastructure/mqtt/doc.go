// Package mqtt provides the event bus for Halo Bridge.
//
// It wraps paho.mqtt.golang with connection management, Last Will and
// Testament for offline detection, automatic re-subscription on
// reconnect, and panic-recovering message handlers.
//
// Lock state snapshots are published retained so accessory layers that
// connect late still see current state. Commands arrive on per-lock
// command topics and are routed to the reconciler.
package mqtt
