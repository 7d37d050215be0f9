package mqtt

import "errors"

// Sentinel errors for MQTT operations.
var (
	// ErrConnectionFailed indicates the initial broker connection failed.
	ErrConnectionFailed = errors.New("mqtt connection failed")

	// ErrNotConnected indicates an operation was attempted without an
	// active broker connection.
	ErrNotConnected = errors.New("mqtt client not connected")

	// ErrPublishFailed indicates a publish operation failed or timed out.
	ErrPublishFailed = errors.New("mqtt publish failed")

	// ErrSubscribeFailed indicates a subscribe operation failed or timed out.
	ErrSubscribeFailed = errors.New("mqtt subscribe failed")

	// ErrInvalidQoS indicates a QoS level outside the valid 0-2 range.
	ErrInvalidQoS = errors.New("invalid QoS level")
)
