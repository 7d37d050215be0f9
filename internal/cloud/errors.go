package cloud

import "errors"

// Sentinel errors for cloud API operations.
var (
	// ErrEmptyDeviceRecord indicates the device endpoint returned an
	// empty data list for a known device id.
	ErrEmptyDeviceRecord = errors.New("device endpoint returned no record")
)
