package cloud

import (
	"context"
	"fmt"
	"net/http"
)

// commandSource identifies this bridge in the remote activity log.
// The API expects it as a JSON-encoded string field, not a nested object.
const commandSource = `{"name":"HaloBridge","device":"HaloBridge"}`

// homesPageSize caps the home listing. One account rarely has more
// than a handful of homes; the cap exists because the endpoint pages.
const homesPageSize = 200

// Home is one home on the account. Field names follow the remote
// API's lowercase JSON casing.
type Home struct {
	HomeID   string `json:"homeid"`
	HomeName string `json:"homename"`
}

// Device is the remote record for one lock. Only the fields this
// bridge consumes are modelled.
type Device struct {
	DeviceID          string `json:"deviceid"`
	DeviceName        string `json:"devicename"`
	ModelNumber       string `json:"modelnumber"`
	SerialNumber      string `json:"serialnumber"`
	DoorStatus        string `json:"doorstatus"`
	BatteryPercentage int    `json:"batterypercentage"`
	BatteryStatus     string `json:"batterystatus"`
}

// envelope is the {"data": ...} wrapper every API response uses.
type envelope[T any] struct {
	Data T `json:"data"`
}

// Homes lists the homes on the authenticated account.
func (c *Client) Homes(ctx context.Context) ([]Home, error) {
	var resp envelope[[]Home]
	path := fmt.Sprintf("users/me/homes?top=%d", homesPageSize)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing homes: %w", err)
	}
	return resp.Data, nil
}

// Devices lists the devices in a home.
func (c *Client) Devices(ctx context.Context, homeID string) ([]Device, error) {
	var resp envelope[[]Device]
	path := fmt.Sprintf("homes/%s/devices", homeID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing devices for home %s: %w", homeID, err)
	}
	return resp.Data, nil
}

// Device fetches the current record for one device.
//
// The endpoint wraps the single record in a one-element list.
func (c *Client) Device(ctx context.Context, deviceID string) (*Device, error) {
	var resp envelope[[]Device]
	path := fmt.Sprintf("devices_v2/%s", deviceID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching device %s: %w", deviceID, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("fetching device %s: %w", deviceID, ErrEmptyDeviceRecord)
	}
	return &resp.Data[0], nil
}

// setStatusRequest is the PATCH body for lock/unlock commands.
type setStatusRequest struct {
	Action string `json:"action"`
	Source string `json:"source"`
}

// SetStatus sends a lock or unlock command to a device.
//
// Parameters:
//   - deviceID: remote device identifier
//   - action: "lock" or "unlock"
//
// A nil return means the remote accepted the command; the physical
// actuation is reported by subsequent polls.
func (c *Client) SetStatus(ctx context.Context, deviceID, action string) error {
	body := setStatusRequest{
		Action: action,
		Source: commandSource,
	}

	path := fmt.Sprintf("devices/%s/status", deviceID)
	if err := c.do(ctx, http.MethodPatch, path, body, nil); err != nil {
		return fmt.Errorf("setting device %s to %s: %w", deviceID, action, err)
	}
	return nil
}
