package mqtt

import (
	"encoding/json"
	"fmt"
)

// Publish sends a message to the specified topic.
//
// Parameters:
//   - topic: Full topic path (use Topics{} helpers for consistency)
//   - payload: Message content (typically JSON)
//   - retained: If true, broker stores message for new subscribers
//
// Returns:
//   - error: If not connected, or publish fails/times out
//
// QoS is taken from the client configuration.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, byte(c.cfg.QoS), retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout on topic %s", ErrPublishFailed, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishJSON marshals a value to JSON and publishes it.
//
// Convenience wrapper around Publish for the common case of structured
// payloads.
func (c *Client) PublishJSON(topic string, value any, retained bool) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrPublishFailed, err)
	}

	return c.Publish(topic, payload, retained)
}
