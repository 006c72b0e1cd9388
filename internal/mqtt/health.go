package mqtt

import (
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Connected      bool      `json:"connected"`
	LastConnected  time.Time `json:"lastConnected,omitempty"`
	LastDisconnect time.Time `json:"lastDisconnect,omitempty"`
	Subscriptions  int       `json:"subscriptions"`
}

func (c *Client) Status() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return HealthStatus{
		Connected:      c.connected && c.client.IsConnected(),
		LastConnected:  c.lastConnected,
		LastDisconnect: c.lastDisconnect,
		Subscriptions:  len(c.handlers),
	}
}

// Health returns an error when the broker connection is down.
func (c *Client) Health(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.Status().Connected {
		return fmt.Errorf("mqtt broker %s:%d not connected", c.cfg.Broker, c.cfg.Port)
	}
	return nil
}

// WaitForConnection blocks until the client is connected, ctx is done or
// timeout elapses.
func (c *Client) WaitForConnection(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if c.IsConnected() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("connection timeout after %v: %w", timeout, ctx.Err())
		case <-ticker.C:
		}
	}
}
