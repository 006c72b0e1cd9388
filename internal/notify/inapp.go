package notify

import (
	"context"
	"errors"

	"FarmMonitorAPI/internal/models"
	"FarmMonitorAPI/internal/websocket"
)

type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) bool
}

// InAppSender pushes alerts to connected dashboards.
type InAppSender struct {
	hub Broadcaster
}

func NewInAppSender(hub Broadcaster) *InAppSender {
	return &InAppSender{hub: hub}
}

func (s *InAppSender) Channel() models.Channel {
	return models.ChannelInApp
}

func (s *InAppSender) Send(ctx context.Context, n Notification, _ models.NotificationSettings) error {
	if !s.hub.Broadcast(websocket.TypeNotification, n) {
		return errors.New("in-app notifier: broadcast queue full")
	}
	return nil
}
