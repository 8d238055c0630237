package services

import (
	"context"
	"fmt"

	"silver-social-backend/internal/models"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// Alert is an offline notification
type Alert struct {
	Title string
	Body  string
	Data  map[string]string
}

// Notifier reaches users who have no live connection
type Notifier interface {
	Notify(ctx context.Context, user *models.User, alert Alert) error
}

// NoopNotifier drops every alert
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, *models.User, Alert) error { return nil }

type apnsPusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// APNsNotifier sends alerts through Apple Push Notification service
type APNsNotifier struct {
	client apnsPusher
	topic  string
}

// NewAPNsNotifier creates a token-authenticated APNs client from a .p8 key file
func NewAPNsNotifier(keyFile, keyID, teamID, topic string, production bool) (*APNsNotifier, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	})
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsNotifier{client: client, topic: topic}, nil
}

// Notify pushes an alert to the user's device. Users without a device token are skipped.
func (n *APNsNotifier) Notify(ctx context.Context, user *models.User, alert Alert) error {
	if user == nil || user.PushToken == nil || *user.PushToken == "" {
		return nil
	}

	p := payload.NewPayload().AlertTitle(alert.Title).AlertBody(alert.Body).Sound("default")
	for k, v := range alert.Data {
		p.Custom(k, v)
	}

	res, err := n.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: *user.PushToken,
		Topic:       n.topic,
		Payload:     p,
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
	}

	return nil
}
