package services

import (
	"context"
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// Pusher delivers a push notification to one device
type Pusher interface {
	Push(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}

// PushNotifier sends APNs notifications with token-based (.p8) authentication
type PushNotifier struct {
	client *apns2.Client
	topic  string
}

// NewPushNotifier creates an APNs notifier from a .p8 auth key
func NewPushNotifier(keyFile, keyID, teamID, topic string, production bool) (*PushNotifier, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
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

	return &PushNotifier{
		client: client,
		topic:  topic,
	}, nil
}

// Push sends an alert with custom data to deviceToken
func (p *PushNotifier) Push(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	pl := payload.NewPayload().AlertTitle(title).AlertBody(body).Sound("default")
	for k, v := range data {
		pl = pl.Custom(k, v)
	}

	res, err := p.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       p.topic,
		Payload:     pl,
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("push rejected: %d %s", res.StatusCode, res.Reason)
	}
	return nil
}
