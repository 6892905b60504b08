package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pedidohub/backoffice/internal/domain"
)

func testNotification() domain.Notification {
	return domain.Notification{
		Recipient: "ana@example.com",
		Channel:   domain.NotificationChannelEmail,
		Language:  "pt-BR",
		Subject:   "Pedido confirmado",
		Body:      "Seu pedido foi confirmado.",
	}
}

func TestGatewaySend(t *testing.T) {
	gateway := NewGateway(WithSeed(42))

	if err := gateway.Send(context.Background(), testNotification()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGatewayEmptyRecipient(t *testing.T) {
	gateway := NewGateway()

	err := gateway.Send(context.Background(), domain.Notification{Channel: domain.NotificationChannelSMS})
	if !errors.Is(err, domain.ErrNotificationFailure) {
		t.Fatalf("expected ErrNotificationFailure, got %v", err)
	}
}

func TestGatewayAlwaysFails(t *testing.T) {
	gateway := NewGateway(WithFailureRate(1))

	err := gateway.Send(context.Background(), testNotification())
	if !errors.Is(err, domain.ErrNotificationFailure) {
		t.Fatalf("expected ErrNotificationFailure, got %v", err)
	}
}

func TestGatewayHonorsContext(t *testing.T) {
	gateway := NewGateway(WithLatency(5 * time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := gateway.Send(ctx, testNotification())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancelled delivery still waited %s", elapsed)
	}
}

func TestMock(t *testing.T) {
	mock := NewMock()

	if err := mock.Send(context.Background(), testNotification()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.Err = errors.New("smtp down")
	if err := mock.Send(context.Background(), testNotification()); err == nil {
		t.Fatal("expected the configured error")
	}

	if mock.Calls != 2 {
		t.Fatalf("unexpected call counter: %d", mock.Calls)
	}
	if len(mock.Sent) != 1 {
		t.Fatalf("unexpected sent count: %d", len(mock.Sent))
	}
	if mock.Sent[0].Channel != domain.NotificationChannelEmail {
		t.Fatalf("unexpected channel: %s", mock.Sent[0].Channel)
	}
}
