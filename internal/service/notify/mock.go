package notify

import (
	"context"

	"github.com/pedidohub/backoffice/internal/domain"
)

// Mock is a configurable NotificationGateway stub for tests.
type Mock struct {
	Err error

	Calls int
	Sent  []domain.Notification
}

// NewMock returns a mock that delivers everything.
func NewMock() *Mock {
	return &Mock{}
}

// Send records the notification and returns the configured error.
func (m *Mock) Send(ctx context.Context, notification domain.Notification) error {
	m.Calls++
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, notification)
	return nil
}

var _ domain.NotificationGateway = (*Mock)(nil)
