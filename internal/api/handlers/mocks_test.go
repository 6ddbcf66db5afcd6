package handlers

import (
	"time"

	"tradecore/internal/models"
	"tradecore/internal/repository"
)

// mockEventSource - мок аудит-журнала для тестов handlers
type mockEventSource struct {
	events     []repository.OrderEvent
	rejections []repository.OrderEvent
	byOrder    map[string][]repository.OrderEvent
	err        error

	lastLimit int
}

func (m *mockEventSource) GetRecent(limit int) ([]repository.OrderEvent, error) {
	m.lastLimit = limit
	return m.events, m.err
}

func (m *mockEventSource) GetRecentRejections(limit int) ([]repository.OrderEvent, error) {
	m.lastLimit = limit
	return m.rejections, m.err
}

func (m *mockEventSource) GetByOrderID(orderID string) ([]repository.OrderEvent, error) {
	return m.byOrder[orderID], m.err
}

// mockNotificationSource - мок журнала уведомлений
type mockNotificationSource struct {
	notifications []models.Notification
	err           error

	lastTypes []string
	lastLimit int
	deleted   int64
}

func (m *mockNotificationSource) GetRecent(limit int) ([]models.Notification, error) {
	m.lastLimit = limit
	return m.notifications, m.err
}

func (m *mockNotificationSource) GetByTypes(types []string, limit int) ([]models.Notification, error) {
	m.lastTypes = types
	m.lastLimit = limit
	return m.notifications, m.err
}

func (m *mockNotificationSource) DeleteOlderThan(cutoff time.Time) (int64, error) {
	return m.deleted, m.err
}
