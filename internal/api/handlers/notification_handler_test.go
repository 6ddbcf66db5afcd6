package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tradecore/internal/models"
)

func TestNotificationHandler_GetNotifications(t *testing.T) {
	source := &mockNotificationSource{
		notifications: []models.Notification{
			{ID: 1, Type: models.NotificationTypeReject, Severity: models.SeverityWarn, Message: "rejected"},
		},
	}
	handler := NewNotificationHandler(source)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()
	handler.GetNotifications(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp GetNotificationsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Notifications[0].Type != models.NotificationTypeReject {
		t.Errorf("resp = %+v", resp)
	}
	if source.lastTypes != nil {
		t.Error("без параметра types фильтрация не должна применяться")
	}
}

// Фильтр по типам нормализуется: пробелы обрезаются, регистр поднимается
func TestNotificationHandler_TypesFilter(t *testing.T) {
	source := &mockNotificationSource{}
	handler := NewNotificationHandler(source)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?types=reject,%20error,", nil)
	handler.GetNotifications(httptest.NewRecorder(), req)

	if len(source.lastTypes) != 2 {
		t.Fatalf("types = %v", source.lastTypes)
	}
	if source.lastTypes[0] != "REJECT" || source.lastTypes[1] != "ERROR" {
		t.Errorf("types = %v", source.lastTypes)
	}
}

func TestNotificationHandler_ClearNotifications(t *testing.T) {
	source := &mockNotificationSource{deleted: 42}
	handler := NewNotificationHandler(source)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()
	handler.ClearNotifications(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp ClearNotificationsResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Deleted != 42 {
		t.Errorf("deleted = %d", resp.Deleted)
	}
}
