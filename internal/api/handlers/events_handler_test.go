package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"tradecore/internal/repository"
)

func TestEventsHandler_GetEvents(t *testing.T) {
	source := &mockEventSource{
		events: []repository.OrderEvent{
			{ID: 1, EventType: repository.EventAccepted, OrderID: "o1", Symbol: "BTCUSDT"},
			{ID: 2, EventType: repository.EventFill, OrderID: "o1", Symbol: "BTCUSDT"},
		},
	}
	handler := NewEventsHandler(source)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	handler.GetEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp EventsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || len(resp.Events) != 2 {
		t.Errorf("total = %d, events = %d", resp.Total, len(resp.Events))
	}
	if source.lastLimit != 100 {
		t.Errorf("лимит по умолчанию = %d, ожидался 100", source.lastLimit)
	}
}

// Лимит ограничивается потолком 500
func TestEventsHandler_LimitCapped(t *testing.T) {
	source := &mockEventSource{}
	handler := NewEventsHandler(source)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=10000", nil)
	handler.GetEvents(httptest.NewRecorder(), req)

	if source.lastLimit != 500 {
		t.Errorf("лимит = %d, ожидался потолок 500", source.lastLimit)
	}
}

func TestEventsHandler_GetRejections(t *testing.T) {
	source := &mockEventSource{
		rejections: []repository.OrderEvent{
			{ID: 3, EventType: repository.EventRejection, Symbol: "ETHUSDT", Code: "MAX_EXPOSURE"},
		},
	}
	handler := NewEventsHandler(source)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rejections?limit=10", nil)
	rec := httptest.NewRecorder()
	handler.GetRejections(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp EventsResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Events[0].Code != "MAX_EXPOSURE" {
		t.Errorf("resp = %+v", resp)
	}
	if source.lastLimit != 10 {
		t.Errorf("лимит = %d", source.lastLimit)
	}
}

func TestEventsHandler_GetOrderEvents(t *testing.T) {
	source := &mockEventSource{
		byOrder: map[string][]repository.OrderEvent{
			"o1": {{ID: 1, EventType: repository.EventAccepted, OrderID: "o1"}},
		},
	}
	handler := NewEventsHandler(source)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/o1", nil)
	req = mux.SetURLVars(req, map[string]string{"order_id": "o1"})
	rec := httptest.NewRecorder()
	handler.GetOrderEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestEventsHandler_GetOrderEvents_NotFound(t *testing.T) {
	handler := NewEventsHandler(&mockEventSource{byOrder: map[string][]repository.OrderEvent{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/missing", nil)
	req = mux.SetURLVars(req, map[string]string{"order_id": "missing"})
	rec := httptest.NewRecorder()
	handler.GetOrderEvents(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, ожидался 404", rec.Code)
	}
}

func TestEventsHandler_SourceError(t *testing.T) {
	handler := NewEventsHandler(&mockEventSource{err: errors.New("db down")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	rec := httptest.NewRecorder()
	handler.GetEvents(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, ожидался 500", rec.Code)
	}
}
