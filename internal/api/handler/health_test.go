package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLive(t *testing.T) {
	h := NewHealthHandler(nil, "admin-key", discardLogger())

	rec := httptest.NewRecorder()
	h.Live(rec, httptest.NewRequest("GET", "/health", nil))

	checkStatus(t, rec, http.StatusOK)
	var resp map[string]string
	decodeBody(t, rec, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q", resp["status"])
	}
}

func TestOpenReservations_RequiresAdminKey(t *testing.T) {
	h := NewHealthHandler(nil, "admin-key", discardLogger())

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"no key", "", http.StatusUnauthorized},
		{"wrong key", "guess", http.StatusUnauthorized},
		{"right key", "admin-key", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/admin/reservations", nil)
			if tt.key != "" {
				req.Header.Set("X-Admin-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			h.OpenReservations(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestOpenReservations_DisabledWithoutKey(t *testing.T) {
	h := NewHealthHandler(nil, "", discardLogger())

	for _, key := range []string{"", "anything"} {
		req := httptest.NewRequest("GET", "/api/admin/reservations", nil)
		if key != "" {
			req.Header.Set("X-Admin-Key", key)
		}
		rec := httptest.NewRecorder()
		h.OpenReservations(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("key %q: status = %d, want 404 when no admin key is configured", key, rec.Code)
		}
	}
}

func TestOpenReservations_NilJournal(t *testing.T) {
	h := NewHealthHandler(nil, "admin-key", discardLogger())

	req := httptest.NewRequest("GET", "/api/admin/reservations", nil)
	req.Header.Set("X-Admin-Key", "admin-key")
	rec := httptest.NewRecorder()

	h.OpenReservations(rec, req)

	checkStatus(t, rec, http.StatusOK)
	var resp map[string]interface{}
	decodeBody(t, rec, &resp)
	if list, ok := resp["reservations"].([]interface{}); !ok || len(list) != 0 {
		t.Errorf("reservations = %v, want empty list", resp["reservations"])
	}
}
