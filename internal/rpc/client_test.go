package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/arealint/internal/model"
)

func init() {
	// Disable retry sleep in all tests for fast execution
	sleepFunc = func(d time.Duration) {}
}

func testConfig(baseURL, token string) model.APIConfig {
	return model.APIConfig{
		BaseURL:      baseURL,
		Token:        token,
		Timeout:      5 * time.Second,
		RequestsPerS: 1000,
		Burst:        1000,
	}
}

func rpcResult(t *testing.T, w http.ResponseWriter, result any) {
	t.Helper()
	data, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "result": result, "id": 1})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func TestClient_GetArea(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rpc" {
			t.Errorf("Expected /rpc path, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if req.Method != "get_area" {
			t.Errorf("Expected get_area method, got %s", req.Method)
		}
		params := req.Params.(map[string]any)
		if params["id"] != "lisbon" {
			t.Errorf("Expected id lisbon, got %v", params["id"])
		}

		rpcResult(t, w, model.AreaRecord{
			ID:   "lisbon",
			Tags: map[string]any{"type": "community", "name": "Lisbon"},
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL, ""))
	area, err := client.GetArea(context.Background(), "lisbon")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if area.ID != "lisbon" || area.Tags["name"] != "Lisbon" {
		t.Errorf("Unexpected area: %+v", area)
	}
}

func TestClient_BearerToken(t *testing.T) {
	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		rpcResult(t, w, model.AreaRecord{ID: "x", Tags: map[string]any{}})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL, "secret-token"))
	if _, err := client.GetArea(context.Background(), "x"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if gotAuth.Load() != "Bearer secret-token" {
		t.Errorf("Expected bearer credential, got %v", gotAuth.Load())
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		rpcResult(t, w, model.AreaRecord{ID: "x", Tags: map[string]any{}})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL, ""))
	area, err := client.GetArea(context.Background(), "x")
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if area.ID != "x" {
		t.Errorf("Unexpected area: %+v", area)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL, ""))
	if _, err := client.GetArea(context.Background(), "x"); err == nil {
		t.Fatal("Expected an error after exhausting retries")
	}
	if calls != maxRetries {
		t.Errorf("Expected %d attempts, got %d", maxRetries, calls)
	}
}

func TestClient_RPCErrorIsFinal(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32602,"message":"no such area"},"id":1}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL, ""))
	_, err := client.GetArea(context.Background(), "nope")
	if err == nil {
		t.Fatal("Expected an RPC error")
	}

	var rpcErr *Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("Expected *Error, got %T: %v", err, err)
	}
	if rpcErr.Code != -32602 || rpcErr.Message != "no such area" {
		t.Errorf("Unexpected RPC error: %+v", rpcErr)
	}
	if calls != 1 {
		t.Errorf("Expected no retries on an RPC error, got %d calls", calls)
	}
}

func TestClient_ClientErrorIsFinal(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL, ""))
	if _, err := client.GetArea(context.Background(), "x"); err == nil {
		t.Fatal("Expected an error for 401")
	}
	if calls != 1 {
		t.Errorf("Expected no retries on a client error, got %d calls", calls)
	}
}

func TestClient_ListAreasPagination(t *testing.T) {
	// First page is full, so the client must request a second one.
	page1 := make([]model.AreaRecord, listPageSize)
	for i := range page1 {
		page1[i] = model.AreaRecord{
			ID:        string(rune('a' + i%26)),
			Tags:      map[string]any{},
			UpdatedAt: "2024-01-01T00:00:00Z",
		}
	}
	page2 := []model.AreaRecord{
		{ID: "final", Tags: map[string]any{}, UpdatedAt: "2024-02-01T00:00:00Z"},
	}

	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if req.Method != "get_areas" {
			t.Errorf("Expected get_areas method, got %s", req.Method)
		}
		params := req.Params.(map[string]any)

		if atomic.AddInt64(&calls, 1) == 1 {
			if _, ok := params["updated_since"]; ok {
				t.Error("Expected no cursor on the first page")
			}
			rpcResult(t, w, page1)
			return
		}
		if params["updated_since"] != "2024-01-01T00:00:00Z" {
			t.Errorf("Expected the last updated_at as cursor, got %v", params["updated_since"])
		}
		rpcResult(t, w, page2)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL, ""))
	areas, err := client.ListAreas(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(areas) != listPageSize+1 {
		t.Errorf("Expected %d areas, got %d", listPageSize+1, len(areas))
	}
	if calls != 2 {
		t.Errorf("Expected 2 pages fetched, got %d", calls)
	}
}

func TestClient_SetAreaIcon(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if req.Method != "set_area_icon" {
			t.Errorf("Expected set_area_icon method, got %s", req.Method)
		}
		params := req.Params.(map[string]any)
		if params["id"] != "lisbon" || params["icon_base64"] != "aWNvbg==" || params["icon_ext"] != "png" {
			t.Errorf("Unexpected params: %v", params)
		}
		rpcResult(t, w, true)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL, ""))
	if err := client.SetAreaIcon(context.Background(), "lisbon", "aWNvbg==", "png"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

func TestClient_SetAreaTag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if req.Method != "set_area_tag" {
			t.Errorf("Expected set_area_tag method, got %s", req.Method)
		}
		params := req.Params.(map[string]any)
		if params["id"] != "lisbon" || params["name"] != "verified:date" || params["value"] != "2024-06-01" {
			t.Errorf("Unexpected params: %v", params)
		}
		rpcResult(t, w, true)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL, ""))
	if err := client.SetAreaTag(context.Background(), "lisbon", "verified:date", "2024-06-01"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}
