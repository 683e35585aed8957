package seichat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendPostsMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/messages" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		var msg Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Fatalf("unexpected body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Reply{Reply: "echo " + msg.Text, Command: "price"})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	reply, err := client.Send(context.Background(), Message{Text: "price of sei", SenderID: "42"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply.Reply != "echo price of sei" || reply.Command != "price" {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestHistoryEncodesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("unexpected authorization %q", got)
		}
		if r.URL.Path != "/api/v1/history" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("user_id"); got != "42" {
			t.Fatalf("unexpected user_id %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Fatalf("unexpected limit %q", got)
		}
		_ = json.NewEncoder(w).Encode([]Outcome{{ID: "a", UserID: "42", Command: "balance"}})
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, srv.Client(), WithToken("tok"))
	list, err := client.History(context.Background(), "42", 5)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(list) != 1 || list[0].Command != "balance" {
		t.Fatalf("unexpected history %+v", list)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"history disabled"}`))
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, srv.Client())
	_, err := client.History(context.Background(), "", 0)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable || apiErr.Message != "history disabled" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Health{Status: "ok", ChainID: "0x531"})
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL+"/", srv.Client())
	h, err := client.Health(context.Background())
	if err != nil || h.ChainID != "0x531" {
		t.Fatalf("unexpected health %+v err=%v", h, err)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("not a url", nil); err == nil {
		t.Fatalf("expected error for relative url")
	}
}
