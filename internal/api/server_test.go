package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"SeiChat-Agent/internal/bot"
	"SeiChat-Agent/internal/events"
	"SeiChat-Agent/internal/intent"
	"SeiChat-Agent/internal/web3"
)

type echoHandler struct {
	got intent.Message
}

func (e *echoHandler) Handle(_ context.Context, msg intent.Message) bot.Response {
	e.got = msg
	return bot.Response{Text: "echo: " + msg.Text, Stage: "pattern", Command: intent.CommandPrice}
}

type fakeProbe struct {
	err error
}

func (f fakeProbe) FetchChainSnapshot(context.Context) (web3.ChainSnapshot, error) {
	return web3.ChainSnapshot{ChainID: "0x531", BlockNumber: "0x10"}, f.err
}

func TestHandleMessages(t *testing.T) {
	h := &echoHandler{}
	srv := NewServer(":0", h).Handler()

	body := `{"text":"price of sei","sender_id":"42","chat_id":"c"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code: got %d want %d", rec.Code, http.StatusOK)
	}
	var got MessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Reply != "echo: price of sei" || got.Command != "price" {
		t.Fatalf("unexpected response: %+v", got)
	}
	if h.got.SenderID != "42" || h.got.ChatID != "c" {
		t.Fatalf("unexpected message forwarded: %+v", h.got)
	}
}

func TestHandleMessagesErrors(t *testing.T) {
	srv := NewServer(":0", &echoHandler{}).Handler()

	cases := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"invalid method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "{", http.StatusBadRequest},
		{"missing sender", http.MethodPost, `{"text":"hi","sender_id":"  "}`, http.StatusBadRequest},
		{"text too long", http.MethodPost, `{"sender_id":"1","text":"` + strings.Repeat("a", 4001) + `"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/v1/messages", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("unexpected status code: got %d want %d", rec.Code, tc.status)
			}
		})
	}
}

func TestValidationMessage(t *testing.T) {
	srv := NewServer(":0", &echoHandler{})
	cases := map[string]MessageRequest{
		"senderid 不能为空":       {Text: "hi"},
		"text 超出长度限制 4000": {SenderID: "1", Text: strings.Repeat("b", 4001)},
	}
	for want, req := range cases {
		err := srv.validate.Struct(req)
		if err == nil {
			t.Fatalf("expected validation error for %q", want)
		}
		if got := validationMessage(err); got != want {
			t.Fatalf("unexpected message: got %q want %q", got, want)
		}
	}
}

func TestHandleHistory(t *testing.T) {
	mem := events.NewMemorySink(10)
	_ = mem.Publish(context.Background(), events.NewCommandOutcome("42", "", "balance", false))
	_ = mem.Publish(context.Background(), events.NewCommandOutcome("7", "", "price", true))

	srv := NewServer(":0", &echoHandler{}, WithHistory(mem)).Handler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?user_id=42&limit=5", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", rec.Code)
	}
	var list []events.CommandOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 1 || list[0].Command != "balance" {
		t.Fatalf("unexpected history: %+v", list)
	}

	disabled := NewServer(":0", &echoHandler{}).Handler()
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without history, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv := NewServer(":0", nil, WithChainProbe("sei-testnet", fakeProbe{})).Handler()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var got HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Status != "ok" || got.ChainID != "0x531" || got.Chain != "sei-testnet" {
		t.Fatalf("unexpected health: %+v", got)
	}

	srv = NewServer(":0", nil, WithChainProbe("sei", fakeProbe{err: errors.New("rpc down")})).Handler()
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != "degraded" || got.Error != "rpc down" {
		t.Fatalf("unexpected degraded health: %+v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(":0", &echoHandler{}).Handler()
	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "seichat_http_requests_total") {
		t.Fatalf("metrics output missing http counter")
	}
}

func TestWithContextRejectsAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := withContext(ctx, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestAuthGuardsAPIRoutesOnly(t *testing.T) {
	guard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer ok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	srv := NewServer(":0", &echoHandler{}, WithAuth(guard)).Handler()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"text":"hi","sender_id":"1"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"text":"hi","sender_id":"1"}`))
	req.Header.Set("Authorization", "Bearer ok")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz should stay public, got %d", rec.Code)
	}
}
