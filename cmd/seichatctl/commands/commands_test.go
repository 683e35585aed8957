package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SeiChat-Agent/sdk/go/seichat"
)

func runCLI(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	baseURL = ""
	token = ""
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--api", srv.URL}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestSendJoinsArgs(t *testing.T) {
	var got seichat.Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(seichat.Reply{Reply: "💰 SEI Price: $0.42"})
	}))
	defer srv.Close()

	out, err := runCLI(t, srv, "send", "--sender", "u1", "price", "of", "sei")
	require.NoError(t, err)
	assert.Equal(t, "price of sei", got.Text)
	assert.Equal(t, "u1", got.SenderID)
	assert.Equal(t, "💰 SEI Price: $0.42\n", out)
}

func TestHistoryTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode([]seichat.Outcome{{UserID: "u1", Command: "balance", Stage: "llm"}})
	}))
	defer srv.Close()

	out, err := runCLI(t, srv, "history", "--limit", "3")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "TIME"))
	assert.Contains(t, out, "balance")
}

func TestHealthDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"rpc down"}`))
	}))
	defer srv.Close()

	_, err := runCLI(t, srv, "health")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc down")
}

func TestSendRequiresText(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err := runCLI(t, srv, "send")
	require.Error(t, err)
}
