package auth

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(buf *bytes.Buffer, tokens map[string]string) *Service {
	return NewService(tokens, WithAuditLogger(slog.New(slog.NewTextHandler(buf, nil))))
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(&bytes.Buffer{}, map[string]string{"ops": "s3cret", "ci": "other", "blank": " "})
	require.True(t, svc.Enabled())

	subject, err := svc.Authenticate("Bearer s3cret")
	require.NoError(t, err)
	assert.Equal(t, "ops", subject.Name)

	subject, err = svc.Authenticate("bearer other")
	require.NoError(t, err)
	assert.Equal(t, "ci", subject.Name)

	_, err = svc.Authenticate("")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = svc.Authenticate("Basic s3cret")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.Authenticate("Bearer nope")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.Authenticate("Bearer  ")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	var audit bytes.Buffer
	svc := newTestService(&audit, map[string]string{"ops": "s3cret"})

	var seen *Subject
	h := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
	assert.Contains(t, audit.String(), "access_denied")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "ops", seen.Name)
	assert.Contains(t, audit.String(), "caller=ops")
}

func TestMiddlewareDisabled(t *testing.T) {
	svc := NewService(nil)
	assert.False(t, svc.Enabled())

	called := false
	h := svc.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)

	var nilSvc *Service
	assert.False(t, nilSvc.Enabled())
}
