package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributes(t *testing.T) {
	ctx := ContextWithSlog(context.Background())
	AddAttribute(ctx, "task.id", "01H")
	AddAttributes(ctx, map[string]any{"actor": map[string]any{"id": "u1"}})
	AddAttributes(ctx, map[string]any{"actor": map[string]any{"role": "admin"}})

	attrs := GetAttributes(ctx)
	assert.Equal(t, "01H", attrs["task.id"])
	assert.Equal(t, map[string]any{"id": "u1", "role": "admin"}, attrs["actor"])
	assert.Equal(t, "01H", GetAttribute[string](ctx, "task.id"))
	assert.Zero(t, GetAttribute[int](ctx, "task.id"))

	sentinel := errors.New("boom")
	AddError(ctx, sentinel)
	assert.Equal(t, sentinel, GetError(ctx))
}

func TestAttributes_NoBag(t *testing.T) {
	ctx := context.Background()
	AddAttribute(ctx, "k", "v")
	assert.Nil(t, GetAttributes(ctx))
	assert.Empty(t, GetStack(ctx))
}

func TestAttributesHandler_AddsRequestAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, false, slog.LevelInfo)

	ctx := ContextWithSlog(context.Background())
	AddAttribute(ctx, "task.id", "01H")
	logger.InfoContext(ctx, "task created")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "task created", rec["msg"])
	assert.Equal(t, "01H", rec["task.id"])
}

func TestTextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTextHandler(&buf, WithColor(false), WithLevel(slog.LevelDebug)))
	logger.With("component", "mailer").Warn("send failed", "method", "POST", ErrorAttributeKey, "smtp down")

	out := buf.String()
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "POST send failed smtp down")
	assert.Contains(t, out, "component=mailer")
}

func TestSlogChiMiddleware(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(NewLogger(&buf, false, slog.LevelInfo))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := SlogChiMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddAttribute(r.Context(), "actor.id", "u1")
		w.WriteHeader(http.StatusForbidden)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/tasks", nil))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "/api/tasks", rec["path"])
	assert.Equal(t, "u1", rec["actor.id"])
	assert.EqualValues(t, http.StatusForbidden, rec["status"])
}

func TestHTTPStatusToLevel(t *testing.T) {
	assert.Equal(t, LevelInfo, HTTPStatusToLevel(http.StatusCreated))
	assert.Equal(t, LevelWarn, HTTPStatusToLevel(http.StatusBadRequest))
	assert.Equal(t, LevelError, HTTPStatusToLevel(http.StatusInternalServerError))
}
