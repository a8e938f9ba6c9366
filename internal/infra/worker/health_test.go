package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func getHealth(t *testing.T, h http.Handler, path string) (int, healthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, body
}

func TestHealthServer_Liveness(t *testing.T) {
	server := NewHealthServer(":0", discardLogger())

	code, body := getHealth(t, server.Handler(), "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}

func TestHealthServer_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		checks     map[string]ReadinessCheck
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "not ready by default",
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not ready",
		},
		{
			name:       "ready without checks",
			ready:      true,
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name:  "ready with passing checks",
			ready: true,
			checks: map[string]ReadinessCheck{
				"providers": func() error { return nil },
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name:  "failing check degrades readiness",
			ready: true,
			checks: map[string]ReadinessCheck{
				"providers": func() error { return errors.New("all circuit breakers open") },
				"scheduler": func() error { return nil },
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
			wantChecks: map[string]string{"providers": "all circuit breakers open"},
		},
		{
			name: "checks ignored until ready",
			checks: map[string]ReadinessCheck{
				"providers": func() error { return nil },
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewHealthServer(":0", discardLogger())
			for name, check := range tt.checks {
				server.AddCheck(name, check)
			}
			server.SetReady(tt.ready)

			code, body := getHealth(t, server.Handler(), "/health/ready")
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantChecks, body.Checks)
		})
	}
}

func TestHealthServer_ReadyToggle(t *testing.T) {
	server := NewHealthServer(":0", discardLogger())

	server.SetReady(true)
	code, _ := getHealth(t, server.Handler(), "/health/ready")
	assert.Equal(t, http.StatusOK, code)

	server.SetReady(false)
	code, _ = getHealth(t, server.Handler(), "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestHealthServer_StartAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	server := NewHealthServer(addr, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(6 * time.Second):
		t.Fatal("health server did not shut down")
	}
}
