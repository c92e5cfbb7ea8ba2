package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartinprabhu/newgpt/internal/config"
	"github.com/smartinprabhu/newgpt/internal/orchestrator"
	"github.com/smartinprabhu/newgpt/internal/storage"
	"github.com/smartinprabhu/newgpt/pkg/types"
)

type echoProvider struct{}

func (echoProvider) Invoke(_ context.Context, step types.StepName, _ string) (string, error) {
	return "ok from " + string(step), nil
}

func (echoProvider) Embed(context.Context, string) ([]float64, error) {
	return []float64{1, 0, 0}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Server.Mode = "debug"

	store := storage.NewMemoryStore()
	orch := orchestrator.New(cfg.Orchestration, store, echoProvider{}, nil)
	t.Cleanup(orch.Close)

	return New(cfg, store, orch, "test")
}

func TestRootBanner(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	s.Engine().ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "newgpt-agent-backend")
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	s.Engine().ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "healthy")
}

func TestUnknownTaskStatusIs404(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/agent/status/task_missing", nil)
	resp := httptest.NewRecorder()
	s.Engine().ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/agent/execute", nil)
	resp := httptest.NewRecorder()
	s.Engine().ServeHTTP(resp, req)

	require.Equal(t, http.StatusNoContent, resp.Code)
}
