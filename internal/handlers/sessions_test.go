package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/smartinprabhu/newgpt/internal/session"
	"github.com/smartinprabhu/newgpt/internal/storage"
	"github.com/smartinprabhu/newgpt/pkg/types"
)

func seedSession(t *testing.T) (*session.Manager, string) {
	t.Helper()
	store := storage.NewMemoryStore()
	sessions := session.NewManager(store)
	sessionID := session.NewSessionID()
	req := &types.ExecuteRequest{
		Prompt:       "analyze call trends",
		BusinessUnit: types.BusinessUnit{Code: "SUP", DisplayName: "Support"},
	}
	require.True(t, sessions.Create(context.Background(), sessionID, req, types.StepDataAnalysis))
	return sessions, sessionID
}

func TestGetSessionHandler_ReturnsContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sessions, sessionID := seedSession(t)
	router := gin.New()
	router.GET("/api/session/:session_id", GetSessionHandler(sessions))

	req := httptest.NewRequest(http.MethodGet, "/api/session/"+sessionID, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)

	var sess types.SessionContext
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &sess))
	require.Equal(t, sessionID, sess.SessionID)
	require.Equal(t, types.StepDataAnalysis, sess.AgentType)
}

func TestGetSessionHandler_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sessions, _ := seedSession(t)
	router := gin.New()
	router.GET("/api/session/:session_id", GetSessionHandler(sessions))

	req := httptest.NewRequest(http.MethodGet, "/api/session/sess_unknown", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDeleteSessionHandler_RemovesSession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sessions, sessionID := seedSession(t)
	router := gin.New()
	router.DELETE("/api/session/:session_id", DeleteSessionHandler(sessions))

	req := httptest.NewRequest(http.MethodDelete, "/api/session/"+sessionID, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)

	_, err := sessions.Get(context.Background(), sessionID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
