package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appquota "github.com/nutrifit/backend/internal/application/quota"
	domain "github.com/nutrifit/backend/internal/domain/quota"
	infraquota "github.com/nutrifit/backend/internal/infrastructure/quota"
	"github.com/nutrifit/backend/internal/interfaces/http/middleware"
	"github.com/nutrifit/backend/internal/interfaces/http/router"
)

func newQuotaTestRouter(t *testing.T) (*gin.Engine, uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	adviceType, err := domain.NewQuotaType("ai_advice", 3, domain.ResetPeriodWeekly)
	require.NoError(t, err)
	registry, err := domain.NewRegistry(adviceType)
	require.NoError(t, err)

	counters := infraquota.NewInMemoryCounterStore()
	t.Cleanup(func() { _ = counters.Close() })

	service := appquota.NewService(registry, counters)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Identity(middleware.IdentityConfig{AllowDevHeader: true}))

	router.NewRouter(engine).
		Register(NewQuotaHandler(service, nil)).
		Setup()

	return engine, uuid.New()
}

func doQuotaRequest(engine *gin.Engine, method, path string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID.String())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestQuotaHandler_ListUsages(t *testing.T) {
	engine, userID := newQuotaTestRouter(t)

	w := doQuotaRequest(engine, http.MethodGet, "/api/v1/quotas", userID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    []struct {
			Type      string `json:"type"`
			Limit     int64  `json:"limit"`
			Remaining int64  `json:"remaining"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "ai_advice", resp.Data[0].Type)
	assert.Equal(t, int64(3), resp.Data[0].Remaining)
}

func TestQuotaHandler_ConsumeUntilExhausted(t *testing.T) {
	engine, userID := newQuotaTestRouter(t)

	for i := 0; i < 3; i++ {
		w := doQuotaRequest(engine, http.MethodPost, "/api/v1/quotas/ai_advice/consume", userID, nil)
		require.Equal(t, http.StatusOK, w.Code, "consume %d should succeed", i+1)
	}

	w := doQuotaRequest(engine, http.MethodPost, "/api/v1/quotas/ai_advice/consume", userID, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Details struct {
				Remaining int64  `json:"remaining"`
				ResetsAt  string `json:"resets_at"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "ERR_QUOTA_EXCEEDED", resp.Error.Code)
	assert.Zero(t, resp.Error.Details.Remaining)
	assert.NotEmpty(t, resp.Error.Details.ResetsAt)
}

func TestQuotaHandler_ConsumeExplicitAmount(t *testing.T) {
	engine, userID := newQuotaTestRouter(t)

	w := doQuotaRequest(engine, http.MethodPost, "/api/v1/quotas/ai_advice/consume", userID, gin.H{"amount": 2})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Used      int64 `json:"used"`
			Remaining int64 `json:"remaining"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Data.Used)
	assert.Equal(t, int64(1), resp.Data.Remaining)
}

func TestQuotaHandler_UnknownType(t *testing.T) {
	engine, userID := newQuotaTestRouter(t)

	w := doQuotaRequest(engine, http.MethodGet, "/api/v1/quotas/pdf_export", userID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuotaHandler_ResetClearsUsage(t *testing.T) {
	engine, userID := newQuotaTestRouter(t)

	for i := 0; i < 3; i++ {
		doQuotaRequest(engine, http.MethodPost, "/api/v1/quotas/ai_advice/consume", userID, nil)
	}

	w := doQuotaRequest(engine, http.MethodDelete, "/api/v1/quotas/ai_advice", userID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doQuotaRequest(engine, http.MethodGet, "/api/v1/quotas/ai_advice", userID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Used int64 `json:"used"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Data.Used)
}

func TestQuotaHandler_RequiresIdentity(t *testing.T) {
	engine, _ := newQuotaTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotas", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
