package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/mastery/internal/app"
	"github.com/abhisek/mastery/internal/apperr"
	"github.com/abhisek/mastery/internal/catalog"
	"github.com/abhisek/mastery/internal/clock"
	"github.com/abhisek/mastery/internal/config"
	"github.com/abhisek/mastery/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	st, err := store.Open(store.Options{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "mastery.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	var questions []catalog.Question
	for i := 0; i < 3; i++ {
		questions = append(questions, catalog.Question{ID: fmt.Sprintf("add-%d", i), CompetencyID: "add"})
	}
	cat, err := catalog.New(
		[]catalog.Competency{{ID: "add", Code: "ADD", Name: "Addition"}},
		[]catalog.Topic{{ID: "arith", Name: "Arithmetic", Subtopics: []catalog.Subtopic{
			{ID: "adding", Name: "Adding", CompetencyIDs: []string{"add"}},
		}}},
		questions,
	)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Session.DefaultMaxQuestions = 2
	engine, err := app.New(app.Options{
		Config:  cfg,
		Store:   st,
		Catalog: cat,
		Clock:   clock.NewFixed(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	return NewRouter(RouterConfig{Handler: NewHandler(engine, cfg.Session.DefaultMaxQuestions)})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindInvalidLevel, http.StatusBadRequest},
		{apperr.KindInvalidInput, http.StatusBadRequest},
		{apperr.KindSessionAlreadyActive, http.StatusConflict},
		{apperr.KindInsufficientContent, http.StatusUnprocessableEntity},
		{apperr.KindStorageConflict, http.StatusConflict},
		{apperr.KindStorageUnavailable, http.StatusServiceUnavailable},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.kind), "kind %q", tt.kind)
	}
}

func TestHealthCheck(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/healthcheck", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestListCompetencies(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/catalog/competencies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"ADD"`)
}

func TestAnswersAndStatistics(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/users/u1/answers", map[string]any{
		"competency_id": "add", "topic_id": "arith", "subtopic_id": "adding", "is_correct": true,
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/users/u1/answers", map[string]any{
		"competency_id": "nope", "topic_id": "arith", "subtopic_id": "adding",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)

	rec = do(t, h, http.MethodGet, "/api/users/u1/statistics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		General struct {
			TotalQuestions  int     `json:"total_questions"`
			OverallAccuracy float64 `json:"overall_accuracy"`
		} `json:"general"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.General.TotalQuestions)
	assert.Equal(t, float64(100), body.General.OverallAccuracy)
}

func TestMasteryEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/users/u1/mastery/init", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"created":1}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/api/users/u1/mastery/add", map[string]any{"level": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/users/u1/mastery/add", map[string]any{"level": 42})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_level", decodeError(t, rec).Code)

	rec = do(t, h, http.MethodPut, "/api/users/u1/mastery/add", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Code)

	rec = do(t, h, http.MethodGet, "/api/users/u1/mastery", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"level":2`)

	rec = do(t, h, http.MethodPut, "/api/users/u1/mastery/ADD", map[string]any{"level": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"competency_id":"add","level":3}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/api/users/u1/mastery/NOPE", map[string]any{"level": 1})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreakEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/users/u1/streak", map[string]any{"questions": 20})
	require.Equal(t, http.StatusOK, rec.Code)
	var reg struct {
		CurrentStreak      int  `json:"current_streak"`
		CompletedDailyGoal bool `json:"completed_daily_goal"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.True(t, reg.CompletedDailyGoal)
	assert.Equal(t, 1, reg.CurrentStreak)

	rec = do(t, h, http.MethodPost, "/api/users/u1/streak", map[string]any{"questions": -3})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decodeError(t, rec).Code)

	rec = do(t, h, http.MethodGet, "/api/users/u1/streak", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"current":1`)

	rec = do(t, h, http.MethodGet, "/api/users/u1/streak/history?from=2026-03-01&to=2026-03-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"date":"2026-03-10"`)

	rec = do(t, h, http.MethodGet, "/api/users/u1/streak/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"date":"2026-03-10"`)
}

func TestSessionEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/users/u1/sessions/active", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/users/u1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var started struct {
		Session struct {
			ID             string `json:"id"`
			TotalQuestions int    `json:"total_questions"`
		} `json:"session"`
		Resumed bool `json:"resumed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	assert.Equal(t, 2, started.Session.TotalQuestions)
	id := started.Session.ID

	rec = do(t, h, http.MethodPost, "/api/users/u1/sessions", map[string]any{"mode": "resume"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"resumed":true`)

	rec = do(t, h, http.MethodPost, "/api/users/u1/sessions", map[string]any{"mode": "fail"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "session_already_active", decodeError(t, rec).Code)

	// Another user cannot touch the session.
	rec = do(t, h, http.MethodPost, "/api/users/u2/sessions/"+id+"/answers", map[string]any{"is_correct": true})
	require.Equal(t, http.StatusNotFound, rec.Code)

	for i := 0; i < 2; i++ {
		rec = do(t, h, http.MethodPost, "/api/users/u1/sessions/"+id+"/answers", map[string]any{"is_correct": true})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)
	assert.Contains(t, rec.Body.String(), `"questions_completed":2`)

	rec = do(t, h, http.MethodGet, "/api/users/u1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/users/u1/sessions/"+id+"/abandon", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionInsufficientContent(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/users/u1/sessions/compose", map[string]any{"max_questions": 10})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "insufficient_content", e.Code)
	assert.NotNil(t, e.Details)

	rec = do(t, h, http.MethodPost, "/api/users/u1/sessions/compose", map[string]any{"max_questions": 3})
	require.Equal(t, http.StatusOK, rec.Code)
}
