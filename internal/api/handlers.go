package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/abhisek/mastery/internal/app"
	"github.com/abhisek/mastery/internal/apperr"
	"github.com/abhisek/mastery/internal/catalog"
	"github.com/abhisek/mastery/internal/mastery"
	"github.com/abhisek/mastery/internal/session"
	"github.com/abhisek/mastery/internal/stats"
	"github.com/abhisek/mastery/internal/streak"
	"github.com/gin-gonic/gin"
)

// Engine is the set of core operations the HTTP adapter exposes.
type Engine interface {
	Ping(ctx context.Context) error
	Catalog() *catalog.Catalog

	RecordAnswer(ctx context.Context, ev stats.AnswerEvent) error
	UserStatistics(ctx context.Context, userID string) (*stats.UserStatistics, error)

	EnsureInitialized(ctx context.Context, userID string) (int, error)
	SetLevel(ctx context.Context, userID, competencyID string, level int) error
	ResolveCompetency(ref string) string
	MasteryRecords(ctx context.Context, userID string) ([]mastery.Record, error)

	RegisterDailyStudy(ctx context.Context, userID string, questions int, day string) (*streak.Registration, error)
	StreakSummary(ctx context.Context, userID string) (*streak.Summary, error)
	StreakHistory(ctx context.Context, userID, from, to string) ([]streak.Entry, error)

	ComposeSession(ctx context.Context, userID string, maxQuestions int) (*session.Plan, error)
	StartSession(ctx context.Context, userID string, maxQuestions int, mode session.StartMode) (*session.StartResult, error)
	ActiveSession(ctx context.Context, userID string) (*session.Session, error)
	GetSession(ctx context.Context, sessionID string) (*session.Session, error)
	SubmitSessionAnswer(ctx context.Context, sessionID string, ans app.SessionAnswer) (*app.SessionResult, error)
	CompleteSession(ctx context.Context, sessionID string) (*app.SessionResult, error)
	AbandonSession(ctx context.Context, sessionID string) (*session.Session, error)
}

// Handler serves the JSON API.
type Handler struct {
	engine              Engine
	defaultMaxQuestions int
}

// NewHandler creates a Handler. defaultMaxQuestions applies when a
// session request omits max_questions.
func NewHandler(engine Engine, defaultMaxQuestions int) *Handler {
	return &Handler{engine: engine, defaultMaxQuestions: defaultMaxQuestions}
}

// GET /healthcheck
func (h *Handler) HealthCheck(c *gin.Context) {
	if err := h.engine.Ping(c.Request.Context()); err != nil {
		RespondError(c, err)
		return
	}
	c.String(http.StatusOK, "ok")
}

// GET /api/catalog/competencies
func (h *Handler) ListCompetencies(c *gin.Context) {
	RespondOK(c, gin.H{"competencies": h.engine.Catalog().Competencies()})
}

type answerRequest struct {
	CompetencyID string `json:"competency_id"`
	TopicID      string `json:"topic_id"`
	SubtopicID   string `json:"subtopic_id"`
	IsCorrect    bool   `json:"is_correct"`
}

// POST /api/users/:userID/answers
func (h *Handler) RecordAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err)
		return
	}
	err := h.engine.RecordAnswer(c.Request.Context(), stats.AnswerEvent{
		UserID:       c.Param("userID"),
		CompetencyID: req.CompetencyID,
		TopicID:      req.TopicID,
		SubtopicID:   req.SubtopicID,
		IsCorrect:    req.IsCorrect,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/users/:userID/statistics
func (h *Handler) UserStatistics(c *gin.Context) {
	st, err := h.engine.UserStatistics(c.Request.Context(), c.Param("userID"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, st)
}

// POST /api/users/:userID/mastery/init
func (h *Handler) EnsureInitialized(c *gin.Context) {
	n, err := h.engine.EnsureInitialized(c.Request.Context(), c.Param("userID"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"created": n})
}

// GET /api/users/:userID/mastery
func (h *Handler) MasteryRecords(c *gin.Context) {
	recs, err := h.engine.MasteryRecords(c.Request.Context(), c.Param("userID"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"records": recs})
}

type setLevelRequest struct {
	Level *int `json:"level" binding:"required"`
}

// PUT /api/users/:userID/mastery/:competencyID
// The competency may be given by ID or code.
func (h *Handler) SetLevel(c *gin.Context) {
	var req setLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err)
		return
	}
	userID, compID := c.Param("userID"), h.engine.ResolveCompetency(c.Param("competencyID"))
	if err := h.engine.SetLevel(c.Request.Context(), userID, compID, *req.Level); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"competency_id": compID, "level": *req.Level})
}

type studyRequest struct {
	Questions int    `json:"questions"`
	Date      string `json:"date"`
}

// POST /api/users/:userID/streak
func (h *Handler) RegisterDailyStudy(c *gin.Context) {
	var req studyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err)
		return
	}
	reg, err := h.engine.RegisterDailyStudy(c.Request.Context(), c.Param("userID"), req.Questions, req.Date)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, reg)
}

// GET /api/users/:userID/streak
func (h *Handler) StreakSummary(c *gin.Context) {
	sum, err := h.engine.StreakSummary(c.Request.Context(), c.Param("userID"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, sum)
}

// GET /api/users/:userID/streak/history?from=&to=
func (h *Handler) StreakHistory(c *gin.Context) {
	entries, err := h.engine.StreakHistory(c.Request.Context(), c.Param("userID"), c.Query("from"), c.Query("to"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}

type sessionRequest struct {
	MaxQuestions int    `json:"max_questions"`
	Mode         string `json:"mode"`
}

func (h *Handler) bindSessionRequest(c *gin.Context) (sessionRequest, bool) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondBadRequest(c, err)
		return req, false
	}
	if req.MaxQuestions == 0 {
		req.MaxQuestions = h.defaultMaxQuestions
	}
	return req, true
}

// POST /api/users/:userID/sessions/compose
func (h *Handler) ComposeSession(c *gin.Context) {
	req, ok := h.bindSessionRequest(c)
	if !ok {
		return
	}
	plan, err := h.engine.ComposeSession(c.Request.Context(), c.Param("userID"), req.MaxQuestions)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, plan)
}

// POST /api/users/:userID/sessions
func (h *Handler) StartSession(c *gin.Context) {
	req, ok := h.bindSessionRequest(c)
	if !ok {
		return
	}
	mode, err := session.ParseStartMode(req.Mode)
	if err != nil {
		RespondError(c, err)
		return
	}
	res, err := h.engine.StartSession(c.Request.Context(), c.Param("userID"), req.MaxQuestions, mode)
	if err != nil {
		RespondError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

// GET /api/users/:userID/sessions/active
func (h *Handler) ActiveSession(c *gin.Context) {
	sess, err := h.engine.ActiveSession(c.Request.Context(), c.Param("userID"))
	if err != nil {
		RespondError(c, err)
		return
	}
	if sess == nil {
		c.Status(http.StatusNoContent)
		return
	}
	RespondOK(c, sess)
}

// POST /api/users/:userID/sessions/:sessionID/answers
func (h *Handler) SubmitSessionAnswer(c *gin.Context) {
	var req app.SessionAnswer
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err)
		return
	}
	if !h.ownsSession(c) {
		return
	}
	res, err := h.engine.SubmitSessionAnswer(c.Request.Context(), c.Param("sessionID"), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, res)
}

// POST /api/users/:userID/sessions/:sessionID/complete
func (h *Handler) CompleteSession(c *gin.Context) {
	if !h.ownsSession(c) {
		return
	}
	res, err := h.engine.CompleteSession(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, res)
}

// POST /api/users/:userID/sessions/:sessionID/abandon
func (h *Handler) AbandonSession(c *gin.Context) {
	if !h.ownsSession(c) {
		return
	}
	sess, err := h.engine.AbandonSession(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, sess)
}

// GET /api/users/:userID/sessions/:sessionID
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.loadOwnedSession(c)
	if !ok {
		return
	}
	RespondOK(c, sess)
}

// ownsSession aborts the request unless the path session belongs to the
// path user.
func (h *Handler) ownsSession(c *gin.Context) bool {
	_, ok := h.loadOwnedSession(c)
	return ok
}

func (h *Handler) loadOwnedSession(c *gin.Context) (*session.Session, bool) {
	sess, err := h.engine.GetSession(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		RespondError(c, err)
		return nil, false
	}
	if sess.UserID != c.Param("userID") {
		RespondError(c, apperr.New(apperr.KindNotFound, "api.session", "session %q not found", sess.ID))
		return nil, false
	}
	return sess, true
}
