// Package api exposes the engine over HTTP with gin.
package api

import (
	"github.com/gin-gonic/gin"
)

// RouterConfig holds the dependencies of NewRouter.
type RouterConfig struct {
	Handler *Handler
	// Middleware runs before every route, after recovery and logging.
	Middleware []gin.HandlerFunc
}

// NewRouter builds the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())
	router.Use(cfg.Middleware...)

	h := cfg.Handler
	router.GET("/healthcheck", h.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/catalog/competencies", h.ListCompetencies)
	}

	users := api.Group("/users/:userID")
	{
		users.POST("/answers", h.RecordAnswer)
		users.GET("/statistics", h.UserStatistics)

		users.GET("/mastery", h.MasteryRecords)
		users.POST("/mastery/init", h.EnsureInitialized)
		users.PUT("/mastery/:competencyID", h.SetLevel)

		users.POST("/streak", h.RegisterDailyStudy)
		users.GET("/streak", h.StreakSummary)
		users.GET("/streak/history", h.StreakHistory)

		users.POST("/sessions", h.StartSession)
		users.POST("/sessions/compose", h.ComposeSession)
		users.GET("/sessions/active", h.ActiveSession)
		users.GET("/sessions/:sessionID", h.GetSession)
		users.POST("/sessions/:sessionID/answers", h.SubmitSessionAnswer)
		users.POST("/sessions/:sessionID/complete", h.CompleteSession)
		users.POST("/sessions/:sessionID/abandon", h.AbandonSession)
	}

	return router
}
