package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/utils"
)

// StatsController exposes site-wide counters plus the info and health probes.
type StatsController struct {
	svc *services.Service
	app config.AppSection
	log *zap.Logger
}

func NewStatsController(svc *services.Service, app config.AppSection, log *zap.Logger) *StatsController {
	return &StatsController{svc: svc, app: app, log: log}
}

func (s *StatsController) Stats(ctx *gin.Context) {
	st, err := s.svc.Stats(ctx.Request.Context())
	if err != nil {
		fail(ctx, s.log, err)
		return
	}
	utils.Success(ctx, st)
}

func (s *StatsController) Info(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"name": s.app.Name, "version": s.app.Version})
}

// Health pings the database; a failing ping answers 503.
func (s *StatsController) Health(ctx *gin.Context) {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := s.svc.Store().Ping(ctx.Request.Context()); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		utils.Respond(ctx, http.StatusServiceUnavailable, 50301, "unhealthy", gin.H{"status": "unhealthy", "timestamp": now})
		return
	}
	utils.Success(ctx, gin.H{"status": "healthy", "timestamp": now})
}
