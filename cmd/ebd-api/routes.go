package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/ebd-attendance-api/internal/handler"
	"github.com/noah-isme/ebd-attendance-api/internal/middleware"
	"github.com/noah-isme/ebd-attendance-api/internal/service"
	"github.com/noah-isme/ebd-attendance-api/pkg/config"
	"github.com/noah-isme/ebd-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ebd-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ebd-attendance-api/pkg/middleware/requestid"
)

type handlers struct {
	classes    *handler.ClassHandler
	students   *handler.StudentHandler
	attendance *handler.AttendanceHandler
	rankings   *handler.RankingHandler
	ops        *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, h handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.ops.Health)
	r.GET("/ready", h.ops.Ready)
	r.GET("/metrics", h.ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	classes := api.Group("/classes")
	classes.GET("", h.classes.List)
	classes.POST("", h.classes.Create)

	students := api.Group("/students")
	students.GET("", h.students.ListByClass)
	students.POST("", h.students.Create)
	students.POST("/import", h.students.Import)

	attendance := api.Group("/attendance")
	attendance.POST("", h.attendance.RecordPresence)
	attendance.POST("/class", h.attendance.RecordClassPresence)
	attendance.GET("/count", h.attendance.Count)
	attendance.GET("/roster", h.attendance.Roster)

	rankings := api.Group("/rankings")
	rankings.GET("", h.rankings.Get)
	rankings.GET("/export", h.rankings.Export)

	return r
}
