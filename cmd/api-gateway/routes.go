package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/rushibamb/dig-village-sub001/api/swagger"
	"github.com/rushibamb/dig-village-sub001/internal/handler"
	"github.com/rushibamb/dig-village-sub001/internal/middleware"
	"github.com/rushibamb/dig-village-sub001/pkg/config"
	"github.com/rushibamb/dig-village-sub001/pkg/logger"
	corsmiddleware "github.com/rushibamb/dig-village-sub001/pkg/middleware/cors"
	reqidmiddleware "github.com/rushibamb/dig-village-sub001/pkg/middleware/requestid"
)

type routes struct {
	auth       middleware.TokenValidator
	metrics    middleware.RequestObserver
	audit      middleware.AuditWriter
	villagers  *handler.VillagerHandler
	grievances *handler.GrievanceHandler
	workers    *handler.WorkerHandler
	uploads    *handler.UploadHandler
	ops        *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, h routes) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(h.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.ops.Health)
	r.GET("/ready", h.ops.Ready)
	r.GET("/metrics", h.ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/villagers", h.villagers.Submit)
	api.POST("/villagers/edit/otp", h.villagers.RequestOTP)
	api.POST("/villagers/edit/verify", h.villagers.VerifyOTP)
	api.PUT("/villagers/edit/:id", h.villagers.SubmitEdit)

	api.POST("/uploads", h.uploads.Upload)
	api.GET("/uploads/files", h.uploads.Serve)

	citizen := api.Group("/grievances", middleware.JWT(h.auth))
	citizen.POST("", h.grievances.Submit)
	citizen.GET("/mine", h.grievances.Mine)

	admin := api.Group("/admin", middleware.JWT(h.auth), middleware.RequireAdmin())

	villagers := admin.Group("/villagers")
	villagers.GET("", h.villagers.List)
	villagers.POST("", h.villagers.AdminCreate)
	villagers.GET("/:id", middleware.Audit(h.audit, "VILLAGER_VIEW", "villager"), h.villagers.Get)
	villagers.PUT("/:id", h.villagers.AdminUpdate)
	villagers.POST("/:id/review", h.villagers.Review)

	grievances := admin.Group("/grievances")
	grievances.GET("", h.grievances.List)
	grievances.GET("/:id", h.grievances.Get)
	grievances.PATCH("/:id/admin-status", h.grievances.SetAdminStatus)
	grievances.PATCH("/:id/assign", h.grievances.AssignWorker)
	grievances.PATCH("/:id/progress", h.grievances.SetProgress)
	grievances.POST("/:id/resolve", h.grievances.Resolve)

	workers := admin.Group("/workers")
	workers.GET("", h.workers.List)
	workers.POST("", h.workers.Create)
	workers.GET("/:id", h.workers.Get)
	workers.PUT("/:id", h.workers.Update)
	workers.DELETE("/:id", h.workers.Delete)

	return r
}
