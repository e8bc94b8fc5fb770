package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/controllers"
	"github.com/cppla/blogapi/middleware"
	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg *config.AppConfig, svc *services.Service, cache *utils.Cache, log *zap.Logger) *gin.Engine {
	switch strings.ToLower(cfg.App.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())

	// Access log goes to its own rolling file when configured.
	accessLog := log
	if cfg.Log.AccessPath != "" {
		gl, err := utils.NewRollingFileLogger(cfg.Log.AccessPath, cfg.Log.Level, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays, cfg.Log.Compress)
		if err != nil {
			log.Warn("access log file unavailable, using application logger", zap.Error(err))
		} else {
			accessLog = gl
		}
	}
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(log, false))
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	origins := cfg.App.AllowedOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = origins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRequired := middleware.AuthRequired(svc)
	authOptional := middleware.AuthOptional(svc)

	authController := controllers.NewAuthController(svc, log)
	userController := controllers.NewUserController(svc, log)
	postController := controllers.NewPostController(svc, cache, log)
	commentController := controllers.NewCommentController(svc, log)
	taxonomyController := controllers.NewTaxonomyController(svc, cache, log)
	statsController := controllers.NewStatsController(svc, cfg.App, log)

	api := r.Group("/api/v1")
	api.GET("/", statsController.Info)
	api.GET("/health", statsController.Health)
	api.GET("/stats", statsController.Stats)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", authRequired, authController.Logout)

	me := api.Group("/me", authRequired)
	me.GET("", userController.Me)
	me.PUT("", userController.UpdateMe)
	me.DELETE("", userController.DeleteMe)
	me.GET("/posts", userController.MyPosts)
	me.GET("/comments", userController.MyComments)
	me.GET("/likes", userController.MyLikes)

	api.GET("/users/:id", userController.GetUser)
	api.DELETE("/users/:id", authRequired, userController.DeleteUser)

	posts := api.Group("/posts")
	posts.GET("", authOptional, postController.ListPosts)
	posts.POST("", authRequired, postController.CreatePost)
	posts.GET("/:id", authOptional, postController.GetPost)
	posts.GET("/:id/with-like", authOptional, postController.GetPostWithLike)
	posts.PUT("/:id", authRequired, postController.UpdatePost)
	posts.DELETE("/:id", authRequired, postController.DeletePost)
	posts.GET("/:id/stats", authOptional, postController.Stats)
	posts.GET("/:id/likes", authOptional, postController.LikesCount)
	posts.POST("/:id/like", authRequired, postController.Like)
	posts.DELETE("/:id/like", authRequired, postController.Unlike)
	posts.GET("/:id/comments", commentController.List)
	posts.POST("/:id/comments", authRequired, commentController.Create)
	posts.PUT("/:id/comments/:commentId", authRequired, commentController.Update)
	posts.DELETE("/:id/comments/:commentId", authRequired, commentController.Delete)

	api.GET("/tags", taxonomyController.ListTags)
	api.POST("/tags", authRequired, taxonomyController.CreateTag)
	api.GET("/tags/:id/posts", authOptional, taxonomyController.PostsByTag)

	api.GET("/status", taxonomyController.ListStatuses)
	api.POST("/status", authRequired, taxonomyController.CreateStatus)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
