package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jaydheshiv/uyir-sub000/internal/config"
	"github.com/jaydheshiv/uyir-sub000/internal/handler"
	"github.com/jaydheshiv/uyir-sub000/internal/service"
	"github.com/jaydheshiv/uyir-sub000/internal/video"
	"github.com/jaydheshiv/uyir-sub000/pkg/logger"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// 初始化服务
	chatService := service.NewChatService(cfg)

	platformClient := video.NewPlatformClient(cfg.Platform)

	var retriever service.ContextRetriever
	if cfg.Knowledge.Enabled {
		retriever = service.NewHTTPKnowledgeClient(cfg.Knowledge)
	}

	videoService := service.NewVideoChatService(cfg, chatService.GetStorage(), platformClient, retriever)

	// 初始化处理器
	chatHandler := handler.NewChatHandler(chatService, videoService)

	// 创建路由
	router := setupRouter(cfg, chatHandler)

	// 创建HTTP服务器
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// 启动服务器
	go func() {
		logger.Infof("服务器启动在端口 %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待信号优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务器正在关闭...")

	// 先停轮询和动画计时器，再关HTTP服务
	videoService.Close()
	chatService.Stop()

	if err := server.Close(); err != nil {
		logger.Errorf("服务器关闭失败: %v", err)
	}
	logger.Info("服务器已关闭")
}

func setupRouter(cfg *config.Config, chatHandler *handler.ChatHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS配置
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	// API路由
	api := router.Group("/api")
	{
		chat := api.Group("/chat")
		{
			chat.POST("/session", chatHandler.CreateSession)
			chat.POST("/session/list", chatHandler.GetSessionList)
			chat.GET("/session/del/:session_id", chatHandler.DeleteSession)
			chat.GET("/session/:session_id", chatHandler.GetSession)
			chat.PUT("/session/:session_id", chatHandler.UpdateSessionTitle)
			chat.GET("/messages/:session_id", chatHandler.GetMessages)

			// AI视频回复
			chat.POST("/video", chatHandler.StartVideoChat)
			chat.GET("/events/:message_id", chatHandler.StreamEvents)
			chat.POST("/message/:message_id/playback-ready", chatHandler.PlaybackReady)
		}
	}

	return router
}
