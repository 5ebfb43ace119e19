package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/opsre/chatgate/internal/config"
	"github.com/opsre/chatgate/internal/gateway"
	"github.com/opsre/chatgate/internal/integration"
	"github.com/opsre/chatgate/internal/middleware"
	"github.com/opsre/chatgate/internal/model"
	"github.com/opsre/chatgate/internal/service"
	"github.com/opsre/chatgate/web"
)

// Response 统一响应结构
type Response = model.Response

// HTTPGinServer 基于 Gin 的 HTTP 服务器
type HTTPGinServer struct {
	config *config.Config
	engine *gin.Engine
	server *http.Server

	authHandler        *AuthHandler
	integrationHandler *IntegrationHandler
	webhookHandler     *WebhookHandler
	designHandler      *DesignHandler
}

// NewHTTPGinServer 创建基于 Gin 的 HTTP 服务器
func NewHTTPGinServer(cfg *config.Config, db *gorm.DB) *HTTPGinServer {
	// 设置 Gin 模式
	if cfg.Server.HTTP.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	store := service.NewIntegrationService(db)
	manager := integration.NewManager(store)
	gw := gateway.New(store)

	s := &HTTPGinServer{
		config:             cfg,
		engine:             engine,
		authHandler:        NewAuthHandler(db),
		integrationHandler: NewIntegrationHandler(manager),
		webhookHandler:     NewWebhookHandler(gw),
		designHandler:      NewDesignHandler(service.NewDesignService(db)),
	}

	// 注册中间件
	s.registerMiddlewares()

	// 注册路由
	s.registerRoutes()

	return s
}

// registerMiddlewares 注册中间件
func (s *HTTPGinServer) registerMiddlewares() {
	// 恢复中间件 - 从 panic 恢复
	s.engine.Use(gin.Recovery())

	// 自定义日志中间件
	s.engine.Use(s.loggingMiddleware())

	// CORS 中间件(挂件脚本跨域调用需要)
	s.engine.Use(s.corsMiddleware())
}

// loggingMiddleware 自定义日志中间件
func (s *HTTPGinServer) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		logx.Info("HTTP request, method %s, path %s, status %d, duration %s, remote_addr %s",
			method, path, status, duration, c.ClientIP())
	}
}

// corsMiddleware CORS 中间件
func (s *HTTPGinServer) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// registerRoutes 注册路由
func (s *HTTPGinServer) registerRoutes() {
	// API v1 路由组
	v1 := s.engine.Group("/api/v1")
	{
		// 健康检查
		v1.GET("/health", s.handleHealth)

		// 认证路由
		v1.POST("/auth/login", s.authHandler.Login)

		auth := v1.Group("/auth", middleware.JWTAuth())
		{
			auth.POST("/logout", s.authHandler.Logout)
			auth.GET("/userinfo", s.authHandler.GetUserInfo)
			auth.PUT("/password", s.authHandler.ChangePassword)
		}

		// 集成管理路由
		integrations := v1.Group("/integrations", middleware.JWTAuth())
		{
			integrations.POST("/:provider/connect", s.integrationHandler.Connect)
			integrations.POST("/:provider/test", s.integrationHandler.Test)
			integrations.DELETE("/:provider/disconnect", s.integrationHandler.Disconnect)
			integrations.GET("/status", s.integrationHandler.Status)
		}

		// 挂件外观配置路由
		designs := v1.Group("/designs", middleware.JWTAuth())
		{
			designs.POST("", s.designHandler.Save)
			designs.GET("/:name", s.designHandler.Get)
		}
	}

	// 平台回调路由，由各平台的验证机制保护，不走 JWT
	s.engine.GET("/webhooks/:provider/:workspaceId", s.webhookHandler.Verify)
	s.engine.POST("/webhooks/:provider/:workspaceId", s.webhookHandler.Inbound)

	// 嵌入式挂件脚本
	s.engine.GET("/widget.js", s.handleWidgetScript)
}

// Start 启动 HTTP 服务器
func (s *HTTPGinServer) Start() error {
	addr := fmt.Sprintf("0.0.0.0:%d", s.config.Server.HTTP.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	logx.Info("🛜 Starting HTTP Server (Gin), Addr %s", addr)
	return s.server.ListenAndServe()
}

// Stop 停止 HTTP 服务器
func (s *HTTPGinServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Engine 返回底层 gin.Engine (用于测试)
func (s *HTTPGinServer) Engine() *gin.Engine {
	return s.engine
}

// success 返回成功响应
func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: "Success",
		Data:    data,
	})
}

// fail 返回错误响应
func fail(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// ==================== 健康检查 ====================

func (s *HTTPGinServer) handleHealth(c *gin.Context) {
	success(c, gin.H{
		"status": "healthy",
	})
}

// ==================== 挂件脚本 ====================

func (s *HTTPGinServer) handleWidgetScript(c *gin.Context) {
	script, err := web.WidgetScript()
	if err != nil {
		fail(c, http.StatusInternalServerError, "widget script unavailable")
		return
	}
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", script)
}
