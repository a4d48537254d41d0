package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"taskhub/internal/access"
	"taskhub/internal/api/auth"
	"taskhub/internal/api/middleware"
	"taskhub/internal/config"
	"taskhub/internal/pkg/dedup"
	"taskhub/internal/pkg/filestore"
	"taskhub/internal/pkg/metrics"
	"taskhub/internal/pkg/notify"
	"taskhub/internal/pkg/queue"
	"taskhub/internal/pkg/ratelimit"
	"taskhub/internal/service"
	"taskhub/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库 Store、可选的 Redis 客户端、附件存储、后台清理队列以及 Gin 路由引擎。
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	rdb     *redis.Client
	router  *gin.Engine
	files   *filestore.Store
	cleanup *queue.Queue

	auth        *auth.Handler
	limiter     *ratelimit.RateLimiter
	accounts    *service.AccountService
	tasks       *service.TaskService
	categories  *service.CategoryService
	attachments *service.AttachmentService
	sharing     *service.SharingService
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 打开数据库并执行自动迁移
// 2. 连接 Redis（配置了地址时）
// 3. 组装访问控制与各业务服务
// 4. 初始化 Gin 路由引擎
//
// 返回的 Server 需要调用 Start 启动后台队列，结束时调用 Close。
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	st, err := store.Open(cfg.Database, cfg.App.LogLevel)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			_ = st.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
	}

	files, err := filestore.New(cfg.App.UploadDir, cfg.App.MaxUploadBytes, logger)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = st.Close()
		return nil, err
	}

	metrics.InitMetrics()

	cleanup := queue.NewQueue(logger, cfg.App.CleanupWorkers, cfg.App.CleanupQueueCapacity)
	guard := access.NewGuard(access.StoreLookup{Store: st})

	var deduper service.Deduper
	if rdb != nil {
		deduper = dedup.NewDeduplicator(rdb, cfg.Security.NotifyDedupWindow)
	}
	var notifier notify.Notifier
	if email := notify.NewEmailNotifier(&cfg.Email, logger); email.Configured() {
		notifier = email
	}

	accounts := service.NewAccountService(st)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		store:       st,
		rdb:         rdb,
		router:      r,
		files:       files,
		cleanup:     cleanup,
		auth:        auth.NewHandler(accounts, cfg.Security.JWTSecret, cfg.Security.TokenTTL, logger),
		limiter:     ratelimit.NewRedisRateLimiter(rdb, logger, "taskhub:ratelimit:", cfg.Security.LoginRateLimit, cfg.Security.LoginRateBurst),
		accounts:    accounts,
		tasks:       service.NewTaskService(st, guard, files, cleanup, logger),
		categories:  service.NewCategoryService(st, guard),
		attachments: service.NewAttachmentService(st, guard, files, cleanup, logger),
		sharing:     service.NewSharingService(st, guard, cleanup, notifier, deduper, logger),
	}
	s.registerRoutes()
	return s, nil
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Start 启动后台清理队列。队列使用独立于请求的上下文，由 Close 负责排空。
func (s *Server) Start(ctx context.Context) {
	s.cleanup.Start(context.WithoutCancel(ctx))
}

// Close 排空后台队列并关闭数据库与缓存连接。
func (s *Server) Close() error {
	var errs []error
	if err := s.cleanup.Shutdown(10 * time.Second); err != nil {
		errs = append(errs, fmt.Errorf("drain cleanup queue: %w", err))
	}
	stats := s.cleanup.Stats()
	s.logger.Info("cleanup queue stopped",
		slog.Int64("enqueued", stats.Enqueued),
		slog.Int64("inline", stats.Inline),
		slog.Int64("failed", stats.Failed),
		slog.Int64("panics", stats.Panics),
		slog.Int("pending", s.cleanup.Len()))
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close db: %w", err))
	}
	return errors.Join(errs...)
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	s.router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Task management server is running!")
	})
	s.router.GET("/healthz", s.handleHealthz)
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.Static(filestore.PublicPrefix, s.files.Dir())

	authMW := middleware.AuthMiddleware(s.cfg.Security.JWTSecret)

	authGroup := s.router.Group("/auth")
	authGroup.POST("/register", s.auth.Register)
	authGroup.POST("/login", middleware.LoginRateLimit(s.limiter, s.logger), s.auth.Login)
	authGroup.GET("/users", authMW, s.auth.ListUsers)
	authGroup.GET("/users/:id", authMW, s.auth.GetUser)

	tasks := s.router.Group("/tasks", authMW)
	tasks.POST("", s.handleCreateTask)
	tasks.GET("", s.handleListTasks)
	tasks.GET("/:id", s.handleGetTask)
	tasks.PUT("/:id", s.handleUpdateTask)
	tasks.DELETE("/:id", s.handleDeleteTask)

	categories := s.router.Group("/categories", authMW)
	categories.POST("", s.handleCreateCategory)
	categories.GET("", s.handleListCategories)
	categories.PUT("/:id", s.handleUpdateCategory)
	categories.DELETE("/:id", s.handleDeleteCategory)

	attachments := s.router.Group("/attachments", authMW)
	attachments.POST("", s.handleUploadAttachment)
	attachments.GET("/:taskId", s.handleListAttachments)
	attachments.DELETE("/:id", s.handleDeleteAttachment)

	sharing := s.router.Group("/sharing", authMW)
	sharing.POST("", s.handleCreateShare)
	sharing.GET("/received", s.handleListReceived)
	sharing.DELETE("", s.handleDeleteShare)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("healthz db ping failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			s.logger.Warn("healthz redis ping failed", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func getUserID(c *gin.Context) uint {
	return middleware.UserID(c)
}
