package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"todoapi/internal/api/middleware"
	"todoapi/internal/config"
	"todoapi/internal/model"
	"todoapi/internal/pkg/metrics"
	"todoapi/internal/service"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、两个记录服务以及 Gin 路由引擎。
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *gorm.DB
	router  *gin.Engine
	handler http.Handler
	schemas *schemaSet
	tasks   TaskStore
	users   UserStore
}

// TaskStore 任务记录服务。service.TaskService 是其数据库实现。
type TaskStore interface {
	Create(ctx context.Context, in service.TaskCreate) (*model.Task, error)
	Get(ctx context.Context, id uint) (*model.Task, error)
	List(ctx context.Context) ([]model.Task, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task, in service.TaskUpdate) (*model.Task, error)
	Delete(ctx context.Context, task *model.Task) error
}

// UserStore 用户记录服务。service.UserService 是其数据库实现。
type UserStore interface {
	Create(ctx context.Context, in service.UserCreate) (*model.User, error)
	Get(ctx context.Context, id uint) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, user *model.User, in service.UserUpdate) (*model.User, error)
	Delete(ctx context.Context, user *model.User) error
}

// NewServer 初始化 API 服务器。
//
// db 由调用方根据解析好的连接创建并负责迁移；Server 只持有它，Close 时关闭。
//
// 参数:
//
//	cfg: 配置对象
//	logger: 日志记录器
//	db: 数据库连接池
//
// 返回值:
//
//	*Server: 初始化完成的服务器实例
//	error: schema 编译失败返回错误
func NewServer(cfg *config.Config, logger *slog.Logger, db *gorm.DB) (*Server, error) {
	return newServer(cfg, logger, db, service.NewTaskService(db), service.NewUserService(db))
}

func newServer(cfg *config.Config, logger *slog.Logger, db *gorm.DB, tasks TaskStore, users UserStore) (*Server, error) {
	schemas, err := loadSchemas()
	if err != nil {
		return nil, err
	}

	// 初始化 Prometheus 指标
	metrics.InitMetrics()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		router:  r,
		schemas: schemas,
		tasks:   tasks,
		users:   users,
	}
	s.registerRoutes()
	s.handler = withCORS(r, cfg.CORS)
	return s, nil
}

// withCORS 在配置了来源白名单时包裹 CORS 处理。
func withCORS(h http.Handler, cfg config.CORSConfig) http.Handler {
	if len(cfg.AllowedOrigins) == 0 {
		return h
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           300,
	})(h)
}

// Router 返回 HTTP 处理器（已包含 CORS）。
func (s *Server) Router() http.Handler {
	return s.handler
}

// Close 关闭数据库连接。
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/healthz", s.handleHealthz)

	s.router.POST("/tasks", s.handleCreateTask)
	s.router.GET("/tasks", s.handleListTasks)
	s.router.GET("/tasks/:id", s.handleGetTask)
	s.router.PATCH("/tasks/:id", s.handleUpdateTask)
	s.router.DELETE("/tasks/:id", s.handleDeleteTask)

	s.router.POST("/users", s.handleCreateUser)
	s.router.GET("/users", s.handleListUsers)
	s.router.GET("/users/username/:username", s.handleGetUserByUsername)
	s.router.GET("/users/:id", s.handleGetUser)
	// gin 要求同一层级的通配参数同名，所以这里的 :id 是 owner_id
	s.router.GET("/users/:id/tasks", s.handleListOwnerTasks)
	s.router.PATCH("/users/:id", s.handleUpdateUser)
	s.router.DELETE("/users/:id", s.handleDeleteUser)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		s.logger.Warn("health check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
