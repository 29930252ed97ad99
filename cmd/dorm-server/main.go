// Package main 是宿舍管理后台 HTTP 服务入口
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dumeirei/dormitory-backend/internal/common/cache"
	"github.com/dumeirei/dormitory-backend/internal/common/config"
	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/common/logger"
	"github.com/dumeirei/dormitory-backend/internal/common/metrics"
	"github.com/dumeirei/dormitory-backend/internal/common/tracing"
	"github.com/dumeirei/dormitory-backend/internal/models"
	"github.com/dumeirei/dormitory-backend/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，默认读取 ./configs/config.yaml")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.GetLogger()
	log.Info("Starting Dormitory Backend",
		zap.String("name", cfg.Server.Name),
		zap.String("mode", cfg.Server.Mode),
	)

	// 初始化链路追踪
	tp, err := tracing.Init(&cfg.Tracing, nil)
	if err != nil {
		log.Fatal("Failed to init tracing", zap.Error(err))
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	// 初始化数据库连接
	ctx := context.Background()
	conn := database.New(database.WithLogger(logger.Named("database")), database.WithMetrics(m))
	if err := conn.Connect(ctx, &cfg.Database); err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := conn.AutoMigrate(ctx, models.AllModels()...); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Redis 可选，不可用时关闭登录锁定、限流和统计缓存
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = cache.Init(&cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, continuing without cache", zap.Error(err))
			rdb = nil
		} else {
			log.Info("Redis connected successfully")
		}
	}

	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	d := &deps{cfg: cfg, conn: conn, rdb: rdb, metrics: m, log: log}
	svc := newServices(d)

	engine := gin.New()
	setupRouter(engine, d, svc)

	// 定时任务
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(time.Minute)
		scheduler.NewTaskHandler(svc.dorm, svc.report, conn).
			Register(sched, cfg.Scheduler.ReconcileDuration(), cfg.Scheduler.KeepaliveDuration())
		sched.Start()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if sched != nil {
		sched.Stop()
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracing shutdown failed", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := conn.Disconnect(); err != nil {
		log.Warn("Database disconnect failed", zap.Error(err))
	}

	log.Info("Server exited")
}
