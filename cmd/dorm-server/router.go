package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dumeirei/dormitory-backend/internal/common/cache"
	"github.com/dumeirei/dormitory-backend/internal/common/config"
	"github.com/dumeirei/dormitory-backend/internal/common/crypto"
	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/common/handler"
	"github.com/dumeirei/dormitory-backend/internal/common/jwt"
	"github.com/dumeirei/dormitory-backend/internal/common/metrics"
	adminHandler "github.com/dumeirei/dormitory-backend/internal/handler/admin"
	"github.com/dumeirei/dormitory-backend/internal/middleware"
	"github.com/dumeirei/dormitory-backend/internal/repository"
	adminService "github.com/dumeirei/dormitory-backend/internal/service/admin"
	dormService "github.com/dumeirei/dormitory-backend/internal/service/dorm"
	feeService "github.com/dumeirei/dormitory-backend/internal/service/fee"
	repairService "github.com/dumeirei/dormitory-backend/internal/service/repair"
	reportService "github.com/dumeirei/dormitory-backend/internal/service/report"
	studentService "github.com/dumeirei/dormitory-backend/internal/service/student"
	visitorService "github.com/dumeirei/dormitory-backend/internal/service/visitor"
)

// loginRateLimit 登录接口每个 IP 每分钟允许的请求数
const loginRateLimit = 20

// deps 组装路由需要的基础设施，redis 和 metrics 可为 nil
type deps struct {
	cfg     *config.Config
	conn    *database.Conn
	rdb     *redis.Client
	metrics *metrics.Metrics
	log     *zap.Logger
}

// services 业务服务集合
type services struct {
	admin   *adminService.AdminService
	dorm    *dormService.DormService
	student *studentService.StudentService
	fee     *feeService.FeeService
	repair  *repairService.RepairService
	visitor *visitorService.VisitorService
	report  *reportService.ReportService
}

// newServices 初始化仓储和服务
func newServices(d *deps) *services {
	cfg := d.cfg

	// 初始化仓储
	dormRepo := repository.NewDormRepository(d.conn)
	studentRepo := repository.NewStudentRepository(d.conn)
	feeRepo := repository.NewFeeRepository(d.conn)
	repairRepo := repository.NewRepairRepository(d.conn)
	visitorRepo := repository.NewVisitorRepository(d.conn)
	adminRepo := repository.NewAdminRepository(d.conn)
	reportRepo := repository.NewReportRepository(d.conn)

	var (
		store *cache.Store
		guard *cache.LoginGuard
	)
	if d.rdb != nil {
		store = cache.NewStore(d.rdb)
		guard = cache.NewLoginGuard(d.rdb, cfg.Business.LoginMaxFailures, cfg.Business.LockoutDuration())
	}

	// 初始化服务
	dorms := dormService.NewDormService(dormRepo, d.metrics)
	students := studentService.NewStudentService(d.conn, studentRepo, dorms, dorms, d.metrics)

	return &services{
		admin: adminService.NewAdminService(
			adminRepo,
			crypto.NewPasswordHasher(cfg.Crypto.BcryptCost),
			jwt.NewManager(&cfg.JWT),
			guard,
			d.metrics,
		),
		dorm:    dorms,
		student: students,
		fee:     feeService.NewFeeService(feeRepo, students, dorms, d.metrics),
		repair:  repairService.NewRepairService(repairRepo, students, dorms, d.metrics),
		visitor: visitorService.NewVisitorService(visitorRepo, dorms, d.metrics),
		report: reportService.NewReportService(reportRepo, reportService.Sources{
			Students: studentRepo,
			Dorms:    dormRepo,
			Fees:     feeRepo,
			Repairs:  repairRepo,
			Visitors: visitorRepo,
		}, store, cfg.Business.DashboardCacheDuration()),
	}
}

// setupRouter 设置路由
func setupRouter(r *gin.Engine, d *deps, svc *services) {
	cfg := d.cfg
	jwtManager := jwt.NewManager(&cfg.JWT)
	paging := handler.Paging{DefaultSize: cfg.Business.DefaultPageSize, MaxSize: cfg.Business.MaxPageSize}

	// 初始化处理器
	authH := adminHandler.NewAuthHandler(svc.admin, int(cfg.JWT.AccessTokenDuration().Seconds()), cfg.IsRelease())
	dormH := adminHandler.NewDormHandler(svc.dorm, svc.report, paging)
	studentH := adminHandler.NewStudentHandler(svc.student, svc.report, paging)
	feeH := adminHandler.NewFeeHandler(svc.fee, svc.report, paging)
	repairH := adminHandler.NewRepairHandler(svc.repair, svc.report, paging)
	visitorH := adminHandler.NewVisitorHandler(svc.visitor, svc.report, paging)
	dashboardH := adminHandler.NewDashboardHandler(svc.report, paging)

	// 全局中间件
	r.Use(middleware.Recovery(d.log))
	r.Use(middleware.RequestID())
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.CORS(middleware.AdminCORSConfig(d.cfg.Server.AllowOrigins)))
	if cfg.Tracing.Enabled {
		r.Use(middleware.Tracing("/health", "/ready", cfg.Metrics.Path))
	}
	if d.metrics != nil {
		r.Use(d.metrics.Middleware())
		r.GET(cfg.Metrics.Path, d.metrics.Handler())
	}
	r.Use(middleware.AccessLog(d.log))

	// 健康检查（不需要认证）
	r.GET("/health", healthHandler)
	r.GET("/ready", readyHandler(d.conn, d.rdb))

	admin := r.Group("/api/admin")
	{
		// 登录限流依赖 Redis
		var limit []gin.HandlerFunc
		if d.rdb != nil {
			limit = append(limit, middleware.RateLimit(d.rdb, loginRateLimit, time.Minute))
		}
		authH.RegisterRoutes(admin, limit...)

		authed := admin.Group("")
		authed.Use(middleware.AdminAuth(jwtManager))
		{
			authH.RegisterProtectedRoutes(authed)
			dormH.RegisterRoutes(authed)
			studentH.RegisterRoutes(authed)
			feeH.RegisterRoutes(authed)
			repairH.RegisterRoutes(authed)
			visitorH.RegisterRoutes(authed)
			dashboardH.RegisterRoutes(authed)
		}
	}
}
