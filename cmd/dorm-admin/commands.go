package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dumeirei/dormitory-backend/internal/common/config"
	"github.com/dumeirei/dormitory-backend/internal/common/crypto"
	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/common/jwt"
	"github.com/dumeirei/dormitory-backend/internal/models"
	"github.com/dumeirei/dormitory-backend/internal/repository"
	adminService "github.com/dumeirei/dormitory-backend/internal/service/admin"
	dormService "github.com/dumeirei/dormitory-backend/internal/service/dorm"
	reportService "github.com/dumeirei/dormitory-backend/internal/service/report"
)

// app 命令行共用的连接和服务
type app struct {
	cfg  *config.Config
	conn *database.Conn
	out  io.Writer
}

func newApp(cfg *config.Config, conn *database.Conn, out io.Writer) *app {
	return &app{cfg: cfg, conn: conn, out: out}
}

// run 分发子命令
func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("缺少命令")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "migrate":
		return a.migrate(ctx)
	case "create-admin":
		return a.createAdmin(ctx, rest)
	case "verify-login":
		return a.verifyLogin(ctx, rest)
	case "reconcile":
		return a.reconcile(ctx)
	case "export":
		return a.export(ctx, rest)
	default:
		return fmt.Errorf("未知命令: %s", cmd)
	}
}

func (a *app) adminService() *adminService.AdminService {
	return adminService.NewAdminService(
		repository.NewAdminRepository(a.conn),
		crypto.NewPasswordHasher(a.cfg.Crypto.BcryptCost),
		jwt.NewManager(&a.cfg.JWT),
		nil,
		nil,
	)
}

func (a *app) migrate(ctx context.Context) error {
	if err := a.conn.AutoMigrate(ctx, models.AllModels()...); err != nil {
		return fmt.Errorf("迁移失败: %w", err)
	}
	fmt.Fprintln(a.out, "数据表已同步")
	return nil
}

func (a *app) createAdmin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(a.out)
	id := fs.String("id", "", "管理员账号（4-20位字母+数字）")
	name := fs.String("name", "", "管理员姓名")
	password := fs.String("password", "", "密码（6-20位字母+数字）")
	if err := fs.Parse(args); err != nil {
		return err
	}

	admin := &models.Admin{AdminID: *id, AdminName: *name}
	if err := a.adminService().Create(ctx, admin, *password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "管理员 %s 创建成功\n", admin.AdminID)
	return nil
}

func (a *app) verifyLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify-login", flag.ContinueOnError)
	fs.SetOutput(a.out)
	id := fs.String("id", "", "管理员账号")
	password := fs.String("password", "", "密码")
	if err := fs.Parse(args); err != nil {
		return err
	}

	admin, err := a.adminService().VerifyLogin(ctx, *id, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "登录成功：%s（%s）\n", admin.AdminID, admin.AdminName)
	return nil
}

func (a *app) reconcile(ctx context.Context) error {
	dorms := dormService.NewDormService(repository.NewDormRepository(a.conn), nil)
	drifts, err := dorms.Reconcile(ctx)
	if err != nil {
		return err
	}
	if len(drifts) == 0 {
		fmt.Fprintln(a.out, "所有宿舍入住人数一致")
		return nil
	}
	for _, d := range drifts {
		fmt.Fprintf(a.out, "%s: %d -> %d\n", d.DormID, d.Recorded, d.Actual)
	}
	fmt.Fprintf(a.out, "共校准 %d 间宿舍\n", len(drifts))
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(a.out)
	month := fs.String("month", "", "费用月份 YYYY-MM")
	studentID := fs.String("student", "", "学号，模糊匹配")
	dormID := fs.String("dorm", "", "宿舍号，模糊匹配")
	out := fs.String("out", "", "输出文件路径，默认使用生成的文件名")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reports := reportService.NewReportService(
		repository.NewReportRepository(a.conn), reportService.Sources{}, nil, 0)
	buf, filename, err := reports.Export(ctx, &models.StudentDormFeeFilter{
		StudentID: *studentID,
		DormID:    *dormID,
		FeeMonth:  *month,
	})
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = filename
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("写入文件失败: %w", err)
	}
	fmt.Fprintf(a.out, "已导出到 %s\n", path)
	return nil
}
