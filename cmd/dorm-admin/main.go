// Package main 是宿舍管理运维命令行工具
//
//	dorm-admin [-config path] migrate
//	dorm-admin create-admin -id admin01 -name 宿管 -password admin123
//	dorm-admin verify-login -id admin01 -password admin123
//	dorm-admin reconcile
//	dorm-admin export -month 2024-05 -out fee.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/dumeirei/dormitory-backend/internal/common/config"
	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/common/logger"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，默认读取 ./configs/config.yaml")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	conn := database.New(database.WithLogger(logger.Named("database")))
	if err := conn.Connect(ctx, &cfg.Database); err != nil {
		logger.Fatal("连接数据库失败", zap.Error(err))
	}
	defer conn.Disconnect()

	a := newApp(cfg, conn, os.Stdout)
	if err := a.run(ctx, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `用法: dorm-admin [-config path] <command> [flags]

命令:
  migrate        创建或更新数据表
  create-admin   新增管理员账号
  verify-login   校验管理员账号密码
  reconcile      按学生记录校准宿舍入住人数
  export         导出学生宿舍费用报表
`)
}
