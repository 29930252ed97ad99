// Package report 提供跨表查询、首页统计和报表导出服务
package report

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/dumeirei/dormitory-backend/internal/common/cache"
	"github.com/dumeirei/dormitory-backend/internal/common/errors"
	"github.com/dumeirei/dormitory-backend/internal/common/logger"
	"github.com/dumeirei/dormitory-backend/internal/common/validator"
	"github.com/dumeirei/dormitory-backend/internal/models"
	"github.com/dumeirei/dormitory-backend/internal/repository"
	"github.com/dumeirei/dormitory-backend/internal/service"
)

const (
	exportSheet    = "学生宿舍费用"
	exportPageSize = 500
	dashboardKey   = "summary"
)

var exportHeader = []string{
	"学号", "姓名", "性别", "专业", "宿舍号", "楼栋", "房型",
	"费用编号", "费用月份", "水费", "电费", "总费用", "缴费状态", "缴费日期",
}

// Sources 首页统计的数据来源
type Sources struct {
	Students *repository.StudentRepository
	Dorms    *repository.DormRepository
	Fees     *repository.FeeRepository
	Repairs  *repository.RepairRepository
	Visitors *repository.VisitorRepository
}

// ReportService 报表服务
type ReportService struct {
	errors.Tracker
	repo     *repository.ReportRepository
	sources  Sources
	store    *cache.Store
	cacheTTL time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewReportService 创建报表服务，store 为 nil 或 ttl 为 0 时首页统计不缓存
func NewReportService(repo *repository.ReportRepository, sources Sources, store *cache.Store, ttl time.Duration) *ReportService {
	return &ReportService{
		repo:     repo,
		sources:  sources,
		store:    store,
		cacheTTL: ttl,
		log:      logger.Named("report"),
		now:      time.Now,
	}
}

// StudentDormFee 学生-宿舍-费用联合分页查询
func (s *ReportService) StudentDormFee(ctx context.Context, f *models.StudentDormFeeFilter, page *models.PageParam) ([]*models.StudentDormFee, error) {
	if err := normalizeFilter(f); err != nil {
		return nil, s.Fail(err)
	}
	rows, err := service.Paginate(ctx, page,
		func(ctx context.Context) (int64, error) { return s.repo.StudentDormFeeCount(ctx, f) },
		func(ctx context.Context, p *models.PageParam) ([]*models.StudentDormFee, error) {
			return s.repo.StudentDormFee(ctx, f, p)
		},
	)
	return rows, s.Fail(err)
}

// StudentDormFeeCount 联合查询结果总数
func (s *ReportService) StudentDormFeeCount(ctx context.Context, f *models.StudentDormFeeFilter) (int64, error) {
	if err := normalizeFilter(f); err != nil {
		return 0, s.Fail(err)
	}
	n, err := s.repo.StudentDormFeeCount(ctx, f)
	if err != nil {
		return 0, s.Fail(errors.Storage("获取总数失败：", err))
	}
	return n, s.Fail(nil)
}

// Dashboard 首页统计，优先读取缓存
func (s *ReportService) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	key := cache.BuildKey(cache.KeyPrefixDashboard, dashboardKey)
	if s.cached() {
		var stats models.DashboardStats
		err := s.store.Get(ctx, key, &stats)
		if err == nil {
			return &stats, s.Fail(nil)
		}
		if !cache.IsMiss(err) {
			s.log.Warn("读取首页统计缓存失败", zap.Error(err))
		}
	}

	stats, err := s.collect(ctx)
	if err != nil {
		return nil, s.Fail(err)
	}
	if s.cached() {
		if err := s.store.Set(ctx, key, stats, s.cacheTTL); err != nil {
			s.log.Warn("写入首页统计缓存失败", zap.Error(err))
		}
	}
	return stats, s.Fail(nil)
}

// InvalidateDashboard 清除首页统计缓存
func (s *ReportService) InvalidateDashboard(ctx context.Context) {
	if !s.cached() {
		return
	}
	if err := s.store.Delete(ctx, cache.BuildKey(cache.KeyPrefixDashboard, dashboardKey)); err != nil {
		s.log.Warn("清除首页统计缓存失败", zap.Error(err))
	}
}

// Export 将联合查询结果导出为 xlsx，返回文件内容和建议文件名
func (s *ReportService) Export(ctx context.Context, f *models.StudentDormFeeFilter) (*bytes.Buffer, string, error) {
	if err := normalizeFilter(f); err != nil {
		return nil, "", s.Fail(err)
	}

	var rows []*models.StudentDormFee
	for index := 1; ; index++ {
		page := models.NewPageParam(index, exportPageSize)
		batch, err := s.repo.StudentDormFee(ctx, f, page)
		if err != nil {
			return nil, "", s.Fail(errors.Storage("导出失败：", err))
		}
		rows = append(rows, batch...)
		if len(batch) < exportPageSize {
			break
		}
	}

	buf, err := writeWorkbook(rows)
	if err != nil {
		s.log.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", s.Fail(errors.ErrInternalError.WithMessage("导出失败：生成 Excel 文件失败！").WithError(err))
	}
	s.log.Info("报表导出成功", zap.Int("rows", len(rows)))
	filename := fmt.Sprintf("学生宿舍费用_%s.xlsx", s.now().Format("20060102150405"))
	return buf, filename, s.Fail(nil)
}

func (s *ReportService) cached() bool {
	return s.store != nil && s.cacheTTL > 0
}

func (s *ReportService) collect(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}
	counts := []struct {
		dst   *int64
		count func(context.Context) (int64, error)
	}{
		{&stats.StudentCount, s.sources.Students.Count},
		{&stats.DormCount, s.sources.Dorms.Count},
		{&stats.UnpaidFeeCount, s.sources.Fees.UnpaidCount},
		{&stats.UnfinishedRepairs, s.sources.Repairs.UnfinishedCount},
		{&stats.ActiveVisitors, s.sources.Visitors.ActiveCount},
	}
	for _, c := range counts {
		n, err := c.count(ctx)
		if err != nil {
			return nil, errors.Storage("统计失败：", err)
		}
		*c.dst = n
	}

	total, occupied, err := s.sources.Dorms.BedStats(ctx)
	if err != nil {
		return nil, errors.Storage("统计失败：", err)
	}
	stats.TotalBeds = total
	stats.OccupiedBeds = occupied
	if total > 0 {
		stats.OccupancyRate = math.Round(float64(occupied)/float64(total)*10000) / 100
	}
	return stats, nil
}

func writeWorkbook(rows []*models.StudentDormFee) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	header := make([]interface{}, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, err
	}
	last, _ := excelize.ColumnNumberToName(len(exportHeader))
	if err := f.SetCellStyle(exportSheet, "A1", last+"1", headerStyle); err != nil {
		return nil, err
	}

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{
			r.StudentID, r.StudentName, r.Gender, r.Major, r.DormID,
			deref(r.Building), deref(r.RoomType), feeNo(r), deref(r.FeeMonth),
			money(r.WaterFee), money(r.ElectricFee), money(r.TotalFee), payStatus(r.PayStatus), r.PayDate.String(),
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// normalizeFilter f 为 nil 表示不限条件
func normalizeFilter(f *models.StudentDormFeeFilter) error {
	if f == nil {
		return nil
	}
	f.StudentID = validator.Trim(f.StudentID)
	f.DormID = validator.Trim(f.DormID)
	f.FeeMonth = validator.Trim(f.FeeMonth)
	if f.FeeMonth != "" && !validator.IsValidFeeMonth(f.FeeMonth) {
		return errors.ErrInvalidParams.WithMessage("费用月份格式不正确，应为YYYY-MM格式")
	}
	if f.PayStatus != nil && !f.PayStatus.Valid() {
		return errors.ErrInvalidParams.WithMessage("缴费状态不正确")
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func money(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func payStatus(p *models.PayStatus) string {
	if p == nil {
		return ""
	}
	return p.String()
}

func feeNo(r *models.StudentDormFee) string {
	if r.FeeID == nil || r.FeeMonth == nil {
		return ""
	}
	fee := models.Fee{FeeID: *r.FeeID, FeeMonth: *r.FeeMonth}
	return fee.DisplayNo()
}
