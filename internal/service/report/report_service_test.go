package report

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dumeirei/dormitory-backend/internal/common/cache"
	"github.com/dumeirei/dormitory-backend/internal/common/errors"
	"github.com/dumeirei/dormitory-backend/internal/models"
	"github.com/dumeirei/dormitory-backend/internal/repository"
	"github.com/dumeirei/dormitory-backend/internal/testutil"
)

type fixture struct {
	svc      *ReportService
	students *repository.StudentRepository
	fees     *repository.FeeRepository
}

func setupReportService(t *testing.T, store *cache.Store, ttl time.Duration) *fixture {
	conn := testutil.NewConn(t)
	ctx := context.Background()

	sources := Sources{
		Students: repository.NewStudentRepository(conn),
		Dorms:    repository.NewDormRepository(conn),
		Fees:     repository.NewFeeRepository(conn),
		Repairs:  repository.NewRepairRepository(conn),
		Visitors: repository.NewVisitorRepository(conn),
	}
	require.NoError(t, sources.Dorms.Create(ctx, &models.Dorm{DormID: "1-101", Building: "1栋", RoomType: "4", MaxCapacity: 4, CurrentOccupancy: 2}))
	require.NoError(t, sources.Dorms.Create(ctx, &models.Dorm{DormID: "2-201", Building: "2栋", RoomType: "4", MaxCapacity: 4}))
	for _, st := range []*models.Student{
		{StudentID: "2024001", StudentName: "张三", Gender: models.GenderMale, Age: 20, Major: "软件工程", DormID: "1-101"},
		{StudentID: "2024002", StudentName: "李四", Gender: models.GenderMale, Age: 21, Major: "网络工程", DormID: "1-101"},
	} {
		require.NoError(t, sources.Students.Create(ctx, st))
	}
	require.NoError(t, sources.Fees.Create(ctx, &models.Fee{
		StudentID: "2024001", DormID: "1-101", FeeMonth: "2024-03", WaterFee: 20.5, ElectricFee: 30, TotalFee: 50.5,
		PayStatus: models.PayStatusPaid, PayDate: models.NewDate(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)),
	}))
	require.NoError(t, sources.Fees.Create(ctx, &models.Fee{
		StudentID: "2024001", DormID: "1-101", FeeMonth: "2024-04", WaterFee: 10, ElectricFee: 15, TotalFee: 25,
	}))

	svc := NewReportService(repository.NewReportRepository(conn), sources, store, ttl)
	svc.now = testutil.FixedClock(2024, 5, 1, 10, 0)
	return &fixture{svc: svc, students: sources.Students, fees: sources.Fees}
}

func TestReportService_StudentDormFee(t *testing.T) {
	fx := setupReportService(t, nil, 0)
	ctx := context.Background()

	page := models.NewPageParam(1, 10)
	rows, err := fx.svc.StudentDormFee(ctx, &models.StudentDormFeeFilter{}, page)
	require.NoError(t, err)
	// 2024001 两条费用记录，2024002 没有费用记录也保留一行
	require.Len(t, rows, 3)
	assert.Equal(t, int64(3), page.TotalCount)
	assert.Equal(t, "2024-04", *rows[0].FeeMonth)
	assert.Equal(t, "2024002", rows[2].StudentID)
	assert.Nil(t, rows[2].FeeID)
	require.NotNil(t, rows[2].Building)
	assert.Equal(t, "1栋", *rows[2].Building)

	unpaid := models.PayStatusUnpaid
	n, err := fx.svc.StudentDormFeeCount(ctx, &models.StudentDormFeeFilter{PayStatus: &unpaid})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = fx.svc.StudentDormFeeCount(ctx, &models.StudentDormFeeFilter{FeeMonth: "2024-03", StudentID: "001"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = fx.svc.StudentDormFee(ctx, &models.StudentDormFeeFilter{FeeMonth: "2024/03"}, models.NewPageParam(1, 10))
	assert.ErrorIs(t, err, errors.ErrInvalidParams)
	assert.Equal(t, "费用月份格式不正确，应为YYYY-MM格式", fx.svc.LastError())

	_, err = fx.svc.StudentDormFee(ctx, &models.StudentDormFeeFilter{}, &models.PageParam{PageIndex: 0, PageSize: 10})
	assert.ErrorIs(t, err, errors.ErrPageParam)
}

func TestReportService_NilFilter(t *testing.T) {
	fx := setupReportService(t, nil, 0)
	ctx := context.Background()

	page := models.NewPageParam(1, 10)
	rows, err := fx.svc.StudentDormFee(ctx, nil, page)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, int64(3), page.TotalCount)

	n, err := fx.svc.StudentDormFeeCount(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	buf, _, err := fx.svc.Export(ctx, nil)
	require.NoError(t, err)
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()
	sheet, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	assert.Len(t, sheet, 4)
}

func TestReportService_Dashboard(t *testing.T) {
	fx := setupReportService(t, nil, 0)

	stats, err := fx.svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.StudentCount)
	assert.Equal(t, int64(2), stats.DormCount)
	assert.Equal(t, int64(8), stats.TotalBeds)
	assert.Equal(t, int64(2), stats.OccupiedBeds)
	assert.InDelta(t, 25.0, stats.OccupancyRate, 0.001)
	assert.Equal(t, int64(1), stats.UnpaidFeeCount)
	assert.Zero(t, stats.UnfinishedRepairs)
	assert.Zero(t, stats.ActiveVisitors)
}

func TestReportService_DashboardCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	fx := setupReportService(t, cache.NewStore(rdb), time.Minute)
	ctx := context.Background()

	stats, err := fx.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.StudentCount)
	assert.True(t, mr.Exists("dashboard:summary"))

	require.NoError(t, fx.students.Create(ctx, &models.Student{
		StudentID: "2024003", StudentName: "王五", Gender: models.GenderFemale, Age: 19, Major: "数学", DormID: "2-201",
	}))
	stats, err = fx.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.StudentCount)

	fx.svc.InvalidateDashboard(ctx)
	stats, err = fx.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.StudentCount)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("dashboard:summary"))
}

func TestReportService_Export(t *testing.T) {
	fx := setupReportService(t, nil, 0)

	buf, name, err := fx.svc.Export(context.Background(), &models.StudentDormFeeFilter{DormID: "1-101"})
	require.NoError(t, err)
	assert.Equal(t, "学生宿舍费用_20240501100000.xlsx", name)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, exportHeader, rows[0])
	assert.Equal(t, "2024001", rows[1][0])
	assert.Equal(t, "F2024040002", rows[1][7])
	assert.Equal(t, "未缴费", rows[1][12])
	assert.Equal(t, "已缴费", rows[2][12])
	assert.Equal(t, "2024-04-01", rows[2][13])
	assert.Equal(t, "2024002", rows[3][0])

	_, _, err = fx.svc.Export(context.Background(), &models.StudentDormFeeFilter{FeeMonth: "2024-13"})
	assert.ErrorIs(t, err, errors.ErrInvalidParams)
}
