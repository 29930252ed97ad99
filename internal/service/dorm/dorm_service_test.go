// Package dorm 宿舍服务单元测试
package dorm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/common/errors"
	"github.com/dumeirei/dormitory-backend/internal/common/metrics"
	"github.com/dumeirei/dormitory-backend/internal/models"
	"github.com/dumeirei/dormitory-backend/internal/repository"
	"github.com/dumeirei/dormitory-backend/internal/testutil"
)

func setupDormService(t *testing.T) (*DormService, *database.Conn) {
	conn := testutil.NewConn(t)
	return NewDormService(repository.NewDormRepository(conn), metrics.New("test")), conn
}

func newDorm(id, building, roomType string) *models.Dorm {
	return &models.Dorm{
		DormID:      id,
		Building:    building,
		RoomType:    roomType,
		MaxCapacity: models.RoomCapacity(roomType),
	}
}

func addStudent(t *testing.T, conn *database.Conn, studentID, dormID string) {
	t.Helper()
	_, err := conn.Execute(context.Background(),
		"INSERT INTO student (student_id, student_name, gender, age, major, dorm_id) VALUES (?, ?, ?, ?, ?, ?)",
		studentID, "张三", models.GenderMale, 20, "计算机科学", dormID)
	require.NoError(t, err)
}

func TestDormService_Add(t *testing.T) {
	svc, _ := setupDormService(t)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, &models.Dorm{
		DormID: " 1-101 ", Building: "1栋", RoomType: "4", MaxCapacity: 4, CurrentOccupancy: 0,
	}))
	assert.Empty(t, svc.LastError())

	got, err := svc.GetByID(ctx, "1-101")
	require.NoError(t, err)
	assert.Equal(t, "1栋", got.Building)
	assert.Zero(t, got.CurrentOccupancy)

	err = svc.Add(ctx, newDorm("1-101", "1栋", "4"))
	assert.ErrorIs(t, err, errors.ErrDormExists)
	assert.Equal(t, "添加失败：宿舍号1-101已存在！", svc.LastError())
}

func TestDormService_AddValidation(t *testing.T) {
	svc, _ := setupDormService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		dorm *models.Dorm
		msg  string
	}{
		{"空宿舍号", &models.Dorm{Building: "1栋", RoomType: "4", MaxCapacity: 4}, "宿舍号不能为空！"},
		{"宿舍号格式", &models.Dorm{DormID: "A101", Building: "1栋", RoomType: "4", MaxCapacity: 4}, "宿舍号格式错误（3-10位，格式如1-101）！"},
		{"空楼栋", &models.Dorm{DormID: "1-101", RoomType: "4", MaxCapacity: 4}, "楼栋不能为空！"},
		{"楼栋格式", &models.Dorm{DormID: "1-101", Building: "A栋", RoomType: "4", MaxCapacity: 4}, "楼栋格式错误（1-10位中文/数字）！"},
		{"房间类型", &models.Dorm{DormID: "1-101", Building: "1栋", RoomType: "5", MaxCapacity: 5}, "房间类型错误（仅支持数字4、6、8）！"},
		{"容量为0", &models.Dorm{DormID: "1-101", Building: "1栋", RoomType: "4"}, "最大容纳人数必须大于0！"},
		{"容量不匹配", &models.Dorm{DormID: "1-101", Building: "1栋", RoomType: "6", MaxCapacity: 4}, "6人间最大容纳人数应为6人！"},
		{"入住为负", &models.Dorm{DormID: "1-101", Building: "1栋", RoomType: "4", MaxCapacity: 4, CurrentOccupancy: -1}, "当前入住人数不能为负数！"},
		{"入住超员", &models.Dorm{DormID: "1-101", Building: "1栋", RoomType: "4", MaxCapacity: 4, CurrentOccupancy: 5}, "当前入住人数不能超过最大容纳人数（4人）！"},
		{"新宿舍已入住", &models.Dorm{DormID: "1-101", Building: "1栋", RoomType: "4", MaxCapacity: 4, CurrentOccupancy: 2}, "新增宿舍的当前入住人数必须为0！"},
		{"宿管电话", &models.Dorm{DormID: "1-101", Building: "1栋", RoomType: "4", MaxCapacity: 4, DormManager: "12345678901"}, "宿管联系方式格式错误（11位数字，以13/14/15/17/18/19开头）！"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Add(ctx, tt.dorm)
			require.Error(t, err)
			assert.Equal(t, tt.msg, svc.LastError())
		})
	}

	n, err := svc.TotalCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDormService_UpdateKeepsOccupancy(t *testing.T) {
	svc, conn := setupDormService(t)
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, newDorm("1-101", "1栋", "6")))
	for _, id := range []string{"2024001", "2024002", "2024003", "2024004", "2024005"} {
		addStudent(t, conn, id, "1-101")
		require.NoError(t, svc.AdjustOccupancy(ctx, "1-101", 1))
	}

	// 容量不能小于已入住人数
	err := svc.Update(ctx, newDorm("1-101", "2栋", "4"))
	assert.ErrorIs(t, err, errors.ErrDormCapacityExceed)
	assert.Equal(t, "修改失败：当前入住人数不能超过最大容纳人数（4人）！", svc.LastError())

	update := newDorm("1-101", "2栋", "8")
	update.CurrentOccupancy = 0
	update.DormManager = "13800138000"
	require.NoError(t, svc.Update(ctx, update))
	assert.Equal(t, 5, update.CurrentOccupancy)

	got, err := svc.GetByID(ctx, "1-101")
	require.NoError(t, err)
	assert.Equal(t, "2栋", got.Building)
	assert.Equal(t, 8, got.MaxCapacity)
	assert.Equal(t, 5, got.CurrentOccupancy)

	err = svc.Update(ctx, newDorm("9-999", "1栋", "4"))
	assert.ErrorIs(t, err, errors.ErrDormNotFound)
	assert.Equal(t, "修改失败：未查询到宿舍号9-999对应的宿舍！", svc.LastError())
}

func TestDormService_DeleteBlockedByStudents(t *testing.T) {
	svc, conn := setupDormService(t)
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, newDorm("1-101", "1栋", "4")))
	require.NoError(t, svc.Add(ctx, newDorm("1-102", "1栋", "4")))
	addStudent(t, conn, "2024001", "1-101")

	err := svc.Delete(ctx, "1-101")
	assert.ErrorIs(t, err, errors.ErrDormOccupied)
	assert.NotEmpty(t, svc.LastError())

	require.NoError(t, svc.Delete(ctx, "1-102"))
	assert.Empty(t, svc.LastError())

	err = svc.Delete(ctx, "1-102")
	assert.ErrorIs(t, err, errors.ErrDormNotFound)
	assert.Equal(t, "删除失败：未查询到宿舍号1-102对应的宿舍！", svc.LastError())

	err = svc.Delete(ctx, "abc")
	assert.ErrorIs(t, err, errors.ErrInvalidParams)
	assert.Equal(t, "宿舍号格式错误！", svc.LastError())
}

func TestDormService_AdjustOccupancy(t *testing.T) {
	svc, _ := setupDormService(t)
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, newDorm("1-101", "1栋", "4")))

	assert.ErrorIs(t, svc.AdjustOccupancy(ctx, "1-101", 0), errors.ErrOccupancyDeltaZero)
	assert.Equal(t, "变更人数不能为0！", svc.LastError())

	err := svc.AdjustOccupancy(ctx, "1-101", -1)
	assert.ErrorIs(t, err, errors.ErrOccupancyNegative)
	assert.Equal(t, "更新失败：当前入住人数不能为负数！", svc.LastError())

	require.NoError(t, svc.AdjustOccupancy(ctx, "1-101", 4))
	err = svc.AdjustOccupancy(ctx, "1-101", 1)
	assert.ErrorIs(t, err, errors.ErrDormCapacityExceed)
	assert.Equal(t, "更新失败：当前入住人数不能超过最大容纳人数（4人）！", svc.LastError())

	err = svc.AdjustOccupancy(ctx, "9-999", 1)
	assert.ErrorIs(t, err, errors.ErrDormNotFound)
	assert.Equal(t, "更新失败：未查询到宿舍号9-999对应的宿舍！", svc.LastError())

	got, err := svc.GetByID(ctx, "1-101")
	require.NoError(t, err)
	assert.Equal(t, 4, got.CurrentOccupancy)
}

func TestDormService_ListAndFilter(t *testing.T) {
	svc, _ := setupDormService(t)
	ctx := context.Background()
	for _, d := range []*models.Dorm{
		newDorm("2-201", "2栋", "6"),
		newDorm("1-102", "1栋", "4"),
		newDorm("1-101", "1栋", "4"),
	} {
		require.NoError(t, svc.Add(ctx, d))
	}

	page := models.NewPageParam(1, 2)
	rows, err := svc.List(ctx, page)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1-101", rows[0].DormID)
	assert.Equal(t, "1-102", rows[1].DormID)
	assert.Equal(t, int64(3), page.TotalCount)
	assert.Equal(t, 2, page.TotalPage)

	rows, err = svc.FilterByBuilding(ctx, "1栋", models.NewPageParam(1, 10))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	n, err := svc.BuildingCount(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = svc.FilterByBuilding(ctx, "  ", models.NewPageParam(1, 10))
	assert.ErrorIs(t, err, errors.ErrInvalidParams)
	assert.Equal(t, "楼栋名称不能为空！", svc.LastError())

	_, err = svc.List(ctx, &models.PageParam{PageIndex: 0, PageSize: 10})
	assert.ErrorIs(t, err, errors.ErrPageParam)

	_, err = svc.GetByID(ctx, "9-999")
	assert.ErrorIs(t, err, errors.ErrDormNotFound)
	assert.Equal(t, "未查询到宿舍号9-999对应的宿舍！", svc.LastError())
}

func TestDormService_Reconcile(t *testing.T) {
	svc, conn := setupDormService(t)
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, newDorm("1-101", "1栋", "4")))
	require.NoError(t, svc.Add(ctx, newDorm("1-102", "1栋", "4")))
	addStudent(t, conn, "2024001", "1-101")
	addStudent(t, conn, "2024002", "1-101")
	require.NoError(t, svc.AdjustOccupancy(ctx, "1-102", 3))

	drifts, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 2)
	assert.Equal(t, "1-101", drifts[0].DormID)
	assert.Equal(t, 2, drifts[0].Actual)
	assert.Equal(t, 3, drifts[1].Recorded)

	got, err := svc.GetByID(ctx, "1-101")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentOccupancy)
	got, err = svc.GetByID(ctx, "1-102")
	require.NoError(t, err)
	assert.Zero(t, got.CurrentOccupancy)

	drifts, err = svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}
