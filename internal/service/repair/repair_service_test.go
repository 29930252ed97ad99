// Package repair 报修服务单元测试
package repair

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/dormitory-backend/internal/common/errors"
	"github.com/dumeirei/dormitory-backend/internal/models"
	"github.com/dumeirei/dormitory-backend/internal/repository"
	"github.com/dumeirei/dormitory-backend/internal/testutil"
)

func setupRepairService(t *testing.T) *RepairService {
	conn := testutil.NewConn(t)
	ctx := context.Background()
	dorms := repository.NewDormRepository(conn)
	students := repository.NewStudentRepository(conn)

	require.NoError(t, dorms.Create(ctx, &models.Dorm{DormID: "1-101", Building: "1栋", RoomType: "4", MaxCapacity: 4}))
	require.NoError(t, students.Create(ctx, &models.Student{
		StudentID: "2024001", StudentName: "张三", Gender: models.GenderMale, Age: 20, Major: "软件工程", DormID: "1-101",
	}))

	svc := NewRepairService(repository.NewRepairRepository(conn), students, dorms, nil)
	svc.now = testutil.FixedClock(2024, 5, 20, 8, 0)
	return svc
}

func newRepair(content string) *models.Repair {
	return &models.Repair{StudentID: "2024001", DormID: "1-101", RepairContent: content}
}

func TestRepairService_StatusLifecycle(t *testing.T) {
	svc := setupRepairService(t)
	ctx := context.Background()

	r := newRepair("水龙头漏水")
	r.HandleStatus = models.RepairStatusCompleted
	require.NoError(t, svc.Add(ctx, r))
	require.NotZero(t, r.RepairID)

	got, err := svc.GetByID(ctx, r.RepairID)
	require.NoError(t, err)
	assert.Equal(t, models.RepairStatusUnhandled, got.HandleStatus)
	assert.Equal(t, "2024-05-20", got.RepairDate.String())
	assert.True(t, got.HandleDate.IsZero())

	svc.now = testutil.FixedClock(2024, 5, 21, 14, 0)
	require.NoError(t, svc.UpdateStatus(ctx, r.RepairID, models.RepairStatusHandling))
	got, err = svc.GetByID(ctx, r.RepairID)
	require.NoError(t, err)
	assert.Equal(t, models.RepairStatusHandling, got.HandleStatus)
	assert.Equal(t, "2024-05-21", got.HandleDate.String())

	err = svc.UpdateStatus(ctx, r.RepairID, models.RepairStatusUnhandled)
	assert.ErrorIs(t, err, errors.ErrRepairTransition)
	assert.Equal(t, "状态流转错误：处理中不能直接转为未处理！", svc.LastError())

	err = svc.Update(ctx, &models.Repair{RepairID: r.RepairID, StudentID: "2024001", DormID: "1-101", RepairContent: "改"})
	assert.ErrorIs(t, err, errors.ErrRepairNotEditable)
	assert.Equal(t, "修改失败：已处理/处理中的报修不允许修改基础信息！", svc.LastError())

	err = svc.Delete(ctx, r.RepairID)
	assert.ErrorIs(t, err, errors.ErrRepairNotEditable)
	assert.Equal(t, "删除失败：已处理/处理中的报修不允许删除！", svc.LastError())

	require.NoError(t, svc.UpdateStatus(ctx, r.RepairID, models.RepairStatusCompleted))
	for _, next := range []models.RepairStatus{models.RepairStatusUnhandled, models.RepairStatusHandling, models.RepairStatusCompleted} {
		assert.ErrorIs(t, svc.UpdateStatus(ctx, r.RepairID, next), errors.ErrRepairTransition)
	}
	assert.Equal(t, "状态流转错误：已完成不能直接转为已完成！", svc.LastError())
}

func TestRepairService_UnhandledToCompleted(t *testing.T) {
	svc := setupRepairService(t)
	ctx := context.Background()
	r := newRepair("灯管损坏")
	require.NoError(t, svc.Add(ctx, r))

	require.NoError(t, svc.UpdateStatus(ctx, r.RepairID, models.RepairStatusCompleted))
	got, err := svc.GetByID(ctx, r.RepairID)
	require.NoError(t, err)
	assert.Equal(t, models.RepairStatusCompleted, got.HandleStatus)
	assert.False(t, got.HandleDate.IsZero())

	err = svc.UpdateStatus(ctx, r.RepairID, models.RepairStatus(9))
	assert.ErrorIs(t, err, errors.ErrRepairTargetStatus)
	assert.Equal(t, "仅支持更新为处理中或已完成状态！", svc.LastError())

	err = svc.UpdateStatus(ctx, 999, models.RepairStatusHandling)
	assert.ErrorIs(t, err, errors.ErrRepairNotFound)
	assert.Equal(t, "更新失败：未查询到报修ID999对应的记录！", svc.LastError())
}

func TestRepairService_UpdateAndDeleteUnhandled(t *testing.T) {
	svc := setupRepairService(t)
	ctx := context.Background()
	r := newRepair("门锁损坏")
	require.NoError(t, svc.Add(ctx, r))

	update := newRepair("门锁和窗户损坏")
	update.RepairID = r.RepairID
	require.NoError(t, svc.Update(ctx, update))
	got, err := svc.GetByID(ctx, r.RepairID)
	require.NoError(t, err)
	assert.Equal(t, "门锁和窗户损坏", got.RepairContent)
	assert.Equal(t, "2024-05-20", got.RepairDate.String())

	missing := newRepair("x")
	missing.RepairID = 999
	err = svc.Update(ctx, missing)
	assert.Equal(t, "修改失败：未查询到报修ID999对应的记录！", svc.LastError())
	assert.ErrorIs(t, err, errors.ErrRepairNotFound)

	require.NoError(t, svc.Delete(ctx, r.RepairID))
	err = svc.Delete(ctx, r.RepairID)
	assert.Equal(t, "删除失败：未查询到报修ID1对应的记录！", svc.LastError())
	assert.Error(t, err)
}

func TestRepairService_Validation(t *testing.T) {
	svc := setupRepairService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		repair *models.Repair
		msg    string
	}{
		{"空内容", newRepair("  "), "报修内容不能为空！"},
		{"内容过长", newRepair(strings.Repeat("漏", 201)), "报修内容不能超过200个字符！"},
		{"学生不存在", &models.Repair{StudentID: "2024099", DormID: "1-101", RepairContent: "a"}, "学号2024099对应的学生不存在！"},
		{"宿舍不存在", &models.Repair{StudentID: "2024001", DormID: "3-301", RepairContent: "a"}, "宿舍号3-301对应的宿舍不存在！"},
		{"学号格式", &models.Repair{StudentID: "abc", DormID: "1-101", RepairContent: "a"}, "学号格式错误！"},
		{"宿舍号格式", &models.Repair{StudentID: "2024001", DormID: "101", RepairContent: "a"}, "宿舍号格式错误！"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, svc.Add(ctx, tt.repair))
			assert.Equal(t, tt.msg, svc.LastError())
		})
	}

	require.NoError(t, svc.Add(ctx, newRepair(strings.Repeat("漏", 200))))
}

func TestRepairService_FilterAndCounts(t *testing.T) {
	svc := setupRepairService(t)
	ctx := context.Background()
	var ids []int64
	for _, c := range []string{"a", "b", "c"} {
		r := newRepair(c)
		require.NoError(t, svc.Add(ctx, r))
		ids = append(ids, r.RepairID)
	}
	require.NoError(t, svc.UpdateStatus(ctx, ids[0], models.RepairStatusCompleted))
	require.NoError(t, svc.UpdateStatus(ctx, ids[1], models.RepairStatusHandling))

	n, err := svc.UnfinishedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	handling := models.RepairStatusHandling
	rows, err := svc.Filter(ctx, &models.RepairFilter{DormID: "1-101", HandleStatus: &handling}, models.NewPageParam(1, 10))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ids[1], rows[0].RepairID)

	n, err = svc.FilterCount(ctx, &models.RepairFilter{StudentID: "2024001"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	page := models.NewPageParam(5, 2)
	rows, err = svc.List(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, 2, page.PageIndex)
	require.Len(t, rows, 1)
	assert.Equal(t, ids[2], rows[0].RepairID)

	bad := models.RepairStatus(7)
	_, err = svc.Filter(ctx, &models.RepairFilter{HandleStatus: &bad}, models.NewPageParam(1, 10))
	assert.ErrorIs(t, err, errors.ErrInvalidParams)
}

func TestRepairService_NilFilter(t *testing.T) {
	svc := setupRepairService(t)
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, newRepair("水龙头漏水")))
	require.NoError(t, svc.Add(ctx, newRepair("灯不亮")))

	page := models.NewPageParam(1, 10)
	rows, err := svc.Filter(ctx, nil, page)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, int64(2), page.TotalCount)

	n, err := svc.FilterCount(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
