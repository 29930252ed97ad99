// Package repository 宿舍仓储单元测试
package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dumeirei/dormitory-backend/internal/models"
)

func TestDormRepository_CreateAndGet(t *testing.T) {
	conn := setupTestConn(t)
	repo := NewDormRepository(conn)
	ctx := context.Background()

	dorm := &models.Dorm{DormID: "1-101", Building: "1栋", RoomType: "4", MaxCapacity: 4, DormManager: "13800138000"}
	require.NoError(t, repo.Create(ctx, dorm))

	found, err := repo.GetByID(ctx, "1-101")
	require.NoError(t, err)
	assert.Equal(t, "1栋", found.Building)
	assert.Equal(t, 4, found.MaxCapacity)
	assert.Equal(t, "13800138000", found.DormManager)

	_, err = repo.GetByID(ctx, "9-999")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NotEqual(t, gorm.ErrRecordNotFound, err, "未找到应带上实体类型")
	assert.Contains(t, err.Error(), "models.Dorm")

	ok, err := repo.Exists(ctx, "1-101")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDormRepository_UpdateKeepsOccupancy(t *testing.T) {
	conn := setupTestConn(t)
	repo := NewDormRepository(conn)
	ctx := context.Background()
	seedDorm(t, conn, "1-101", "1栋", "4")

	_, err := repo.SetOccupancy(ctx, "1-101", 2)
	require.NoError(t, err)

	n, err := repo.Update(ctx, &models.Dorm{DormID: "1-101", Building: "2栋", RoomType: "6", MaxCapacity: 6, CurrentOccupancy: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := repo.GetByID(ctx, "1-101")
	require.NoError(t, err)
	assert.Equal(t, "2栋", found.Building)
	assert.Equal(t, 6, found.MaxCapacity)
	assert.Equal(t, 2, found.CurrentOccupancy)
	assert.Empty(t, found.DormManager)
}

func TestDormRepository_ListAndBuilding(t *testing.T) {
	conn := setupTestConn(t)
	repo := NewDormRepository(conn)
	ctx := context.Background()

	seedDorm(t, conn, "2-101", "2栋", "6")
	seedDorm(t, conn, "1-102", "1栋", "4")
	seedDorm(t, conn, "1-101", "1栋", "8")

	list, err := repo.List(ctx, models.NewPageParam(1, 2))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1-101", list[0].DormID)
	assert.Equal(t, "1-102", list[1].DormID)

	list, err = repo.List(ctx, models.NewPageParam(2, 2))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2-101", list[0].DormID)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	list, err = repo.ListByBuilding(ctx, "1", models.NewPageParam(1, 10))
	require.NoError(t, err)
	assert.Len(t, list, 2)

	n, err := repo.CountByBuilding(ctx, "2栋")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDormRepository_OccupancyDrift(t *testing.T) {
	conn := setupTestConn(t)
	repo := NewDormRepository(conn)
	ctx := context.Background()

	seedDorm(t, conn, "1-101", "1栋", "4")
	seedDorm(t, conn, "1-102", "1栋", "4")
	seedStudent(t, conn, "2024001", "张三", "1-101")
	seedStudent(t, conn, "2024002", "李四", "1-101")
	_, err := repo.SetOccupancy(ctx, "1-101", 2)
	require.NoError(t, err)
	_, err = repo.SetOccupancy(ctx, "1-102", 3)
	require.NoError(t, err)

	drift, err := repo.ListOccupancyDrift(ctx)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, "1-102", drift[0].DormID)
	assert.Equal(t, 3, drift[0].Recorded)
	assert.Equal(t, 0, drift[0].Actual)

	n, err := repo.CountStudents(ctx, "1-101")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	total, occupied, err := repo.BedStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), total)
	assert.Equal(t, int64(5), occupied)
}

func TestDormRepository_Delete(t *testing.T) {
	conn := setupTestConn(t)
	repo := NewDormRepository(conn)
	ctx := context.Background()
	seedDorm(t, conn, "1-101", "1栋", "4")
	seedDorm(t, conn, "1-102", "1栋", "4")
	seedStudent(t, conn, "2024001", "张三", "1-102")

	n, err := repo.Delete(ctx, "1-102")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.Delete(ctx, "1-101")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Delete(ctx, "1-101")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestDormRepository_AddOccupancyBounds(t *testing.T) {
	conn := setupTestConn(t)
	repo := NewDormRepository(conn)
	ctx := context.Background()
	seedDorm(t, conn, "1-101", "1栋", "4")

	n, err := repo.AddOccupancy(ctx, "1-101", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.AddOccupancy(ctx, "1-101", 1)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.AddOccupancy(ctx, "1-101", -5)
	require.NoError(t, err)
	assert.Zero(t, n)

	found, err := repo.GetByID(ctx, "1-101")
	require.NoError(t, err)
	assert.Equal(t, 4, found.CurrentOccupancy)
}

func TestDormRepository_BuildingWildcardsAreLiteral(t *testing.T) {
	conn := setupTestConn(t)
	repo := NewDormRepository(conn)
	ctx := context.Background()
	seedDorm(t, conn, "1-101", "1栋", "4")
	seedDorm(t, conn, "2-101", "2栋", "4")

	n, err := repo.CountByBuilding(ctx, "_栋")
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err := repo.ListByBuilding(ctx, "%", models.NewPageParam(1, 10))
	require.NoError(t, err)
	assert.Empty(t, list)
}
