// Package repository 学生仓储单元测试
package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/models"
)

func TestStudentRepository_CreateAndGet(t *testing.T) {
	conn := setupTestConn(t)
	repo := NewStudentRepository(conn)
	ctx := context.Background()
	seedDorm(t, conn, "1-101", "1栋", "4")

	student := &models.Student{
		StudentID:    "2024001",
		StudentName:  "张三",
		Gender:       models.GenderMale,
		Age:          20,
		Major:        "软件工程",
		DormID:       "1-101",
		StudentPhone: "13912345678",
		CheckInDate:  models.NewDate(time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)),
	}
	require.NoError(t, repo.Create(ctx, student))

	found, err := repo.GetByID(ctx, "2024001")
	require.NoError(t, err)
	assert.Equal(t, "张三", found.StudentName)
	assert.Equal(t, "2024-09-01", found.CheckInDate.String())
	assert.Equal(t, "13912345678", found.StudentPhone)

	err = repo.Create(ctx, student)
	require.Error(t, err)
	assert.True(t, database.IsDuplicate(err))

	_, err = repo.GetByID(ctx, "2024999")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStudentRepository_UpdateDelete(t *testing.T) {
	conn := setupTestConn(t)
	repo := NewStudentRepository(conn)
	ctx := context.Background()
	seedDorm(t, conn, "1-101", "1栋", "4")
	seedDorm(t, conn, "1-102", "1栋", "4")
	student := seedStudent(t, conn, "2024001", "张三", "1-101")

	student.DormID = "1-102"
	student.Age = 21
	n, err := repo.Update(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := repo.GetByID(ctx, "2024001")
	require.NoError(t, err)
	assert.Equal(t, "1-102", found.DormID)
	assert.Equal(t, 21, found.Age)
	assert.True(t, found.CheckInDate.IsZero())

	n, err = repo.Delete(ctx, "2024001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ok, err := repo.Exists(ctx, "2024001")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStudentRepository_Search(t *testing.T) {
	conn := setupTestConn(t)
	repo := NewStudentRepository(conn)
	ctx := context.Background()
	seedDorm(t, conn, "1-101", "1栋", "4")
	seedStudent(t, conn, "2024002", "李四", "1-101")
	seedStudent(t, conn, "2024001", "张三", "1-101")
	seedStudent(t, conn, "2023001", "张小明", "1-101")

	list, err := repo.Search(ctx, "张", models.NewPageParam(1, 10))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2023001", list[0].StudentID)
	assert.Equal(t, "2024001", list[1].StudentID)

	n, err := repo.SearchCount(ctx, "2024")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err = repo.List(ctx, models.NewPageParam(2, 2))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2024002", list[0].StudentID)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestStudentRepository_ParameterizedInput(t *testing.T) {
	conn := setupTestConn(t)
	repo := NewStudentRepository(conn)
	ctx := context.Background()
	seedDorm(t, conn, "1-101", "1栋", "4")
	seedStudent(t, conn, "2024001", "张三", "1-101")

	list, err := repo.Search(ctx, "' OR '1'='1", models.NewPageParam(1, 10))
	require.NoError(t, err)
	assert.Empty(t, list)

	n, err := repo.Delete(ctx, "2024001' OR '1'='1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestStudentRepository_SearchWildcardsAreLiteral(t *testing.T) {
	conn := setupTestConn(t)
	repo := NewStudentRepository(conn)
	ctx := context.Background()
	seedDorm(t, conn, "1-101", "1栋", "4")
	seedStudent(t, conn, "2024001", "张三", "1-101")
	seedStudent(t, conn, "2024002", "李%四", "1-101")

	list, err := repo.Search(ctx, "%", models.NewPageParam(1, 10))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2024002", list[0].StudentID)

	n, err := repo.SearchCount(ctx, "%")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for _, keyword := range []string{"_", "202400_", "!"} {
		n, err = repo.SearchCount(ctx, keyword)
		require.NoError(t, err)
		assert.Zero(t, n, keyword)
	}
}
