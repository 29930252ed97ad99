package repository

import (
	"context"

	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/models"
)

const studentColumns = "student_id, student_name, gender, age, major, dorm_id, student_phone, check_in_date"

// StudentRepository 学生仓储
type StudentRepository struct {
	conn *database.Conn
}

// NewStudentRepository 创建学生仓储
func NewStudentRepository(conn *database.Conn) *StudentRepository {
	return &StudentRepository{conn: conn}
}

// Create 创建学生
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	_, err := r.conn.Execute(ctx,
		"INSERT INTO student ("+studentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		student.StudentID, student.StudentName, student.Gender, student.Age, student.Major,
		student.DormID, nullable(student.StudentPhone), student.CheckInDate,
	)
	return err
}

// Update 更新学生信息，学号不可修改
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) (int64, error) {
	return r.conn.Execute(ctx,
		"UPDATE student SET student_name = ?, gender = ?, age = ?, major = ?, dorm_id = ?, student_phone = ?, check_in_date = ? WHERE student_id = ?",
		student.StudentName, student.Gender, student.Age, student.Major, student.DormID,
		nullable(student.StudentPhone), student.CheckInDate, student.StudentID,
	)
}

// Delete 删除学生
func (r *StudentRepository) Delete(ctx context.Context, studentID string) (int64, error) {
	return r.conn.Execute(ctx, "DELETE FROM student WHERE student_id = ?", studentID)
}

// GetByID 根据学号获取学生
func (r *StudentRepository) GetByID(ctx context.Context, studentID string) (*models.Student, error) {
	return selectOne[models.Student](ctx, r.conn,
		"SELECT "+studentColumns+" FROM student WHERE student_id = ?", studentID)
}

// Exists 学生是否存在
func (r *StudentRepository) Exists(ctx context.Context, studentID string) (bool, error) {
	return exists(ctx, r.conn, "SELECT COUNT(*) FROM student WHERE student_id = ?", studentID)
}

// List 分页获取学生列表
func (r *StudentRepository) List(ctx context.Context, page *models.PageParam) ([]*models.Student, error) {
	var c conditions
	return selectMany[models.Student](ctx, r.conn,
		"SELECT "+studentColumns+" FROM student ORDER BY student_id ASC"+limitClause, c.paged(page)...)
}

// Count 学生总数
func (r *StudentRepository) Count(ctx context.Context) (int64, error) {
	return r.conn.Count(ctx, "SELECT COUNT(*) FROM student")
}

// Search 按学号或姓名模糊查询
func (r *StudentRepository) Search(ctx context.Context, keyword string, page *models.PageParam) ([]*models.Student, error) {
	var c conditions
	c.and("("+like("student_id")+" OR "+like("student_name")+")", contains(keyword), contains(keyword))
	return selectMany[models.Student](ctx, r.conn,
		"SELECT "+studentColumns+" FROM student"+c.where()+" ORDER BY student_id ASC"+limitClause, c.paged(page)...)
}

// SearchCount 模糊查询结果总数
func (r *StudentRepository) SearchCount(ctx context.Context, keyword string) (int64, error) {
	return r.conn.Count(ctx,
		"SELECT COUNT(*) FROM student WHERE "+like("student_id")+" OR "+like("student_name"),
		contains(keyword), contains(keyword))
}
