package repository

import (
	"context"

	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/models"
)

const dormColumns = "dorm_id, building, room_type, max_capacity, current_occupancy, dorm_manager"

// DormRepository 宿舍仓储
type DormRepository struct {
	conn *database.Conn
}

// NewDormRepository 创建宿舍仓储
func NewDormRepository(conn *database.Conn) *DormRepository {
	return &DormRepository{conn: conn}
}

// Create 创建宿舍
func (r *DormRepository) Create(ctx context.Context, dorm *models.Dorm) error {
	return r.conn.Create(ctx, dorm)
}

// Update 更新宿舍基础信息，入住人数只通过 AddOccupancy / SetOccupancy 变更
func (r *DormRepository) Update(ctx context.Context, dorm *models.Dorm) (int64, error) {
	return r.conn.Execute(ctx,
		"UPDATE dorm SET building = ?, room_type = ?, max_capacity = ?, dorm_manager = ? WHERE dorm_id = ?",
		dorm.Building, dorm.RoomType, dorm.MaxCapacity, nullable(dorm.DormManager), dorm.DormID,
	)
}

// Delete 删除没有学生入住的宿舍
func (r *DormRepository) Delete(ctx context.Context, dormID string) (int64, error) {
	return r.conn.Execute(ctx,
		"DELETE FROM dorm WHERE dorm_id = ? AND NOT EXISTS (SELECT 1 FROM student WHERE student.dorm_id = ?)",
		dormID, dormID)
}

// GetByID 根据宿舍号获取宿舍
func (r *DormRepository) GetByID(ctx context.Context, dormID string) (*models.Dorm, error) {
	return selectOne[models.Dorm](ctx, r.conn,
		"SELECT "+dormColumns+" FROM dorm WHERE dorm_id = ?", dormID)
}

// Exists 宿舍是否存在
func (r *DormRepository) Exists(ctx context.Context, dormID string) (bool, error) {
	return exists(ctx, r.conn, "SELECT COUNT(*) FROM dorm WHERE dorm_id = ?", dormID)
}

// List 分页获取宿舍列表
func (r *DormRepository) List(ctx context.Context, page *models.PageParam) ([]*models.Dorm, error) {
	var c conditions
	return selectMany[models.Dorm](ctx, r.conn,
		"SELECT "+dormColumns+" FROM dorm ORDER BY dorm_id ASC"+limitClause, c.paged(page)...)
}

// Count 宿舍总数
func (r *DormRepository) Count(ctx context.Context) (int64, error) {
	return r.conn.Count(ctx, "SELECT COUNT(*) FROM dorm")
}

// ListByBuilding 按楼栋模糊筛选
func (r *DormRepository) ListByBuilding(ctx context.Context, building string, page *models.PageParam) ([]*models.Dorm, error) {
	var c conditions
	c.and(like("building"), contains(building))
	return selectMany[models.Dorm](ctx, r.conn,
		"SELECT "+dormColumns+" FROM dorm"+c.where()+" ORDER BY dorm_id ASC"+limitClause, c.paged(page)...)
}

// CountByBuilding 按楼栋模糊筛选的总数
func (r *DormRepository) CountByBuilding(ctx context.Context, building string) (int64, error) {
	return r.conn.Count(ctx, "SELECT COUNT(*) FROM dorm WHERE "+like("building"), contains(building))
}

// CountStudents 入住该宿舍的学生数
func (r *DormRepository) CountStudents(ctx context.Context, dormID string) (int64, error) {
	return r.conn.Count(ctx, "SELECT COUNT(*) FROM student WHERE dorm_id = ?", dormID)
}

// AddOccupancy 按 delta 调整入住人数，结果超出 [0, max_capacity] 时不更新
func (r *DormRepository) AddOccupancy(ctx context.Context, dormID string, delta int) (int64, error) {
	return r.conn.Execute(ctx,
		"UPDATE dorm SET current_occupancy = current_occupancy + ? "+
			"WHERE dorm_id = ? AND current_occupancy + ? >= 0 AND current_occupancy + ? <= max_capacity",
		delta, dormID, delta, delta,
	)
}

// SetOccupancy 设置当前入住人数
func (r *DormRepository) SetOccupancy(ctx context.Context, dormID string, occupancy int) (int64, error) {
	return r.conn.Execute(ctx, "UPDATE dorm SET current_occupancy = ? WHERE dorm_id = ?", occupancy, dormID)
}

// ListOccupancyDrift 找出入住人数与学生记录不一致的宿舍
func (r *DormRepository) ListOccupancyDrift(ctx context.Context) ([]*models.OccupancyDrift, error) {
	return selectMany[models.OccupancyDrift](ctx, r.conn,
		"SELECT d.dorm_id, d.max_capacity, d.current_occupancy AS recorded, COUNT(s.student_id) AS actual "+
			"FROM dorm d LEFT JOIN student s ON s.dorm_id = d.dorm_id "+
			"GROUP BY d.dorm_id, d.max_capacity, d.current_occupancy "+
			"HAVING d.current_occupancy <> COUNT(s.student_id) "+
			"ORDER BY d.dorm_id ASC")
}

// BedStats 床位总数和已入住数
func (r *DormRepository) BedStats(ctx context.Context) (total, occupied int64, err error) {
	var row struct {
		TotalBeds    int64 `gorm:"column:total_beds"`
		OccupiedBeds int64 `gorm:"column:occupied_beds"`
	}
	err = r.conn.Select(ctx, &row,
		"SELECT COALESCE(SUM(max_capacity), 0) AS total_beds, COALESCE(SUM(current_occupancy), 0) AS occupied_beds FROM dorm")
	return row.TotalBeds, row.OccupiedBeds, err
}

// nullable 空串写入 NULL
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
