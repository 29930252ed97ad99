package repository

import (
	"context"

	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/models"
)

// AdminRepository 管理员仓储
type AdminRepository struct {
	conn *database.Conn
}

// NewAdminRepository 创建管理员仓储
func NewAdminRepository(conn *database.Conn) *AdminRepository {
	return &AdminRepository{conn: conn}
}

// Create 创建管理员
func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	return r.conn.Create(ctx, admin)
}

// GetByID 根据账号获取管理员
func (r *AdminRepository) GetByID(ctx context.Context, adminID string) (*models.Admin, error) {
	return selectOne[models.Admin](ctx, r.conn,
		"SELECT admin_id, admin_name, admin_pwd, created_at FROM admin WHERE admin_id = ?", adminID)
}

// Exists 账号是否存在
func (r *AdminRepository) Exists(ctx context.Context, adminID string) (bool, error) {
	return exists(ctx, r.conn, "SELECT COUNT(*) FROM admin WHERE admin_id = ?", adminID)
}

// UpdatePassword 更新密码哈希
func (r *AdminRepository) UpdatePassword(ctx context.Context, adminID, passwordHash string) (int64, error) {
	return r.conn.Execute(ctx, "UPDATE admin SET admin_pwd = ? WHERE admin_id = ?", passwordHash, adminID)
}
