package models

// Admin 管理员模型
type Admin struct {
	AdminID   string   `gorm:"column:admin_id;primaryKey;type:varchar(20)" json:"admin_id"`
	AdminName string   `gorm:"column:admin_name;type:varchar(20)" json:"admin_name"`
	Password  string   `gorm:"column:admin_pwd;type:varchar(100);not null" json:"-"`
	CreatedAt DateTime `gorm:"column:created_at;type:varchar(19)" json:"created_at"`
}

// TableName 表名
func (Admin) TableName() string {
	return "admin"
}
