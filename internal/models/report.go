package models

// StudentDormFee 学生-宿舍-费用联合查询行，宿舍和费用列在左连接无匹配时为空
type StudentDormFee struct {
	StudentID   string     `gorm:"column:student_id" json:"student_id"`
	StudentName string     `gorm:"column:student_name" json:"student_name"`
	Gender      string     `gorm:"column:gender" json:"gender"`
	Major       string     `gorm:"column:major" json:"major"`
	DormID      string     `gorm:"column:dorm_id" json:"dorm_id"`
	Building    *string    `gorm:"column:building" json:"building"`
	RoomType    *string    `gorm:"column:room_type" json:"room_type"`
	FeeID       *int64     `gorm:"column:fee_id" json:"fee_id"`
	FeeMonth    *string    `gorm:"column:fee_month" json:"fee_month"`
	WaterFee    *float64   `gorm:"column:water_fee" json:"water_fee"`
	ElectricFee *float64   `gorm:"column:electric_fee" json:"electric_fee"`
	TotalFee    *float64   `gorm:"column:total_fee" json:"total_fee"`
	PayStatus   *PayStatus `gorm:"column:pay_status" json:"pay_status"`
	PayDate     Date       `gorm:"column:pay_date" json:"pay_date"`
}

// DashboardStats 首页统计
type DashboardStats struct {
	StudentCount      int64   `json:"student_count"`
	DormCount         int64   `json:"dorm_count"`
	TotalBeds         int64   `json:"total_beds"`
	OccupiedBeds      int64   `json:"occupied_beds"`
	OccupancyRate     float64 `json:"occupancy_rate"`
	UnpaidFeeCount    int64   `json:"unpaid_fee_count"`
	UnfinishedRepairs int64   `json:"unfinished_repairs"`
	ActiveVisitors    int64   `json:"active_visitors"`
}

// AllModels 返回需要迁移的全部表
func AllModels() []interface{} {
	return []interface{}{
		&Dorm{},
		&Student{},
		&Fee{},
		&Repair{},
		&Visitor{},
		&Admin{},
	}
}

// OccupancyDrift 宿舍记录的入住人数与实际学生数不一致
type OccupancyDrift struct {
	DormID      string `gorm:"column:dorm_id" json:"dorm_id"`
	MaxCapacity int    `gorm:"column:max_capacity" json:"max_capacity"`
	Recorded    int    `gorm:"column:recorded" json:"recorded"`
	Actual      int    `gorm:"column:actual" json:"actual"`
}
