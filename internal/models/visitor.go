package models

// Visitor 访客登记模型
type Visitor struct {
	VisitorID     int64    `gorm:"column:visitor_id;primaryKey;autoIncrement" json:"visitor_id"`
	VisitorName   string   `gorm:"column:visitor_name;type:varchar(20);not null" json:"visitor_name"`
	Gender        string   `gorm:"column:gender;type:varchar(4);not null" json:"gender"`
	IDCard        string   `gorm:"column:id_card;type:varchar(18);not null" json:"id_card"`
	DormID        string   `gorm:"column:dorm_id;type:varchar(10);not null;index" json:"dorm_id"`
	VisitReason   string   `gorm:"column:visit_reason;type:varchar(100);not null" json:"visit_reason"`
	VisitTime     DateTime `gorm:"column:visit_time;type:varchar(19);not null" json:"visit_time"`
	LeaveTime     DateTime `gorm:"column:leave_time;type:varchar(19)" json:"leave_time"`
	RegisterAdmin string   `gorm:"column:register_admin;type:varchar(20)" json:"register_admin"`
}

// TableName 表名
func (Visitor) TableName() string {
	return "visitor"
}

// HasLeft 是否已登记离开
func (v *Visitor) HasLeft() bool {
	return !v.LeaveTime.IsZero()
}

// VisitStatus 访客状态筛选
type VisitStatus string

const (
	VisitStatusAll      VisitStatus = ""
	VisitStatusVisiting VisitStatus = "visiting" // 未离开
	VisitStatusLeft     VisitStatus = "left"     // 已离开
)
