package models

// Repair 报修模型
type Repair struct {
	RepairID      int64        `gorm:"column:repair_id;primaryKey;autoIncrement" json:"repair_id"`
	StudentID     string       `gorm:"column:student_id;type:varchar(7);not null;index" json:"student_id"`
	DormID        string       `gorm:"column:dorm_id;type:varchar(10);not null;index" json:"dorm_id"`
	RepairContent string       `gorm:"column:repair_content;type:varchar(200);not null" json:"repair_content"`
	RepairDate    Date         `gorm:"column:repair_date;type:varchar(10);not null" json:"repair_date"`
	HandleStatus  RepairStatus `gorm:"column:handle_status;type:smallint;not null" json:"handle_status"`
	HandleDate    Date         `gorm:"column:handle_date;type:varchar(10)" json:"handle_date"`
}

// TableName 表名
func (Repair) TableName() string {
	return "repair"
}

// RepairStatus 报修处理状态
type RepairStatus int8

const (
	RepairStatusUnhandled RepairStatus = 0 // 未处理
	RepairStatusHandling  RepairStatus = 1 // 处理中
	RepairStatusCompleted RepairStatus = 2 // 已完成
)

// String 返回状态名称
func (s RepairStatus) String() string {
	switch s {
	case RepairStatusUnhandled:
		return "未处理"
	case RepairStatusHandling:
		return "处理中"
	case RepairStatusCompleted:
		return "已完成"
	default:
		return "未知"
	}
}

// Valid 是否为合法状态
func (s RepairStatus) Valid() bool {
	return s >= RepairStatusUnhandled && s <= RepairStatusCompleted
}

// CanTransitionTo 状态只能前进：未处理->处理中，处理中->已完成，未处理->已完成
func (s RepairStatus) CanTransitionTo(next RepairStatus) bool {
	switch s {
	case RepairStatusUnhandled:
		return next == RepairStatusHandling || next == RepairStatusCompleted
	case RepairStatusHandling:
		return next == RepairStatusCompleted
	default:
		return false
	}
}
