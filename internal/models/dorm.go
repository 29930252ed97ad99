package models

// Dorm 宿舍模型
type Dorm struct {
	DormID           string `gorm:"column:dorm_id;primaryKey;type:varchar(10)" json:"dorm_id"`
	Building         string `gorm:"column:building;type:varchar(20);not null;index" json:"building"`
	RoomType         string `gorm:"column:room_type;type:varchar(2);not null" json:"room_type"`
	MaxCapacity      int    `gorm:"column:max_capacity;not null" json:"max_capacity"`
	CurrentOccupancy int    `gorm:"column:current_occupancy;not null" json:"current_occupancy"`
	DormManager      string `gorm:"column:dorm_manager;type:varchar(11)" json:"dorm_manager"`
}

// TableName 表名
func (Dorm) TableName() string {
	return "dorm"
}

// 房间类型
const (
	RoomTypeFour  = "4"
	RoomTypeSix   = "6"
	RoomTypeEight = "8"
)

// RoomCapacity 返回房间类型对应的床位数，未知类型返回 0
func RoomCapacity(roomType string) int {
	switch roomType {
	case RoomTypeFour:
		return 4
	case RoomTypeSix:
		return 6
	case RoomTypeEight:
		return 8
	default:
		return 0
	}
}

// Available 剩余床位
func (d *Dorm) Available() int {
	return d.MaxCapacity - d.CurrentOccupancy
}

// IsFull 是否已住满
func (d *Dorm) IsFull() bool {
	return d.CurrentOccupancy >= d.MaxCapacity
}
