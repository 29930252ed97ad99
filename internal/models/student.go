package models

// Student 学生模型
type Student struct {
	StudentID    string `gorm:"column:student_id;primaryKey;type:varchar(7)" json:"student_id"`
	StudentName  string `gorm:"column:student_name;type:varchar(20);not null;index" json:"student_name"`
	Gender       string `gorm:"column:gender;type:varchar(4);not null" json:"gender"`
	Age          int    `gorm:"column:age;not null" json:"age"`
	Major        string `gorm:"column:major;type:varchar(30);not null" json:"major"`
	DormID       string `gorm:"column:dorm_id;type:varchar(10);not null;index" json:"dorm_id"`
	StudentPhone string `gorm:"column:student_phone;type:varchar(11)" json:"student_phone"`
	CheckInDate  Date   `gorm:"column:check_in_date;type:varchar(10)" json:"check_in_date"`
}

// TableName 表名
func (Student) TableName() string {
	return "student"
}

// 性别
const (
	GenderMale   = "男"
	GenderFemale = "女"
)
