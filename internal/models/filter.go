package models

// FeeFilter 费用筛选条件，空字段不参与筛选
type FeeFilter struct {
	StudentID string     `form:"student_id"`
	DormID    string     `form:"dorm_id"`
	PayStatus *PayStatus `form:"pay_status"`
}

// RepairFilter 报修筛选条件
type RepairFilter struct {
	StudentID    string        `form:"student_id"`
	DormID       string        `form:"dorm_id"`
	HandleStatus *RepairStatus `form:"handle_status"`
}

// VisitorFilter 访客筛选条件，StudentID 匹配该生所在宿舍的访客
type VisitorFilter struct {
	StudentID string      `form:"student_id"`
	DormID    string      `form:"dorm_id"`
	Status    VisitStatus `form:"status"`
}

// StudentDormFeeFilter 学生-宿舍-费用联合查询条件
//
// StudentID、DormID 为模糊匹配，FeeMonth 为精确匹配；
// PayStatus 非空时同时保留没有费用记录的学生。
type StudentDormFeeFilter struct {
	StudentID string     `form:"student_id"`
	DormID    string     `form:"dorm_id"`
	FeeMonth  string     `form:"fee_month"`
	PayStatus *PayStatus `form:"pay_status"`
}
