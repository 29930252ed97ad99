package models

import (
	"fmt"
	"strings"
)

// Fee 水电费模型
type Fee struct {
	FeeID       int64     `gorm:"column:fee_id;primaryKey;autoIncrement" json:"fee_id"`
	StudentID   string    `gorm:"column:student_id;type:varchar(7);not null;uniqueIndex:uk_fee_student_month,priority:1" json:"student_id"`
	DormID      string    `gorm:"column:dorm_id;type:varchar(10);not null;index" json:"dorm_id"`
	FeeMonth    string    `gorm:"column:fee_month;type:varchar(7);not null;uniqueIndex:uk_fee_student_month,priority:2" json:"fee_month"`
	WaterFee    float64   `gorm:"column:water_fee;type:decimal(10,2);not null" json:"water_fee"`
	ElectricFee float64   `gorm:"column:electric_fee;type:decimal(10,2);not null" json:"electric_fee"`
	TotalFee    float64   `gorm:"column:total_fee;type:decimal(10,2);not null" json:"total_fee"`
	PayStatus   PayStatus `gorm:"column:pay_status;type:smallint;not null" json:"pay_status"`
	PayDate     Date      `gorm:"column:pay_date;type:varchar(10)" json:"pay_date"`
}

// TableName 表名
func (Fee) TableName() string {
	return "fee"
}

// DisplayNo 展示编号 F+YYYYMM+4位序号
func (f *Fee) DisplayNo() string {
	return fmt.Sprintf("F%s%04d", strings.ReplaceAll(f.FeeMonth, "-", ""), f.FeeID%10000)
}

// PayStatus 缴费状态
type PayStatus int8

const (
	PayStatusUnpaid PayStatus = 0 // 未缴费
	PayStatusPaid   PayStatus = 1 // 已缴费
)

// String 返回状态名称
func (s PayStatus) String() string {
	switch s {
	case PayStatusUnpaid:
		return "未缴费"
	case PayStatusPaid:
		return "已缴费"
	default:
		return "未知"
	}
}

// Valid 是否为合法状态
func (s PayStatus) Valid() bool {
	return s == PayStatusUnpaid || s == PayStatusPaid
}
