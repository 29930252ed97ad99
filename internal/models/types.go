package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// 日期时间文本格式
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	MonthLayout    = "2006-01"
	ClockLayout    = "15:04"
)

// Date 日期，以 YYYY-MM-DD 文本存储，零值对应 NULL
type Date struct {
	time.Time
}

// NewDate 取 t 的年月日构造日期
func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

// String 返回 YYYY-MM-DD，零值返回空串
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Value 实现 driver.Valuer 接口
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format(DateLayout), nil
}

// Scan 实现 sql.Scanner 接口
func (d *Date) Scan(value interface{}) error {
	t, err := scanTime(value, DateLayout)
	if err != nil {
		return err
	}
	if t.IsZero() {
		*d = Date{}
		return nil
	}
	*d = NewDate(t)
	return nil
}

// MarshalJSON 实现 json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON 实现 json.Unmarshaler
func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateTime 日期时间，以 YYYY-MM-DD HH:MM:SS 文本存储，零值对应 NULL
type DateTime struct {
	time.Time
}

// NewDateTime 截断到秒构造日期时间
func NewDateTime(t time.Time) DateTime {
	return DateTime{time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}
}

// CombineClock 将 HH:MM 与指定日期合并
func CombineClock(day time.Time, clock string) (DateTime, error) {
	c, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return DateTime{}, err
	}
	return DateTime{time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), 0, 0, time.UTC)}, nil
}

// String 返回 YYYY-MM-DD HH:MM:SS，零值返回空串
func (t DateTime) String() string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateTimeLayout)
}

// Clock 返回 HH:MM
func (t DateTime) Clock() string {
	if t.IsZero() {
		return ""
	}
	return t.Format(ClockLayout)
}

// SameDay 判断两个时间是否在同一天
func (t DateTime) SameDay(o DateTime) bool {
	return t.Year() == o.Year() && t.YearDay() == o.YearDay()
}

// Value 实现 driver.Valuer 接口
func (t DateTime) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.Format(DateTimeLayout), nil
}

// Scan 实现 sql.Scanner 接口
func (t *DateTime) Scan(value interface{}) error {
	parsed, err := scanTime(value, DateTimeLayout)
	if err != nil {
		return err
	}
	if parsed.IsZero() {
		*t = DateTime{}
		return nil
	}
	*t = NewDateTime(parsed)
	return nil
}

// MarshalJSON 实现 json.Marshaler
func (t DateTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON 实现 json.Unmarshaler
func (t *DateTime) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*t = DateTime{}
		return nil
	}
	parsed, err := time.Parse(DateTimeLayout, *s)
	if err != nil {
		return err
	}
	*t = DateTime{parsed}
	return nil
}

func scanTime(value interface{}, layout string) (time.Time, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case []byte:
		return parseStored(string(v), layout)
	case string:
		return parseStored(v, layout)
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", value)
	}
}

func parseStored(s, layout string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(layout, s); err == nil {
		return t, nil
	}
	// 兼容已有库表中的 DATE/DATETIME 列
	for _, l := range []string{DateTimeLayout, DateLayout, time.RFC3339} {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time value %q", s)
}

// PageParam 分页参数
type PageParam struct {
	PageIndex  int   `json:"page_index" form:"page"`
	PageSize   int   `json:"page_size" form:"page_size"`
	TotalCount int64 `json:"total_count"`
	TotalPage  int   `json:"total_page"`
}

// 默认分页
const (
	DefaultPageIndex = 1
	DefaultPageSize  = 10
)

// NewPageParam 创建分页参数，非正数取默认值
func NewPageParam(index, size int) *PageParam {
	if index <= 0 {
		index = DefaultPageIndex
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	return &PageParam{PageIndex: index, PageSize: size}
}

// Valid 页码和每页条数均为正数
func (p *PageParam) Valid() bool {
	return p != nil && p.PageIndex > 0 && p.PageSize > 0
}

// Offset 返回 (PageIndex-1)*PageSize
func (p *PageParam) Offset() int {
	return (p.PageIndex - 1) * p.PageSize
}

// CalcTotalPage 根据 TotalCount 计算总页数并将页码限制在 [1, TotalPage]
func (p *PageParam) CalcTotalPage() {
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	p.TotalPage = int((p.TotalCount + int64(p.PageSize) - 1) / int64(p.PageSize))
	if p.TotalPage < 1 {
		p.TotalPage = 1
	}
	if p.PageIndex > p.TotalPage {
		p.PageIndex = p.TotalPage
	}
	if p.PageIndex < 1 {
		p.PageIndex = 1
	}
}
