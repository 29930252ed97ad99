// Package validator 提供宿舍管理各实体字段的格式校验
//
// 所有函数均为纯函数，调用方负责先去除首尾空白（见 Trim）。
package validator

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// 年份范围
const (
	MinYear      = 2020
	MaxYear      = 2100
	MaxEntryYear = 2030
)

var (
	studentIDPattern = regexp.MustCompile(`^\d{7}$`)
	phonePattern     = regexp.MustCompile(`^1[345789]\d{9}$`)
	idCardPattern    = regexp.MustCompile(`^\d{17}[\dXx]$`)
	dormIDPattern    = regexp.MustCompile(`^\d+-\d+$`)
	accountPattern   = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	monthPattern     = regexp.MustCompile(`^\d{4}-\d{2}$`)
	datePattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockPattern     = regexp.MustCompile(`^\d{2}:\d{2}$`)
	integerPattern   = regexp.MustCompile(`^[+-]?\d+$`)
	decimalPattern   = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)
)

// Trim 去除首尾空白
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// IsEmpty 去除空白后是否为空
func IsEmpty(s string) bool {
	return Trim(s) == ""
}

// LengthBetween 按字符数判断长度是否在 [min, max] 内
func LengthBetween(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}

// IsValidStudentID 学号为7位数字，前4位为入学年份 2020-2030
func IsValidStudentID(id string) bool {
	if !studentIDPattern.MatchString(id) {
		return false
	}
	year, _ := strconv.Atoi(id[:4])
	return year >= MinYear && year <= MaxEntryYear
}

// IsValidName 姓名为2-20位中文或字母
func IsValidName(name string) bool {
	if !LengthBetween(name, 2, 20) {
		return false
	}
	for _, r := range name {
		if !isASCIILetter(r) && !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return true
}

// IsValidVisitorName 访客姓名为1-20位中文或字母
func IsValidVisitorName(name string) bool {
	if !LengthBetween(name, 1, 20) {
		return false
	}
	for _, r := range name {
		if !isASCIILetter(r) && !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return true
}

// IsValidGender 性别仅支持 男/女
func IsValidGender(gender string) bool {
	return gender == "男" || gender == "女"
}

// IsValidAge 年龄 18-30
func IsValidAge(age int) bool {
	return age >= 18 && age <= 30
}

// IsValidMajor 专业为2-30位中文、字母、数字、括号或连字符
func IsValidMajor(major string) bool {
	if !LengthBetween(major, 2, 30) {
		return false
	}
	for _, r := range major {
		switch {
		case isASCIILetter(r), r >= '0' && r <= '9', unicode.Is(unicode.Han, r):
		case r == '(' || r == ')' || r == '（' || r == '）' || r == '-':
		default:
			return false
		}
	}
	return true
}

// IsValidPhone 手机号为11位数字，以13/14/15/17/18/19开头
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// IsValidIDCard 身份证号为18位，前17位数字，末位数字或X
func IsValidIDCard(idCard string) bool {
	return idCardPattern.MatchString(idCard)
}

// IsValidDormID 宿舍号为 数字-数字，长度3-10
func IsValidDormID(id string) bool {
	return len(id) >= 3 && len(id) <= 10 && dormIDPattern.MatchString(id)
}

// IsValidBuilding 楼栋为1-10位数字或中文（如 1栋、3号楼）
func IsValidBuilding(building string) bool {
	if !LengthBetween(building, 1, 10) {
		return false
	}
	for _, r := range building {
		if !(r >= '0' && r <= '9') && !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return true
}

// IsValidRoomType 房间类型仅支持 4、6、8
func IsValidRoomType(roomType string) bool {
	return roomType == "4" || roomType == "6" || roomType == "8"
}

// IsValidAdminID 管理员账号为4-20位，必须同时包含字母和数字
func IsValidAdminID(id string) bool {
	return len(id) >= 4 && len(id) <= 20 && isMixedAlnum(id)
}

// IsValidPassword 密码为6-20位，必须同时包含字母和数字
func IsValidPassword(pwd string) bool {
	return len(pwd) >= 6 && len(pwd) <= 20 && isMixedAlnum(pwd)
}

// IsValidFeeMonth 费用月份 YYYY-MM，年份 2020-2030
func IsValidFeeMonth(month string) bool {
	if !monthPattern.MatchString(month) {
		return false
	}
	year, _ := strconv.Atoi(month[:4])
	m, _ := strconv.Atoi(month[5:])
	return year >= MinYear && year <= MaxEntryYear && m >= 1 && m <= 12
}

// IsValidDate 日期 YYYY-MM-DD，年份 2020-2100，按闰年校验天数
func IsValidDate(date string) bool {
	if !datePattern.MatchString(date) {
		return false
	}
	year, _ := strconv.Atoi(date[:4])
	month, _ := strconv.Atoi(date[5:7])
	day, _ := strconv.Atoi(date[8:])
	if year < MinYear || year > MaxYear || month < 1 || month > 12 {
		return false
	}
	return day >= 1 && day <= DaysInMonth(year, month)
}

// IsValidClock 时间 HH:MM
func IsValidClock(clock string) bool {
	if !clockPattern.MatchString(clock) {
		return false
	}
	h, _ := strconv.Atoi(clock[:2])
	m, _ := strconv.Atoi(clock[3:])
	return h <= 23 && m <= 59
}

// IsLeapYear 是否闰年
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysInMonth 返回某月天数，月份非法返回 0
func DaysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 0
	}
}

// IsValidNumber 整数，允许正负号
func IsValidNumber(s string) bool {
	return integerPattern.MatchString(s)
}

// IsValidDecimal 小数，允许正负号，小数点不能在首尾且最多一个
func IsValidDecimal(s string) bool {
	return decimalPattern.MatchString(s)
}

// ParseInt 严格解析整数，整串必须合法
func ParseInt(s string) (int, bool) {
	if !IsValidNumber(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseFloat 严格解析小数，整串必须合法
func ParseFloat(s string) (float64, bool) {
	if !IsValidDecimal(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isMixedAlnum(s string) bool {
	if !accountPattern.MatchString(s) {
		return false
	}
	var letter, digit bool
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digit = true
		} else {
			letter = true
		}
	}
	return letter && digit
}
