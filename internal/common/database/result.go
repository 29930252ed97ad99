package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ResultSet 查询结果：列名、按列名索引的行以及行列计数
//
// 结果集归调用方独占，使用完毕调用 Conn.Release 释放。
type ResultSet struct {
	Fields     []string
	Rows       []map[string]string
	RowCount   uint64
	FieldCount uint32
}

// Clear 释放结果集持有的数据
func (r *ResultSet) Clear() {
	if r == nil {
		return
	}
	r.Fields = nil
	r.Rows = nil
	r.RowCount = 0
	r.FieldCount = 0
}

// Value 返回第 row 行 field 列的值，越界或列不存在返回空串
func (r *ResultSet) Value(row int, field string) string {
	if r == nil || row < 0 || row >= len(r.Rows) {
		return ""
	}
	return r.Rows[row][field]
}

func readRows(rows *sql.Rows) (*ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Fields: cols, FieldCount: uint32(len(cols))}
	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]string, len(cols))
		for i, col := range cols {
			row[col] = stringify(values[i])
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rs.RowCount = uint64(len(rs.Rows))
	return rs, nil
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(x)
	}
}

// 非驱动错误码
const (
	CodeUnknown      = -1
	CodeNotConnected = -2
	CodeTimeout      = -3
	CodeTxActive     = -4
)

// Error 数据库错误，Code 为驱动错误码（mysql 错误号、sqlite 扩展码），SQLState 为 SQLSTATE
type Error struct {
	Code     int    `json:"code"`
	SQLState string `json:"sql_state,omitempty"`
	Message  string `json:"message"`
	Err      error  `json:"-"`
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("db error %d (%s): %s", e.Code, e.SQLState, e.Message)
	}
	return fmt.Sprintf("db error %d: %s", e.Code, e.Message)
}

// Unwrap 返回驱动原始错误
func (e *Error) Unwrap() error {
	return e.Err
}

// StorageMessage 返回驱动消息，供上层拼接提示文本
func (e *Error) StorageMessage() string {
	return e.Message
}

// IsDuplicate 是否为唯一约束冲突
func (e *Error) IsDuplicate() bool {
	switch {
	case e.SQLState == "23505":
		return true
	case e.Code == 1062:
		return true
	case e.Code == int(sqlite3.ErrConstraintUnique) || e.Code == int(sqlite3.ErrConstraintPrimaryKey):
		return true
	default:
		return false
	}
}

// IsDuplicate 判断任意错误是否为唯一约束冲突
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr.IsDuplicate()
	}
	e := classify(err)
	return e.IsDuplicate()
}

var (
	// ErrNotConnected 没有可用连接且无法重连
	ErrNotConnected = &Error{Code: CodeNotConnected, Message: "数据库未连接"}
	// ErrTxActive 已有显式事务未结束
	ErrTxActive = &Error{Code: CodeTxActive, Message: "已存在未结束的事务"}
)

func classify(err error) *Error {
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code, _ := strconv.Atoi(pgErr.Code)
		return &Error{Code: code, SQLState: pgErr.Code, Message: pgErr.Message, Err: err}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return &Error{Code: int(myErr.Number), SQLState: string(myErr.SQLState[:]), Message: myErr.Message, Err: err}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return &Error{Code: int(liteErr.ExtendedCode), Message: liteErr.Error(), Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeTimeout, Message: "语句执行超时", Err: err}
	}

	return &Error{Code: CodeUnknown, Message: err.Error(), Err: err}
}

func isConnectionLost(err error) bool {
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, mysql.ErrInvalidConn)
}

var tablePattern = regexp.MustCompile(`(?i)\b(?:from|into|update|table)\s+["` + "`" + `]?([a-z_][a-z0-9_]*)`)

// tableOf 从语句中提取首个表名，用于指标标签
func tableOf(query string) string {
	m := tablePattern.FindStringSubmatch(query)
	if len(m) < 2 {
		return "unknown"
	}
	return strings.ToLower(m[1])
}
