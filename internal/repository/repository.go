// Package repository 提供数据访问层，所有语句经由 database.Conn 参数化执行
package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/dumeirei/dormitory-backend/internal/common/database"
	"github.com/dumeirei/dormitory-backend/internal/models"
)

const limitClause = " LIMIT ? OFFSET ?"

// conditions 拼接 WHERE 条件及其参数
type conditions struct {
	exprs []string
	args  []interface{}
}

func (c *conditions) and(expr string, args ...interface{}) {
	c.exprs = append(c.exprs, expr)
	c.args = append(c.args, args...)
}

func (c *conditions) where() string {
	if len(c.exprs) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.exprs, " AND ")
}

// paged 在参数末尾追加 LIMIT/OFFSET
func (c *conditions) paged(page *models.PageParam) []interface{} {
	args := make([]interface{}, 0, len(c.args)+2)
	args = append(args, c.args...)
	return append(args, page.PageSize, page.Offset())
}

// likeEscaper 转义用户输入中的 LIKE 通配符，转义符 ! 在各驱动下含义一致
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// like 返回 column 的模糊匹配表达式，需配合 contains 生成的参数使用
func like(column string) string {
	return column + " LIKE ? ESCAPE '!'"
}

// contains 将 s 作为字面量包进 %...%
func contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// selectOne 查询单行，无结果时返回包装了 gorm.ErrRecordNotFound 的错误，调用方需用 errors.Is 判断
func selectOne[T any](ctx context.Context, conn *database.Conn, query string, args ...interface{}) (*T, error) {
	var rows []*T
	if err := conn.Select(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		var zero T
		return nil, fmt.Errorf("%T: %w", zero, gorm.ErrRecordNotFound)
	}
	return rows[0], nil
}

func selectMany[T any](ctx context.Context, conn *database.Conn, query string, args ...interface{}) ([]*T, error) {
	rows := make([]*T, 0)
	if err := conn.Select(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func exists(ctx context.Context, conn *database.Conn, query string, args ...interface{}) (bool, error) {
	n, err := conn.Count(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
