// Package service 提供各业务管理器共用的分页查询
package service

import (
	"context"

	apperrors "github.com/dumeirei/dormitory-backend/internal/common/errors"
	"github.com/dumeirei/dormitory-backend/internal/models"
)

// Paginate 先统计总数并修正页码，再查询当前页
//
// 页码超过总页数时返回最后一页。
func Paginate[T any](
	ctx context.Context,
	page *models.PageParam,
	count func(ctx context.Context) (int64, error),
	list func(ctx context.Context, page *models.PageParam) ([]*T, error),
) ([]*T, error) {
	if !page.Valid() {
		return nil, apperrors.ErrPageParam
	}
	total, err := count(ctx)
	if err != nil {
		return nil, apperrors.Storage("获取总数失败：", err)
	}
	page.TotalCount = total
	page.CalcTotalPage()

	rows, err := list(ctx, page)
	if err != nil {
		return nil, apperrors.Storage("查询失败：", err)
	}
	return rows, nil
}
