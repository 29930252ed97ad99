// Package response 统一响应格式单元测试
package response

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/dormitory-backend/internal/common/errors"
	"github.com/dumeirei/dormitory-backend/internal/models"
)

func setupTest() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// ==================== Success 测试 ====================

func TestSuccess(t *testing.T) {
	c, w := setupTest()
	Success(c, map[string]string{"dorm_id": "1-101"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse(t, w)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.NotNil(t, resp.Data)
}

func TestSuccessWithMessage(t *testing.T) {
	c, w := setupTest()
	SuccessWithMessage(c, "添加成功", nil)

	resp := parseResponse(t, w)
	assert.Equal(t, "添加成功", resp.Message)
	assert.Nil(t, resp.Data)
}

func TestSuccessPage(t *testing.T) {
	c, w := setupTest()
	page := models.NewPageParam(2, 10)
	page.TotalCount = 25
	page.CalcTotalPage()

	SuccessPage(c, []string{"a", "b"}, page)

	var body struct {
		Data PageData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.PageIndex)
	assert.Equal(t, 10, body.Data.PageSize)
	assert.Equal(t, int64(25), body.Data.TotalCount)
	assert.Equal(t, 3, body.Data.TotalPage)
}

// ==================== Error 测试 ====================

func TestError_StatusByKind(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"格式错误", errors.ErrInvalidParams.WithMessage("学号格式错误！"), http.StatusBadRequest},
		{"分页错误", errors.ErrPageParam, http.StatusBadRequest},
		{"不存在", errors.ErrStudentNotFound, http.StatusNotFound},
		{"重复", errors.ErrDormExists, http.StatusConflict},
		{"状态错误", errors.ErrFeePaidImmutable, http.StatusConflict},
		{"未登录", errors.ErrUnauthorized, http.StatusUnauthorized},
		{"账号锁定", errors.ErrAccountLocked, http.StatusTooManyRequests},
		{"存储错误", errors.ErrDatabaseError, http.StatusServiceUnavailable},
		{"普通错误", stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := setupTest()
			Error(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestError_Body(t *testing.T) {
	c, w := setupTest()
	Error(c, errors.ErrDormOccupied)

	resp := parseResponse(t, w)
	assert.Equal(t, errors.ErrDormOccupied.Code, resp.Code)
	assert.Equal(t, "删除失败：该宿舍仍有关联学生，请先处理学生入住信息！", resp.Message)
}

func TestBadRequestAndUnauthorized(t *testing.T) {
	c, w := setupTest()
	BadRequest(c, "请求参数错误")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrInvalidParams.Code, parseResponse(t, w).Code)

	c, w = setupTest()
	Unauthorized(c, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "未登录", parseResponse(t, w).Message)

	c, w = setupTest()
	InternalError(c, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "内部错误", parseResponse(t, w).Message)
}
