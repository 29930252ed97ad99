package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dumeirei/dormitory-backend/internal/common/config"
	"github.com/dumeirei/dormitory-backend/internal/common/metrics"
	"github.com/dumeirei/dormitory-backend/internal/models"
	"github.com/dumeirei/dormitory-backend/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine *gin.Engine
	svc    *services
	token  string
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupServer(t *testing.T, opts ...func(*config.Config)) *testServer {
	cfg, err := config.LoadFrom("")
	require.NoError(t, err)
	cfg.Crypto.BcryptCost = bcrypt.MinCost
	cfg.JWT.Secret = "router-test-secret"
	for _, opt := range opts {
		opt(cfg)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	d := &deps{
		cfg:     cfg,
		conn:    testutil.NewConn(t),
		rdb:     rdb,
		metrics: metrics.New("test_server"),
		log:     zap.NewNop(),
	}
	svc := newServices(d)
	engine := gin.New()
	setupRouter(engine, d, svc)

	require.NoError(t, svc.admin.Create(context.Background(),
		&models.Admin{AdminID: "admin01", AdminName: "宿管"}, "admin123"))
	return &testServer{engine: engine, svc: svc}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (s *testServer) login(t *testing.T) {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/admin/auth/login",
		map[string]string{"admin_id": "admin01", "password": "admin123"})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)

	var data struct {
		Token struct {
			AccessToken string `json:"access_token"`
		} `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(t, data.Token.AccessToken)
	s.token = data.Token.AccessToken
}

func newStudentBody(id, dormID string) map[string]interface{} {
	return map[string]interface{}{
		"student_id":   id,
		"student_name": "张三",
		"gender":       "男",
		"age":          20,
		"major":        "计算机科学",
		"dorm_id":      dormID,
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := setupServer(t)

	w, _ := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
	assert.Contains(t, w.Body.String(), `"redis":"ok"`)

	w, _ = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AuthRequired(t *testing.T) {
	s := setupServer(t)

	w, _ := s.do(t, http.MethodGet, "/api/admin/dorms", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp := s.do(t, http.MethodPost, "/api/admin/auth/login",
		map[string]string{"admin_id": "admin01", "password": "wrong123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, resp.Message)

	s.login(t)
	w, resp = s.do(t, http.MethodGet, "/api/admin/auth/me", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"admin_id":"admin01"`)
	assert.NotContains(t, string(resp.Data), "admin_pwd")
}

func TestRouter_DormitoryFlow(t *testing.T) {
	s := setupServer(t)
	s.login(t)

	w, resp := s.do(t, http.MethodPost, "/api/admin/dorms", map[string]interface{}{
		"dorm_id": "1-101", "building": "1栋", "room_type": "4", "max_capacity": 4,
	})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)

	w, _ = s.do(t, http.MethodPost, "/api/admin/dorms", map[string]interface{}{
		"dorm_id": "1-101", "building": "1栋", "room_type": "4", "max_capacity": 4,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 首页统计写入缓存
	w, resp = s.do(t, http.MethodGet, "/api/admin/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"student_count":0`)

	w, resp = s.do(t, http.MethodPost, "/api/admin/students", newStudentBody("2024001", "1-101"))
	require.Equal(t, http.StatusOK, w.Code, resp.Message)

	w, resp = s.do(t, http.MethodGet, "/api/admin/dorms/1-101", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"current_occupancy":1`)

	// 变更后缓存失效
	_, resp = s.do(t, http.MethodGet, "/api/admin/dashboard", nil)
	assert.Contains(t, string(resp.Data), `"student_count":1`)
	assert.Contains(t, string(resp.Data), `"occupancy_rate":25`)

	w, _ = s.do(t, http.MethodDelete, "/api/admin/dorms/1-101", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/admin/students/2024999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = s.do(t, http.MethodGet, "/api/admin/students?keyword=%E5%BC%A0&page=1&page_size=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"total_count":1`)
}

func TestRouter_FeeAndReport(t *testing.T) {
	s := setupServer(t)
	s.login(t)

	s.do(t, http.MethodPost, "/api/admin/dorms", map[string]interface{}{
		"dorm_id": "1-101", "building": "1栋", "room_type": "4", "max_capacity": 4,
	})
	s.do(t, http.MethodPost, "/api/admin/students", newStudentBody("2024001", "1-101"))

	w, resp := s.do(t, http.MethodPost, "/api/admin/fees", map[string]interface{}{
		"student_id": "2024001", "dorm_id": "1-101", "fee_month": "2024-05",
		"water_fee": 12.5, "electric_fee": 30,
	})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	var fee models.Fee
	require.NoError(t, json.Unmarshal(resp.Data, &fee))
	assert.Equal(t, 42.5, fee.TotalFee)

	w, _ = s.do(t, http.MethodGet, "/api/admin/fees/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/admin/fees?pay_status=0", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp = s.do(t, http.MethodPut, "/api/admin/fees/"+jsonID(fee.FeeID)+"/pay", nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Message)

	w, resp = s.do(t, http.MethodGet, "/api/admin/reports/student-dorm-fee?fee_month=2024-05", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"total_fee":42.5`)

	w, _ = s.do(t, http.MethodGet, "/api/admin/reports/student-dorm-fee?fee_month=2024-5", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/admin/reports/student-dorm-fee/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType(), w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.NotZero(t, w.Body.Len())
}

func TestRouter_RepairAndVisitor(t *testing.T) {
	s := setupServer(t)
	s.login(t)

	s.do(t, http.MethodPost, "/api/admin/dorms", map[string]interface{}{
		"dorm_id": "1-101", "building": "1栋", "room_type": "4", "max_capacity": 4,
	})
	s.do(t, http.MethodPost, "/api/admin/students", newStudentBody("2024001", "1-101"))

	w, resp := s.do(t, http.MethodPost, "/api/admin/repairs", map[string]interface{}{
		"student_id": "2024001", "dorm_id": "1-101", "repair_content": "水龙头漏水",
	})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	var repair models.Repair
	require.NoError(t, json.Unmarshal(resp.Data, &repair))

	w, _ = s.do(t, http.MethodPut, "/api/admin/repairs/"+jsonID(repair.RepairID)+"/status",
		map[string]int{"handle_status": int(models.RepairStatusCompleted)})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/admin/repairs/"+jsonID(repair.RepairID)+"/status",
		map[string]int{"handle_status": int(models.RepairStatusHandling)})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, resp = s.do(t, http.MethodPost, "/api/admin/visitors", map[string]string{
		"visitor_name": "李四", "gender": "男", "id_card": "110101199001011234",
		"dorm_id": "1-101", "visit_reason": "探望同学", "visit_time": "00:00",
	})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	var visitor models.Visitor
	require.NoError(t, json.Unmarshal(resp.Data, &visitor))
	assert.Equal(t, "admin01", visitor.RegisterAdmin)

	w, resp = s.do(t, http.MethodGet, "/api/admin/visitors?status=visiting", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"total_count":1`)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestRouter_PagingFromConfig(t *testing.T) {
	s := setupServer(t, func(cfg *config.Config) {
		cfg.Business.DefaultPageSize = 2
		cfg.Business.MaxPageSize = 3
	})
	s.login(t)

	for _, id := range []string{"1-101", "1-102", "1-103", "1-104"} {
		w, resp := s.do(t, http.MethodPost, "/api/admin/dorms", map[string]interface{}{
			"dorm_id": id, "building": "1栋", "room_type": "4", "max_capacity": 4,
		})
		require.Equal(t, http.StatusOK, w.Code, resp.Message)
	}

	w, resp := s.do(t, http.MethodGet, "/api/admin/dorms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"page_size":2`)

	w, resp = s.do(t, http.MethodGet, "/api/admin/dorms?page=1&page_size=50", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"page_size":3`)
	assert.Contains(t, string(resp.Data), `"total_count":4`)
}

func xlsxContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
