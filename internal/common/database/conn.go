package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/dormitory-backend/internal/common/config"
	"github.com/dumeirei/dormitory-backend/internal/common/logger"
	"github.com/dumeirei/dormitory-backend/internal/common/metrics"
	"github.com/dumeirei/dormitory-backend/internal/common/tracing"
)

// Conn 数据库连接管理器
//
// 进程内只创建一个实例，在启动时 Connect、退出时 Disconnect，并注入到各个仓储。
// 所有语句由互斥锁串行执行；连接断开时自动用保存的连接参数重连一次后重试。
// 未显式开启事务时每条语句自动提交。
type Conn struct {
	mu      sync.Mutex
	db      *gorm.DB
	tx      *gorm.DB
	cfg     *config.DatabaseConfig
	dialect DialectorFunc
	log     *zap.Logger
	metrics *metrics.Metrics

	errMu   sync.RWMutex
	lastErr Error
}

// Option 连接管理器选项
type Option func(*Conn)

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) Option {
	return func(c *Conn) {
		c.log = l
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Conn) {
		c.metrics = m
	}
}

// WithDialector 替换方言构造函数，测试中用于接入 sqlmock
func WithDialector(fn DialectorFunc) Option {
	return func(c *Conn) {
		c.dialect = fn
	}
}

// New 创建连接管理器，此时尚未连接
func New(opts ...Option) *Conn {
	c := &Conn{dialect: DefaultDialector}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("database")
	}
	return c
}

// Connect 按配置建立连接并保存连接参数供重连使用
func (c *Conn) Connect(ctx context.Context, cfg *config.DatabaseConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := *cfg
	c.cfg = &stored
	c.closeLocked()

	db, err := open(ctx, c.cfg, c.dialect, c.log)
	if err != nil {
		return c.record(err, "CONNECT")
	}
	c.db = db
	c.log.Info("数据库已连接",
		zap.String("driver", cfg.Driver),
		zap.String("host", cfg.Host),
		zap.String("name", cfg.Name),
	)
	return c.record(nil, "")
}

// Disconnect 关闭连接，未提交的显式事务会被回滚
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.closeLocked()
	c.log.Info("数据库连接已关闭")
	return err
}

// Reconnect 关闭当前连接并使用保存的连接参数重新连接
func (c *Conn) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record(c.reconnectLocked(ctx), "RECONNECT")
}

// IsConnected 是否持有可用连接
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db != nil
}

// Ping 检查连接可用性
func (c *Conn) Ping(ctx context.Context) error {
	return c.run(ctx, "ping", "PING", func(db *gorm.DB) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(db.Statement.Context)
	})
}

// Execute 执行写语句，返回影响行数；失败时返回 -1 和错误
func (c *Conn) Execute(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var affected int64
	err := c.run(ctx, "execute", query, func(db *gorm.DB) error {
		res := db.Exec(query, args...)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return -1, err
	}
	return affected, nil
}

// Query 执行查询，返回按列名索引的字符串结果集
func (c *Conn) Query(ctx context.Context, query string, args ...interface{}) (*ResultSet, error) {
	var rs *ResultSet
	err := c.run(ctx, "query", query, func(db *gorm.DB) error {
		rows, err := db.Raw(query, args...).Rows()
		if err != nil {
			return err
		}
		defer rows.Close()
		rs, err = readRows(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// Select 执行查询并按 gorm 模型的列定义解码到 dest（结构体、切片或基础类型指针）
func (c *Conn) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return c.run(ctx, "query", query, func(db *gorm.DB) error {
		return db.Raw(query, args...).Scan(dest).Error
	})
}

// Count 执行返回单个整数的查询，如 SELECT COUNT(*)
func (c *Conn) Count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := c.Select(ctx, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}

// Create 插入一条记录，自增主键由数据库生成并回填到 value
func (c *Conn) Create(ctx context.Context, value interface{}) error {
	query := "INSERT INTO " + tableNameOf(value)
	return c.run(ctx, "insert", query, func(db *gorm.DB) error {
		return db.Create(value).Error
	})
}

// AutoMigrate 根据模型创建或更新表结构
func (c *Conn) AutoMigrate(ctx context.Context, models ...interface{}) error {
	return c.run(ctx, "migrate", "MIGRATE", func(db *gorm.DB) error {
		return db.AutoMigrate(models...)
	})
}

// Begin 开启显式事务，之后未携带事务上下文的语句都在该事务中执行
func (c *Conn) Begin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLocked(ctx); err != nil {
		return c.record(err, "BEGIN")
	}
	if c.tx != nil {
		return c.record(ErrTxActive, "BEGIN")
	}
	tx := c.db.WithContext(context.WithoutCancel(ctx)).Begin()
	if tx.Error != nil {
		return c.record(tx.Error, "BEGIN")
	}
	c.tx = tx
	return c.record(nil, "")
}

// Commit 提交显式事务；没有进行中的事务时视为成功
func (c *Conn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx == nil {
		return c.record(nil, "")
	}
	err := c.tx.Commit().Error
	c.tx = nil
	return c.record(err, "COMMIT")
}

// Rollback 回滚显式事务；没有进行中的事务时视为成功
func (c *Conn) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx == nil {
		return c.record(nil, "")
	}
	err := c.tx.Rollback().Error
	c.tx = nil
	return c.record(err, "ROLLBACK")
}

type txKey struct {
	conn *Conn
}

// Transaction 在事务中执行 fn，fn 返回错误时回滚
//
// fn 收到的 ctx 绑定了该事务，使用该 ctx 调用的语句都在事务内执行。
// 事务期间连接锁一直被持有，其他调用方会等待事务结束。嵌套调用使用保存点。
func (c *Conn) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := c.txFrom(ctx); tx != nil {
		return tx.Transaction(func(sp *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{c}, sp))
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLocked(ctx); err != nil {
		return c.record(err, "BEGIN")
	}
	base := c.db
	if c.tx != nil {
		base = c.tx
	}

	var fnErr error
	err := base.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(context.WithValue(ctx, txKey{c}, tx))
		return fnErr
	})
	if err != nil && fnErr == nil {
		return c.record(err, "COMMIT")
	}
	return err
}

// LastError 返回最近一次操作的错误，成功后清空
func (c *Conn) LastError() Error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.lastErr
}

// Release 释放结果集
func (c *Conn) Release(rs *ResultSet) {
	rs.Clear()
}

func (c *Conn) txFrom(ctx context.Context) *gorm.DB {
	tx, _ := ctx.Value(txKey{c}).(*gorm.DB)
	return tx
}

// run 串行执行一条语句；在 Transaction 回调内时锁已由外层持有
func (c *Conn) run(ctx context.Context, op, query string, fn func(db *gorm.DB) error) error {
	if tx := c.txFrom(ctx); tx != nil {
		return c.record(c.do(ctx, tx, op, query, fn), query)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLocked(ctx); err != nil {
		return c.record(err, query)
	}

	handle := c.db
	if c.tx != nil {
		handle = c.tx
	}
	err := c.do(ctx, handle, op, query, fn)
	if err != nil && c.tx == nil && isConnectionLost(err) {
		c.log.Warn("数据库连接已断开，尝试重连", zap.Error(err))
		if rerr := c.reconnectLocked(ctx); rerr == nil {
			err = c.do(ctx, c.db, op, query, fn)
		}
	}
	return c.record(err, query)
}

func (c *Conn) do(ctx context.Context, handle *gorm.DB, op, query string, fn func(db *gorm.DB) error) error {
	table := tableOf(query)
	ctx, span := tracing.Start(ctx, "db."+op, tracing.WithDBStatement(c.driver(), op, table, query)...)
	stmtCtx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	start := time.Now()
	err := fn(handle.WithContext(stmtCtx))
	if c.metrics != nil {
		c.metrics.RecordDBStatement(op, table, time.Since(start), err)
	}
	tracing.End(span, err)
	return err
}

func (c *Conn) ensureLocked(ctx context.Context) error {
	if c.db != nil {
		return nil
	}
	if c.cfg == nil {
		return ErrNotConnected
	}
	return c.reconnectLocked(ctx)
}

func (c *Conn) reconnectLocked(ctx context.Context) error {
	if c.cfg == nil {
		return ErrNotConnected
	}
	c.closeLocked()

	db, err := open(ctx, c.cfg, c.dialect, c.log)
	if c.metrics != nil {
		c.metrics.RecordReconnect(err)
	}
	if err != nil {
		c.log.Error("数据库重连失败", zap.Error(err))
		return err
	}
	c.db = db
	c.log.Info("数据库重连成功")
	return nil
}

func (c *Conn) closeLocked() error {
	if c.tx != nil {
		_ = c.tx.Rollback().Error
		c.tx = nil
	}
	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	c.db = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// record 更新最近错误并记录日志，返回 *Error 或 nil
func (c *Conn) record(err error, query string) error {
	c.errMu.Lock()
	defer c.errMu.Unlock()

	if err == nil {
		c.lastErr = Error{}
		return nil
	}
	e := classify(err)
	c.lastErr = *e
	c.log.Error("[DB Error]",
		logger.DBCode(e.Code),
		zap.String("message", e.Message),
		logger.SQL(query),
	)
	return e
}

func (c *Conn) timeout() time.Duration {
	if c.cfg == nil {
		return 5 * time.Second
	}
	return c.cfg.StatementTimeoutDuration()
}

func (c *Conn) driver() string {
	if c.cfg == nil {
		return ""
	}
	return c.cfg.Driver
}

func tableNameOf(value interface{}) string {
	if t, ok := value.(interface{ TableName() string }); ok {
		return t.TableName()
	}
	return fmt.Sprintf("%T", value)
}
