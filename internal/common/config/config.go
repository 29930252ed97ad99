// Package config 提供应用配置管理功能
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 DORM_DATABASE_HOST
const EnvPrefix = "DORM"

var (
	globalConfig *Config
	once         sync.Once
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Crypto    CryptoConfig    `mapstructure:"crypto"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Business  BusinessConfig  `mapstructure:"business"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Name            string `mapstructure:"name"`
	Mode            string `mapstructure:"mode"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	// AllowOrigins 允许跨域的管理端来源，空表示允许任意来源
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver           string `mapstructure:"driver"`
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	User             string `mapstructure:"user"`
	Password         string `mapstructure:"password"`
	Name             string `mapstructure:"name"`
	Charset          string `mapstructure:"charset"`
	SSLMode          string `mapstructure:"sslmode"`
	Timezone         string `mapstructure:"timezone"`
	ConnectTimeout   int    `mapstructure:"connect_timeout"`
	StatementTimeout int    `mapstructure:"statement_timeout"`
	ConnMaxLifetime  int    `mapstructure:"conn_max_lifetime"`
	AutoMigrate      bool   `mapstructure:"auto_migrate"`
	LogMode          bool   `mapstructure:"log_mode"`
	SlowThreshold    int    `mapstructure:"slow_threshold"`
}

// DSN 返回数据库连接字符串，格式随驱动不同
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local&timeout=%ds",
			d.User, d.Password, d.Host, d.Port, d.Name, d.Charset, d.ConnectTimeout,
		)
	case "sqlite":
		return d.Name
	default:
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s connect_timeout=%d",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.Timezone, d.ConnectTimeout,
		)
	}
}

// ConnectTimeoutDuration 返回连接超时
func (d *DatabaseConfig) ConnectTimeoutDuration() time.Duration {
	if d.ConnectTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.ConnectTimeout) * time.Second
}

// StatementTimeoutDuration 返回单条语句超时
func (d *DatabaseConfig) StatementTimeoutDuration() time.Duration {
	if d.StatementTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.StatementTimeout) * time.Second
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  int    `mapstructure:"dial_timeout"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// Addr 返回 Redis 地址
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret             string `mapstructure:"secret"`
	AccessTokenExpire  int    `mapstructure:"access_token_expire"`
	RefreshTokenExpire int    `mapstructure:"refresh_token_expire"`
	Issuer             string `mapstructure:"issuer"`
}

// AccessTokenDuration 返回访问令牌有效期
func (j *JWTConfig) AccessTokenDuration() time.Duration {
	return time.Duration(j.AccessTokenExpire) * time.Hour
}

// RefreshTokenDuration 返回刷新令牌有效期
func (j *JWTConfig) RefreshTokenDuration() time.Duration {
	return time.Duration(j.RefreshTokenExpire) * time.Hour
}

// CryptoConfig 加密配置
type CryptoConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	Caller     bool   `mapstructure:"caller"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	ReconcileInterval int  `mapstructure:"reconcile_interval"`
	KeepaliveInterval int  `mapstructure:"keepalive_interval"`
}

// ReconcileDuration 返回入住人数校准间隔
func (s *SchedulerConfig) ReconcileDuration() time.Duration {
	if s.ReconcileInterval <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(s.ReconcileInterval) * time.Minute
}

// KeepaliveDuration 返回数据库连接检查间隔
func (s *SchedulerConfig) KeepaliveDuration() time.Duration {
	if s.KeepaliveInterval <= 0 {
		return time.Minute
	}
	return time.Duration(s.KeepaliveInterval) * time.Second
}

// BusinessConfig 业务配置
type BusinessConfig struct {
	DefaultPageSize  int `mapstructure:"default_page_size"`
	MaxPageSize      int `mapstructure:"max_page_size"`
	LoginMaxFailures int `mapstructure:"login_max_failures"`
	LockoutMinutes   int `mapstructure:"lockout_minutes"`
	DashboardCache   int `mapstructure:"dashboard_cache"`
}

// LockoutDuration 返回登录锁定时长
func (b *BusinessConfig) LockoutDuration() time.Duration {
	return time.Duration(b.LockoutMinutes) * time.Minute
}

// DashboardCacheDuration 返回首页统计缓存时长，0 表示不缓存
func (b *BusinessConfig) DashboardCacheDuration() time.Duration {
	return time.Duration(b.DashboardCache) * time.Second
}

// Load 加载配置文件，只在首次调用时读取
func Load(configPath string) (*Config, error) {
	var err error
	once.Do(func() {
		globalConfig, err = LoadFrom(configPath)
	})
	return globalConfig, err
}

// LoadFrom 读取指定配置文件并返回新的配置实例
func LoadFrom(configPath string) (*Config, error) {
	// .env 文件可选
	_ = godotenv.Load()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		globalConfig = &Config{}
		v := viper.New()
		setDefaults(v)
		_ = v.Unmarshal(globalConfig)
	}
	return globalConfig
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.name", "dormitory-backend")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.shutdown_timeout", 10)

	// Database defaults
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "root")
	v.SetDefault("database.name", "Dorm_management")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "Asia/Shanghai")
	v.SetDefault("database.connect_timeout", 5)
	v.SetDefault("database.statement_timeout", 5)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_mode", false)
	v.SetDefault("database.slow_threshold", 200)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.access_token_expire", 12)
	v.SetDefault("jwt.refresh_token_expire", 168)
	v.SetDefault("jwt.issuer", "dormitory")

	// Crypto defaults
	v.SetDefault("crypto.bcrypt_cost", 10)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "./logs/dormitory.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.caller", true)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "dormitory")
	v.SetDefault("metrics.path", "/metrics")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "dormitory-backend")
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.sample_rate", 1.0)

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.reconcile_interval", 30)
	v.SetDefault("scheduler.keepalive_interval", 60)

	// Business defaults
	v.SetDefault("business.default_page_size", 10)
	v.SetDefault("business.max_page_size", 100)
	v.SetDefault("business.login_max_failures", 5)
	v.SetDefault("business.lockout_minutes", 15)
	v.SetDefault("business.dashboard_cache", 60)
}

// IsDebug 是否为调试模式
func (c *Config) IsDebug() bool {
	return c.Server.Mode == "debug"
}

// IsRelease 是否为发布模式
func (c *Config) IsRelease() bool {
	return c.Server.Mode == "release"
}
