package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Consul   ConsulConfig   `json:"consul"`
	Jaeger   JaegerConfig   `json:"jaeger"`
	Auth     AuthConfig     `json:"auth"`
	Log      LogConfig      `json:"log"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name string `json:"name"` // 服务名称
	Host string `json:"host"` // 服务地址
	Port int    `json:"port"` // HTTP端口

	RateLimitPerSecond int      `json:"rate_limit_per_second"` // 每秒最大请求数（0 表示不限流）
	CORSOrigins        []string `json:"cors_origins"`          // 允许的 CORS origins（为空表示 *）
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver"`   // mysql / sqlite
	Host     string `json:"host"`     // 数据库地址（mysql）
	Port     int    `json:"port"`     // 数据库端口（mysql）
	User     string `json:"user"`     // 用户名
	Password string `json:"password"` // 密码
	Database string `json:"database"` // 数据库名
	Path     string `json:"path"`     // sqlite 文件路径
	MaxIdle  int    `json:"max_idle"` // 最大空闲连接
	MaxOpen  int    `json:"max_open"` // 最大打开连接
}

// ConsulConfig Consul配置
type ConsulConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// JaegerConfig Jaeger配置
type JaegerConfig struct {
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"` // 采样率 0.0-1.0
}

// AuthConfig 鉴权配置（JWT HS256 + 角色）
type AuthConfig struct {
	Enabled       bool     `json:"enabled"`
	JWTSecret     string   `json:"jwt_secret"`
	Issuer        string   `json:"issuer"`
	Audience      string   `json:"audience"`
	TokenTTLHours int      `json:"token_ttl_hours"`
	PublicPaths   []string `json:"public_paths"` // 不需要 token 的路径

	// 用户表为空时自动创建的管理员账号
	BootstrapAdminUser     string `json:"bootstrap_admin_user"`
	BootstrapAdminPassword string `json:"bootstrap_admin_password"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, file
	Path   string `json:"path"`   // 日志文件路径
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// LoadConfig 加载配置
func LoadConfig(configPath string) (*Config, error) {
	var err error
	configOnce.Do(func() {
		globalConfig = &Config{}
		// 如果配置文件不存在，使用默认配置
		if _, err = os.Stat(configPath); os.IsNotExist(err) {
			logrus.Warnf("Config file not found: %s, using default config", configPath)
			globalConfig = defaultConfig()
			err = nil
			return
		}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file: %w", readErr)
			return
		}

		if unmarshalErr := json.Unmarshal(data, globalConfig); unmarshalErr != nil {
			err = fmt.Errorf("failed to parse config file: %w", unmarshalErr)
			return
		}
	})

	if err != nil {
		return nil, err
	}

	return globalConfig, nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	if globalConfig == nil {
		return defaultConfig()
	}
	return globalConfig
}

// TokenTTLHoursOrDefault 返回 token 有效期（小时），未配置时为 24。
func (a AuthConfig) TokenTTLHoursOrDefault() int {
	if a.TokenTTLHours <= 0 {
		return 24
	}
	return a.TokenTTLHours
}

// defaultConfig 默认配置（开发环境）
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:               "inventory-service",
			Host:               "0.0.0.0",
			Port:               8080,
			RateLimitPerSecond: 100,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			Path:     "./lottrace.db",
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "root",
			Database: "lottrace",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		Consul: ConsulConfig{
			Host: "localhost",
			Port: 8500,
		},
		Jaeger: JaegerConfig{
			Endpoint: "localhost:6831",
			Sampler:  1.0,
		},
		Auth: AuthConfig{
			Enabled:                true,
			JWTSecret:              "dev-only-secret-change-me",
			Issuer:                 "lottrace",
			TokenTTLHours:          24,
			PublicPaths:            []string{"/api/auth/login", "/healthz"},
			BootstrapAdminUser:     "admin",
			BootstrapAdminPassword: "admin123",
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
			Output: "stdout",
			Path:   "logs/app.log",
		},
	}
}
