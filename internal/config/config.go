package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-account-ledger/pkg/logger"
	"github.com/JoeShih716/go-account-ledger/pkg/mysql"
	"github.com/JoeShih716/go-account-ledger/pkg/redis"
)

// DefaultPath 設定檔預設位置
const DefaultPath = "config/config.yaml"

// 儲存層實作
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// 帳戶鎖實作
const (
	LockRedis = "redis"
	LockLocal = "local"
)

// Config 服務設定
type Config struct {
	Server    ServerConfig  `yaml:"server"`
	Storage   StorageConfig `yaml:"storage"`
	MySQL     mysql.Config  `yaml:"mysql"`
	Redis     redis.Config  `yaml:"redis"`
	Lock      LockConfig    `yaml:"lock"`
	Log       logger.Config `yaml:"log"`
	SeedUsers []SeedUser    `yaml:"seed_users"`
}

// ServerConfig 對外監聽位址，空字串代表不啟動
type ServerConfig struct {
	GRPCAddr        string        `yaml:"grpc_addr"`
	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig 儲存層
type StorageConfig struct {
	Driver  string `yaml:"driver"`   // mysql / memory
	WALPath string `yaml:"wal_path"` // memory 模式的 WAL 檔，空字串代表不落地
}

// LockConfig 帳戶鎖
type LockConfig struct {
	Driver     string        `yaml:"driver"` // redis / local
	Expiry     time.Duration `yaml:"expiry"`
	Tries      int           `yaml:"tries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// SeedUser 啟動時寫入的使用者
type SeedUser struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// Load 讀取設定檔並套用環境變數與預設值
//
// path 為空時依序使用 LEDGER_CONFIG 與 DefaultPath
func Load(path string) (*Config, error) {
	// .env 不存在是正常情況
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("LEDGER_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("MYSQL_HOST"); v != "" {
		c.MySQL.Host = v
	}
	if v := os.Getenv("MYSQL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", v, err)
		}
		c.MySQL.Port = port
	}
	if v := os.Getenv("MYSQL_PASSWORD"); v != "" {
		c.MySQL.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// applyDefaults 補全 yaml 沒寫的欄位
func (c *Config) applyDefaults() {
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMySQL
	}
	if c.Lock.Driver == "" {
		c.Lock.Driver = LockRedis
	}
	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.MaxOpenConns == 0 {
		c.MySQL.MaxOpenConns = 100
	}
	if c.MySQL.MaxIdleConns == 0 {
		c.MySQL.MaxIdleConns = 10
	}
	if c.MySQL.ConnMaxLifetime == 0 {
		c.MySQL.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
}

// Validate 檢查列舉欄位
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMySQL, StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Lock.Driver {
	case LockRedis, LockLocal:
	default:
		return fmt.Errorf("unknown lock driver %q", c.Lock.Driver)
	}
	if c.Server.GRPCAddr == "" && c.Server.HTTPAddr == "" {
		return fmt.Errorf("at least one of server.grpc_addr and server.http_addr is required")
	}
	return nil
}
