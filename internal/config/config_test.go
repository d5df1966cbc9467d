package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
server:
  grpc_addr: ":50051"
mysql:
  host: db
  user: ledger
  db_name: account
seed_users:
  - id: 1
    name: alice
  - id: 2
    name: bob
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StorageMySQL, cfg.Storage.Driver)
	assert.Equal(t, LockRedis, cfg.Lock.Driver)
	assert.Equal(t, 3306, cfg.MySQL.Port)
	assert.Equal(t, 100, cfg.MySQL.MaxOpenConns)
	assert.Equal(t, 10, cfg.MySQL.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.MySQL.ConnMaxLifetime)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []SeedUser{{ID: 1, Name: "alice"}, {ID: 2, Name: "bob"}}, cfg.SeedUsers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8080"
storage:
  driver: memory
  wal_path: ledger.wal
lock:
  driver: local
  expiry: 3s
mysql:
  host: db
  password: from-file
log:
  level: info
`)
	t.Setenv("MYSQL_HOST", "mysql.internal")
	t.Setenv("MYSQL_PASSWORD", "from-env")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql.internal", cfg.MySQL.Host)
	assert.Equal(t, "from-env", cfg.MySQL.Password)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "ledger.wal", cfg.Storage.WALPath)
	assert.Equal(t, LockLocal, cfg.Lock.Driver)
	assert.Equal(t, 3*time.Second, cfg.Lock.Expiry)
}

func TestLoad_PathFromEnv(t *testing.T) {
	path := writeConfig(t, "server:\n  grpc_addr: \":9000\"\n")
	t.Setenv("LEDGER_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.GRPCAddr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "未知儲存層", content: "server:\n  grpc_addr: \":1\"\nstorage:\n  driver: sqlite\n"},
		{name: "未知鎖", content: "server:\n  grpc_addr: \":1\"\nlock:\n  driver: etcd\n"},
		{name: "沒有監聽位址", content: "storage:\n  driver: memory\n"},
		{name: "yaml 格式錯誤", content: "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("MYSQL_PORT", "abc")
	_, err = Load(writeConfig(t, "server:\n  grpc_addr: \":1\"\n"))
	assert.Error(t, err)
}
