package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/keepalive"

	grpc_adapter "github.com/JoeShih716/go-account-ledger/internal/app/core/adapter/in/grpc"
	http_adapter "github.com/JoeShih716/go-account-ledger/internal/app/core/adapter/in/http"
	memory_adapter "github.com/JoeShih716/go-account-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-account-ledger/internal/app/core/adapter/out/mysql"
	redis_adapter "github.com/JoeShih716/go-account-ledger/internal/app/core/adapter/out/redis"
	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-account-ledger/internal/config"
	"github.com/JoeShih716/go-account-ledger/pkg/logger"
	"github.com/JoeShih716/go-account-ledger/pkg/mysql"
	"github.com/JoeShih716/go-account-ledger/pkg/redis"
	"github.com/JoeShih716/go-account-ledger/pkg/wal"
)

func main() {
	// 1. 載入設定
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. 初始化 Logger
	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
	zlog.Info("server exited")
}

// run 組裝所有元件並阻塞直到 ctx 結束或任一 server 失敗
func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger) error {
	// 3. 儲存層
	store, closeStore, err := newStore(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer closeStore()

	// 4. 帳戶鎖
	locker, closeLocker, err := newLocker(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer closeLocker()

	// 5. UseCase
	transactions := usecase.NewTransactionService(store)
	accounts := usecase.NewAccountService(store)
	workflow := usecase.NewBalanceWorkflow(transactions, locker, zlog.Named("workflow"))

	errCh := make(chan error, 2)

	// 6. gRPC Server
	var grpcServer *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
		}
		srv := grpc_adapter.NewGrpcServer(workflow, accounts, zlog.Named("grpc"))
		var healthServer *health.Server
		grpcServer, healthServer = grpc_adapter.NewServer(srv, zlog.Named("grpc"),
			// MinTime 需小於客戶端連線池的 keepalive 間隔
			grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
				MinTime:             5 * time.Second,
				PermitWithoutStream: true,
			}),
		)
		defer healthServer.Shutdown()

		go func() {
			zlog.Info("starting grpc server", zap.String("addr", cfg.Server.GRPCAddr))
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc serve: %w", err)
			}
		}()
	}

	// 7. HTTP Server
	handler := http_adapter.NewHandler(workflow, accounts)
	app := http_adapter.NewApp(handler, zlog.Named("http"))
	if cfg.Server.HTTPAddr != "" {
		go func() {
			zlog.Info("starting http server", zap.String("addr", cfg.Server.HTTPAddr))
			if err := app.Listen(cfg.Server.HTTPAddr); err != nil {
				errCh <- fmt.Errorf("http serve: %w", err)
			}
		}()
	}

	// Graceful Shutdown
	var serveErr error
	select {
	case <-ctx.Done():
		zlog.Info("shutting down server...")
	case serveErr = <-errCh:
		zlog.Error("server failed, shutting down", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if cfg.Server.HTTPAddr != "" {
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			zlog.Warn("http shutdown", zap.Error(err))
		}
	}
	if grpcServer != nil {
		gracefulStop(shutdownCtx, grpcServer)
	}
	return serveErr
}

// gracefulStop 等待進行中的 RPC 完成，逾時則強制關閉
func gracefulStop(ctx context.Context, s *grpc.Server) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.Stop()
	}
}

func seedUsers(cfg *config.Config) []domain.AccountUser {
	users := make([]domain.AccountUser, 0, len(cfg.SeedUsers))
	for _, u := range cfg.SeedUsers {
		users = append(users, domain.AccountUser{ID: u.ID, Name: u.Name})
	}
	return users
}

// newStore 依設定建立 MySQL 或 記憶體+WAL 儲存層
func newStore(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (usecase.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.StorageMySQL:
		dbClient, err := mysql.NewClient(ctx, cfg.MySQL, zlog.Named("mysql"))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mysql: %w", err)
		}
		zlog.Info("connected to mysql", zap.String("host", cfg.MySQL.Host))

		store := mysql_adapter.NewStore(dbClient)
		if err := store.Migrate(ctx); err != nil {
			_ = dbClient.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		if err := store.EnsureUsers(ctx, seedUsers(cfg)); err != nil {
			_ = dbClient.Close()
			return nil, nil, fmt.Errorf("seed users: %w", err)
		}
		return store, func() { _ = dbClient.Close() }, nil

	case config.StorageMemory:
		var walFile *wal.WAL
		closeFn := func() {}
		if cfg.Storage.WALPath != "" {
			w, err := wal.NewWAL(cfg.Storage.WALPath)
			if err != nil {
				return nil, nil, fmt.Errorf("init wal: %w", err)
			}
			walFile = w
			closeFn = func() { _ = w.Close() }
		}
		store, err := memory_adapter.NewStore(walFile)
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("init memory store: %w", err)
		}
		if err := store.EnsureUsers(ctx, seedUsers(cfg)); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("seed users: %w", err)
		}
		zlog.Info("memory store ready",
			zap.String("wal_path", cfg.Storage.WALPath),
			zap.Int("transactions", store.TransactionCount()),
		)
		return store, closeFn, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// newLocker 依設定建立 Redis 分散式鎖或單機鎖
func newLocker(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (usecase.AccountLocker, func(), error) {
	switch cfg.Lock.Driver {
	case config.LockRedis:
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		locker := redis_adapter.NewLocker(client, redis_adapter.LockOptions{
			Expiry:     cfg.Lock.Expiry,
			Tries:      cfg.Lock.Tries,
			RetryDelay: cfg.Lock.RetryDelay,
		}, zlog.Named("lock"))
		return locker, func() { _ = client.Close() }, nil

	case config.LockLocal:
		return memory_adapter.NewKeyedLocker(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown lock driver %q", cfg.Lock.Driver)
}
