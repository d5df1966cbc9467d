package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/core/usecase"
)

// LockOptions 帳戶鎖的行為設定
type LockOptions struct {
	// Expiry: 鎖自動過期時間，避免持有者當機造成死鎖
	// 持有期間每隔 Expiry/2 會自動延長一次
	Expiry time.Duration
	// Tries: 取得鎖的嘗試次數
	Tries int
	// RetryDelay: 每次重試的間隔
	RetryDelay time.Duration
}

// DefaultLockOptions 預設值，一筆扣款應在數秒內完成
func DefaultLockOptions() LockOptions {
	return LockOptions{
		Expiry:     10 * time.Second,
		Tries:      3,
		RetryDelay: 500 * time.Millisecond,
	}
}

// Locker 以 Redis (RedLock) 實作的分散式帳戶鎖
type Locker struct {
	redsync *redsync.Redsync
	opts    LockOptions
	logger  *zap.Logger
}

// NewLocker 建立分散式帳戶鎖
//
// 參數:
//
//	client: go-redis 客戶端
//	opts: 鎖設定，零值欄位使用 DefaultLockOptions
//	logger: zap logger，可為 nil
func NewLocker(client goredislib.UniversalClient, opts LockOptions, logger *zap.Logger) *Locker {
	def := DefaultLockOptions()
	if opts.Expiry <= 0 {
		opts.Expiry = def.Expiry
	}
	if opts.Tries <= 0 {
		opts.Tries = def.Tries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Locker{
		redsync: redsync.New(goredis.NewPool(client)),
		opts:    opts,
		logger:  logger,
	}
}

// WithLock 取得 key 的分散式鎖後執行 fn，fn 的錯誤原樣回傳
//
// 拿不到鎖時回傳 ACCOUNT_TRANSACTION_LOCK。
// fn 執行期間鎖會持續延長，延長失敗代表鎖已遺失，fn 的 ctx 會以 ACCOUNT_TRANSACTION_LOCK 取消。
func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	mutex := l.redsync.NewMutex(key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		l.logger.Warn("failed to acquire account lock", zap.String("lock_key", key), zap.Error(err))
		return errors.Join(domain.ErrAccountTransactionLock, fmt.Errorf("acquire lock %s: %w", key, err))
	}
	l.logger.Debug("account lock acquired", zap.String("lock_key", key))

	defer func() {
		// 解鎖用獨立的 context，呼叫端 ctx 已取消時仍要釋放鎖
		unlockCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if ok, err := mutex.UnlockContext(unlockCtx); !ok || err != nil {
			l.logger.Error("failed to release account lock", zap.String("lock_key", key), zap.Bool("unlock_ok", ok), zap.Error(err))
		}
	}()

	fnCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := l.keepAlive(mutex, key, cancel)
	defer stop()

	return fn(fnCtx)
}

// keepAlive 背景定期延長鎖，回傳的 stop 會等背景 goroutine 結束
func (l *Locker) keepAlive(mutex *redsync.Mutex, key string, lost context.CancelCauseFunc) (stop func()) {
	interval := l.opts.Expiry / 2
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				extendCtx, cancel := context.WithTimeout(context.Background(), interval)
				ok, err := mutex.ExtendContext(extendCtx)
				cancel()
				if !ok || err != nil {
					if err == nil {
						err = redsync.ErrExtendFailed
					}
					l.logger.Error("account lock lost", zap.String("lock_key", key), zap.Bool("extend_ok", ok), zap.Error(err))
					lost(errors.Join(domain.ErrAccountTransactionLock, fmt.Errorf("extend lock %s: %w", key, err)))
					return
				}
				l.logger.Debug("account lock extended", zap.String("lock_key", key))
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

var _ usecase.AccountLocker = (*Locker)(nil)
