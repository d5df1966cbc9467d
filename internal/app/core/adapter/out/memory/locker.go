package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/core/usecase"
)

// KeyedLocker 單機版的帳戶鎖，每個 key 一把互斥鎖，沒人使用時回收
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	// 容量 1 的 channel 當作可被 ctx 中斷的 mutex
	sem  chan struct{}
	refs int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{
		locks: make(map[string]*keyedLock),
	}
}

// WithLock 取得 key 的鎖後執行 fn，ctx 結束前拿不到鎖回傳 ACCOUNT_TRANSACTION_LOCK
func (l *KeyedLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lock := l.acquireRef(key)
	defer l.releaseRef(key, lock)

	select {
	case lock.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", domain.ErrAccountTransactionLock, ctx.Err())
	}
	defer func() { <-lock.sem }()

	return fn(ctx)
}

func (l *KeyedLocker) acquireRef(key string) *keyedLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &keyedLock{sem: make(chan struct{}, 1)}
		l.locks[key] = lock
	}
	lock.refs++
	return lock
}

func (l *KeyedLocker) releaseRef(key string, lock *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, key)
	}
}

// size 目前保留中的 key 數量 (測試用)
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

var _ usecase.AccountLocker = (*KeyedLocker)(nil)
