package usecase

import (
	"context"
	"errors"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
)

// ErrRecordNotFound 儲存層查無資料，由 usecase 轉成對應的業務錯誤
var ErrRecordNotFound = errors.New("record not found")

// UserRepository 使用者查詢
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.AccountUser, error)
}

// AccountRepository 帳戶存取
type AccountRepository interface {
	// FindByNumber 依帳號查詢，查無回傳 ErrRecordNotFound
	FindByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	// FindByUserID 列出使用者的所有帳戶
	FindByUserID(ctx context.Context, userID int64) ([]*domain.Account, error)
	// CountByUserID 使用者持有的帳戶數
	CountByUserID(ctx context.Context, userID int64) (int64, error)
	// FindLatest 取得 ID 最大的帳戶，沒有任何帳戶時回傳 ErrRecordNotFound
	FindLatest(ctx context.Context) (*domain.Account, error)
	// Create 新增帳戶並回填 ID
	Create(ctx context.Context, account *domain.Account) error
	// Save 依 ID 更新餘額與狀態
	Save(ctx context.Context, account *domain.Account) error
}

// TransactionRepository 交易帳本，只能新增與查詢
type TransactionRepository interface {
	// FindByTransactionID 依交易編號查詢，查無回傳 ErrRecordNotFound
	FindByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	// Create 新增交易並回填 ID
	Create(ctx context.Context, tran *domain.Transaction) error
}

// Store 儲存層入口
type Store interface {
	Users() UserRepository
	Accounts() AccountRepository
	Transactions() TransactionRepository
	// Atomic 在同一個交易邊界內執行 fn，fn 回傳錯誤時所有變更都不生效
	Atomic(ctx context.Context, fn func(store Store) error) error
}

// AccountLocker 以帳號為 key 的互斥區
type AccountLocker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// AccountLockKey 帳戶鎖的 key
func AccountLockKey(accountNumber string) string {
	return "account-lock:" + accountNumber
}
