package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
)

// TransactionService 餘額交易核心：扣款、取消扣款、失敗紀錄與查詢
//
// 不快取任何帳戶狀態，每次呼叫都從 Store 重新讀取，
// 可以安全地被外層的帳戶鎖包住。
type TransactionService struct {
	store Store
	opts  options
}

func NewTransactionService(store Store, opts ...Option) *TransactionService {
	return &TransactionService{
		store: store,
		opts:  newOptions(opts),
	}
}

// UseBalance 扣款
//
// 檢查順序 (第一個失敗即回傳):
//
//	使用者存在 -> 帳戶存在 -> 擁有者一致 -> 帳戶使用中 -> 金額不超過餘額
//
// 餘額更新與交易紀錄在同一個交易邊界內完成
func (s *TransactionService) UseBalance(ctx context.Context, userID int64, accountNumber string, amount int64) (*TransactionDTO, error) {
	var created *domain.Transaction
	err := s.store.Atomic(ctx, func(store Store) error {
		user, err := findUser(ctx, store, userID)
		if err != nil {
			return err
		}
		account, err := findAccount(ctx, store, accountNumber)
		if err != nil {
			return err
		}
		if err := validateUseBalance(user, account, amount); err != nil {
			return err
		}

		if err := account.UseBalance(amount); err != nil {
			return err
		}
		if err := store.Accounts().Save(ctx, account); err != nil {
			return fmt.Errorf("save account: %w", err)
		}

		created, err = s.saveTransaction(ctx, store, domain.TransactionTypeUse, domain.TransactionResultSuccess, account, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newTransactionDTO(created), nil
}

func validateUseBalance(user *domain.AccountUser, account *domain.Account, amount int64) error {
	if user.ID != account.UserID {
		return domain.ErrUserAccountUnmatch
	}
	if account.IsUnregistered() {
		return domain.ErrAccountAlreadyUnregistered
	}
	if account.Balance < amount {
		return domain.ErrAmountExceedBalance
	}
	return nil
}

// SaveFailedUseTransaction 記錄一筆失敗的扣款，不變動帳戶
func (s *TransactionService) SaveFailedUseTransaction(ctx context.Context, accountNumber string, amount int64) error {
	return s.saveFailedTransaction(ctx, domain.TransactionTypeUse, accountNumber, amount)
}

// CancelBalance 取消扣款
//
// 檢查順序 (第一個失敗即回傳):
//
//	交易存在 -> 帳戶存在 -> 金額與原交易相同 -> 帳號與原交易相同
//
// 不檢查原交易的類型
func (s *TransactionService) CancelBalance(ctx context.Context, transactionID string, accountNumber string, amount int64) (*TransactionDTO, error) {
	var created *domain.Transaction
	err := s.store.Atomic(ctx, func(store Store) error {
		original, err := findTransaction(ctx, store, transactionID)
		if err != nil {
			return err
		}
		account, err := findAccount(ctx, store, accountNumber)
		if err != nil {
			return err
		}
		if err := validateCancelBalance(original, account, amount); err != nil {
			return err
		}

		account.CancelBalance(amount)
		if err := store.Accounts().Save(ctx, account); err != nil {
			return fmt.Errorf("save account: %w", err)
		}

		created, err = s.saveTransaction(ctx, store, domain.TransactionTypeCancel, domain.TransactionResultSuccess, account, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newTransactionDTO(created), nil
}

func validateCancelBalance(original *domain.Transaction, account *domain.Account, amount int64) error {
	if original.Amount != amount {
		return domain.ErrCancelMustFully
	}
	if original.AccountNumber != account.AccountNumber {
		return domain.ErrTransactionAccountUnmatch
	}
	return nil
}

// SaveFailedCancelTransaction 記錄一筆失敗的取消扣款，不變動帳戶
func (s *TransactionService) SaveFailedCancelTransaction(ctx context.Context, accountNumber string, amount int64) error {
	return s.saveFailedTransaction(ctx, domain.TransactionTypeCancel, accountNumber, amount)
}

// QueryTransaction 查詢交易
func (s *TransactionService) QueryTransaction(ctx context.Context, transactionID string) (*TransactionDTO, error) {
	tran, err := findTransaction(ctx, s.store, transactionID)
	if err != nil {
		return nil, err
	}
	return newTransactionDTO(tran), nil
}

func (s *TransactionService) saveFailedTransaction(ctx context.Context, tranType domain.TransactionType, accountNumber string, amount int64) error {
	return s.store.Atomic(ctx, func(store Store) error {
		account, err := findAccount(ctx, store, accountNumber)
		if err != nil {
			return err
		}
		_, err = s.saveTransaction(ctx, store, tranType, domain.TransactionResultFail, account, amount)
		return err
	})
}

func (s *TransactionService) saveTransaction(ctx context.Context, store Store, tranType domain.TransactionType, result domain.TransactionResult, account *domain.Account, amount int64) (*domain.Transaction, error) {
	tran := domain.NewTransaction(s.opts.newTransactionID(), tranType, result, account, amount, s.opts.now())
	if err := store.Transactions().Create(ctx, tran); err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}
	return tran, nil
}

func findUser(ctx context.Context, store Store, userID int64) (*domain.AccountUser, error) {
	user, err := store.Users().FindByID(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func findAccount(ctx context.Context, store Store, accountNumber string) (*domain.Account, error) {
	account, err := store.Accounts().FindByNumber(ctx, accountNumber)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

func findTransaction(ctx context.Context, store Store, transactionID string) (*domain.Transaction, error) {
	tran, err := store.Transactions().FindByTransactionID(ctx, transactionID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	return tran, nil
}
