package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
)

// AccountService 帳戶開戶、解約與查詢
type AccountService struct {
	store Store
	opts  options
}

func NewAccountService(store Store, opts ...Option) *AccountService {
	return &AccountService{
		store: store,
		opts:  newOptions(opts),
	}
}

// CreateAccount 開戶
//
// 參數:
//
//	userID: 使用者 ID
//	initialBalance: 初始餘額
//
// 回傳:
//
//	*AccountDTO: 新帳戶
//	error: USER_NOT_FOUND / MAX_ACCOUNT_PER_USER_10 或儲存層錯誤
//
// 帳號採遞增配號，查詢最後帳號與新增帳戶在同一個交易邊界內完成
func (s *AccountService) CreateAccount(ctx context.Context, userID int64, initialBalance int64) (*AccountDTO, error) {
	var created *domain.Account
	err := s.store.Atomic(ctx, func(store Store) error {
		user, err := findUser(ctx, store, userID)
		if err != nil {
			return err
		}

		count, err := store.Accounts().CountByUserID(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("count accounts: %w", err)
		}
		if count >= domain.MaxAccountPerUser {
			return domain.ErrMaxAccountPerUser
		}

		latest, err := store.Accounts().FindLatest(ctx)
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			return fmt.Errorf("find latest account: %w", err)
		}
		number, err := domain.NextAccountNumber(latest)
		if err != nil {
			return fmt.Errorf("next account number: %w", err)
		}

		created = &domain.Account{
			UserID:        user.ID,
			AccountNumber: number,
			Status:        domain.AccountStatusInUse,
			Balance:       initialBalance,
			RegisteredAt:  s.opts.now(),
		}
		if err := store.Accounts().Create(ctx, created); err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newAccountDTO(created), nil
}

// DeleteAccount 解約
//
// 檢查順序: 使用者存在 -> 帳戶存在 -> 擁有者一致 -> 尚未解約 -> 餘額為 0
func (s *AccountService) DeleteAccount(ctx context.Context, userID int64, accountNumber string) (*AccountDTO, error) {
	var account *domain.Account
	err := s.store.Atomic(ctx, func(store Store) error {
		user, err := findUser(ctx, store, userID)
		if err != nil {
			return err
		}
		account, err = findAccount(ctx, store, accountNumber)
		if err != nil {
			return err
		}
		if err := validateDeleteAccount(user, account); err != nil {
			return err
		}

		account.Unregister(s.opts.now())
		if err := store.Accounts().Save(ctx, account); err != nil {
			return fmt.Errorf("save account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newAccountDTO(account), nil
}

func validateDeleteAccount(user *domain.AccountUser, account *domain.Account) error {
	if user.ID != account.UserID {
		return domain.ErrUserAccountUnmatch
	}
	if account.IsUnregistered() {
		return domain.ErrAccountAlreadyUnregistered
	}
	if account.Balance > 0 {
		return domain.ErrBalanceNotEmpty
	}
	return nil
}

// GetAccountsByUserID 列出使用者的帳戶
func (s *AccountService) GetAccountsByUserID(ctx context.Context, userID int64) ([]*AccountDTO, error) {
	user, err := findUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.store.Accounts().FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("find accounts: %w", err)
	}

	out := make([]*AccountDTO, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, newAccountDTO(account))
	}
	return out, nil
}
