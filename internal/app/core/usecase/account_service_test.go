package usecase_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/core/usecase"
)

func TestCreateAccount_SequentialNumbers(t *testing.T) {
	ctx := context.Background()
	store, err := memory.NewStore(nil)
	require.NoError(t, err)
	require.NoError(t, store.AddUser(ctx, &domain.AccountUser{ID: 1}))
	service := usecase.NewAccountService(store, testOptions()...)

	first, err := service.CreateAccount(ctx, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, "1000000000", first.AccountNumber)
	assert.Equal(t, int64(1), first.UserID)
	assert.Equal(t, int64(100), first.Balance)
	assert.Equal(t, fixedNow, first.RegisteredAt)

	second, err := service.CreateAccount(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "1000000001", second.AccountNumber)

	account, err := store.Accounts().FindByNumber(ctx, "1000000001")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusInUse, account.Status)
}

func TestCreateAccount_Failures(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	service := usecase.NewAccountService(store, testOptions()...)

	_, err := service.CreateAccount(ctx, 99, 0)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	// 使用者 2 已有 1 個帳戶，再開 9 個達到上限
	for i := 0; i < 9; i++ {
		_, err := service.CreateAccount(ctx, 2, 0)
		require.NoError(t, err, fmt.Sprintf("account #%d", i+2))
	}
	_, err = service.CreateAccount(ctx, 2, 0)
	assert.ErrorIs(t, err, domain.ErrMaxAccountPerUser)

	// 其他使用者不受影響
	dto, err := service.CreateAccount(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "1000000010", dto.AccountNumber)
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	addAccount(t, store, 2, "1000000001", 0, domain.AccountStatusInUse)
	addAccount(t, store, 2, "1000000002", 0, domain.AccountStatusUnregistered)
	service := usecase.NewAccountService(store, testOptions()...)

	tests := []struct {
		name          string
		userID        int64
		accountNumber string
		wantErr       error
	}{
		{name: "使用者不存在", userID: 99, accountNumber: "1000000001", wantErr: domain.ErrUserNotFound},
		{name: "帳戶不存在", userID: 2, accountNumber: "9999999999", wantErr: domain.ErrAccountNotFound},
		{name: "擁有者不符", userID: 1, accountNumber: "1000000001", wantErr: domain.ErrUserAccountUnmatch},
		{name: "已解約", userID: 2, accountNumber: "1000000002", wantErr: domain.ErrAccountAlreadyUnregistered},
		{name: "餘額不為零", userID: 2, accountNumber: "1000000000", wantErr: domain.ErrBalanceNotEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.DeleteAccount(ctx, tt.userID, tt.accountNumber)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	dto, err := service.DeleteAccount(ctx, 2, "1000000001")
	require.NoError(t, err)
	assert.Equal(t, "1000000001", dto.AccountNumber)
	assert.Equal(t, fixedNow, dto.UnregisteredAt)

	account, err := store.Accounts().FindByNumber(ctx, "1000000001")
	require.NoError(t, err)
	assert.True(t, account.IsUnregistered())

	// 解約後的帳戶不能再扣款
	transactions := usecase.NewTransactionService(store, testOptions()...)
	_, err = transactions.UseBalance(ctx, 2, "1000000001", 0)
	assert.ErrorIs(t, err, domain.ErrAccountAlreadyUnregistered)
}

func TestGetAccountsByUserID(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	addAccount(t, store, 2, "1000000001", 50, domain.AccountStatusInUse)
	service := usecase.NewAccountService(store, testOptions()...)

	accounts, err := service.GetAccountsByUserID(ctx, 2)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "1000000000", accounts[0].AccountNumber)
	assert.Equal(t, int64(10000), accounts[0].Balance)
	assert.Equal(t, int64(50), accounts[1].Balance)

	empty, err := service.GetAccountsByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = service.GetAccountsByUserID(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
