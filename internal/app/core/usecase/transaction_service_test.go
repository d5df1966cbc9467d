package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/core/usecase"
)

func TestUseBalance_Success(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{Store: newSeededStore(t)}
	service := usecase.NewTransactionService(store, testOptions()...)

	dto, err := service.UseBalance(ctx, 2, "1000000000", 200)
	require.NoError(t, err)

	assert.Equal(t, "1000000000", dto.AccountNumber)
	assert.Equal(t, domain.TransactionTypeUse, dto.Type)
	assert.Equal(t, domain.TransactionResultSuccess, dto.Result)
	assert.Equal(t, int64(200), dto.Amount)
	assert.Equal(t, int64(9800), dto.BalanceSnapshot)
	assert.Equal(t, fixedNow, dto.TransactedAt)
	assert.Len(t, dto.TransactionID, 32)

	assert.Equal(t, int64(9800), balanceOf(t, store, "1000000000"))
	require.Len(t, store.created, 1)
}

func TestUseBalance_ValidationFailures(t *testing.T) {
	tests := []struct {
		name          string
		userID        int64
		accountNumber string
		amount        int64
		wantErr       error
	}{
		{name: "使用者不存在優先於帳戶不存在", userID: 99, accountNumber: "9999999999", amount: 10, wantErr: domain.ErrUserNotFound},
		{name: "帳戶不存在", userID: 2, accountNumber: "9999999999", amount: 10, wantErr: domain.ErrAccountNotFound},
		{name: "擁有者不符", userID: 1, accountNumber: "1000000000", amount: 10, wantErr: domain.ErrUserAccountUnmatch},
		{name: "擁有者不符優先於餘額不足", userID: 1, accountNumber: "1000000000", amount: 999999, wantErr: domain.ErrUserAccountUnmatch},
		{name: "已解約", userID: 2, accountNumber: "1000000001", amount: 10, wantErr: domain.ErrAccountAlreadyUnregistered},
		{name: "餘額不足", userID: 2, accountNumber: "1000000000", amount: 10001, wantErr: domain.ErrAmountExceedBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			seeded := newSeededStore(t)
			addAccount(t, seeded, 2, "1000000001", 500, domain.AccountStatusUnregistered)
			store := &recordingStore{Store: seeded}
			service := usecase.NewTransactionService(store, testOptions()...)

			dto, err := service.UseBalance(ctx, tt.userID, tt.accountNumber, tt.amount)

			assert.Nil(t, dto)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, domain.IsBusinessError(err))
			assert.Equal(t, int64(10000), balanceOf(t, store, "1000000000"))
			assert.Equal(t, int64(500), balanceOf(t, store, "1000000001"))
			assert.Empty(t, store.created)
		})
	}
}

func TestUseBalance_ExactBalance(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	service := usecase.NewTransactionService(store, testOptions()...)

	dto, err := service.UseBalance(ctx, 2, "1000000000", 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), dto.BalanceSnapshot)
}

func TestUseBalance_LedgerFailureLeavesBalanceUntouched(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{Store: newSeededStore(t), failCreates: true}
	service := usecase.NewTransactionService(store, testOptions()...)

	_, err := service.UseBalance(ctx, 2, "1000000000", 200)

	assert.ErrorIs(t, err, errStoreDown)
	assert.False(t, domain.IsBusinessError(err))
	assert.Equal(t, int64(10000), balanceOf(t, store, "1000000000"), "帳本寫入失敗時扣款必須一起回滾")
}

func TestSaveFailedUseTransaction(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{Store: newSeededStore(t)}
	service := usecase.NewTransactionService(store, testOptions()...)

	require.NoError(t, service.SaveFailedUseTransaction(ctx, "1000000000", 20000))

	require.Len(t, store.created, 1)
	failed := store.created[0]
	assert.Equal(t, domain.TransactionTypeUse, failed.Type)
	assert.Equal(t, domain.TransactionResultFail, failed.Result)
	assert.Equal(t, int64(20000), failed.Amount)
	assert.Equal(t, int64(10000), failed.BalanceSnapshot)
	assert.Equal(t, int64(10000), balanceOf(t, store, "1000000000"))

	err := service.SaveFailedUseTransaction(ctx, "9999999999", 10)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestUseThenCancel_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	service := usecase.NewTransactionService(store, testOptions()...)

	used, err := service.UseBalance(ctx, 2, "1000000000", 200)
	require.NoError(t, err)
	assert.Equal(t, int64(9800), used.BalanceSnapshot)

	cancelled, err := service.CancelBalance(ctx, used.TransactionID, "1000000000", 200)
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionTypeCancel, cancelled.Type)
	assert.Equal(t, domain.TransactionResultSuccess, cancelled.Result)
	assert.Equal(t, int64(200), cancelled.Amount)
	assert.Equal(t, int64(10000), cancelled.BalanceSnapshot)
	assert.NotEqual(t, used.TransactionID, cancelled.TransactionID)
	assert.Equal(t, int64(10000), balanceOf(t, store, "1000000000"))
}

func TestCancelBalance_ValidationFailures(t *testing.T) {
	ctx := context.Background()
	seeded := newSeededStore(t)
	addAccount(t, seeded, 1, "1000000001", 300, domain.AccountStatusInUse)
	service := usecase.NewTransactionService(seeded, testOptions()...)

	used, err := service.UseBalance(ctx, 2, "1000000000", 200)
	require.NoError(t, err)

	tests := []struct {
		name          string
		transactionID string
		accountNumber string
		amount        int64
		wantErr       error
	}{
		{name: "交易不存在", transactionID: "nope", accountNumber: "1000000000", amount: 200, wantErr: domain.ErrTransactionNotFound},
		{name: "交易不存在優先於帳戶不存在", transactionID: "nope", accountNumber: "9999999999", amount: 200, wantErr: domain.ErrTransactionNotFound},
		{name: "帳戶不存在", transactionID: used.TransactionID, accountNumber: "9999999999", amount: 200, wantErr: domain.ErrAccountNotFound},
		{name: "部分取消", transactionID: used.TransactionID, accountNumber: "1000000000", amount: 100, wantErr: domain.ErrCancelMustFully},
		{name: "部分取消優先於帳號不符", transactionID: used.TransactionID, accountNumber: "1000000001", amount: 100, wantErr: domain.ErrCancelMustFully},
		{name: "帳號不符", transactionID: used.TransactionID, accountNumber: "1000000001", amount: 200, wantErr: domain.ErrTransactionAccountUnmatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dto, err := service.CancelBalance(ctx, tt.transactionID, tt.accountNumber, tt.amount)
			assert.Nil(t, dto)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int64(9800), balanceOf(t, seeded, "1000000000"))
			assert.Equal(t, int64(300), balanceOf(t, seeded, "1000000001"))
		})
	}
}

func TestCancelBalance_DoesNotCheckOriginalType(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	service := usecase.NewTransactionService(store, testOptions()...)

	used, err := service.UseBalance(ctx, 2, "1000000000", 200)
	require.NoError(t, err)
	cancelled, err := service.CancelBalance(ctx, used.TransactionID, "1000000000", 200)
	require.NoError(t, err)

	// 以 CANCEL 交易為對象再取消一次仍會成功 (沿用原本只比對金額與帳號的規則)
	again, err := service.CancelBalance(ctx, cancelled.TransactionID, "1000000000", 200)
	require.NoError(t, err)
	assert.Equal(t, int64(10200), again.BalanceSnapshot)
}

func TestSaveFailedCancelTransaction(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{Store: newSeededStore(t)}
	service := usecase.NewTransactionService(store, testOptions()...)

	require.NoError(t, service.SaveFailedCancelTransaction(ctx, "1000000000", 500))

	require.Len(t, store.created, 1)
	assert.Equal(t, domain.TransactionTypeCancel, store.created[0].Type)
	assert.Equal(t, domain.TransactionResultFail, store.created[0].Result)
	assert.Equal(t, int64(10000), store.created[0].BalanceSnapshot)
}

func TestQueryTransaction(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	service := usecase.NewTransactionService(store, testOptions()...)

	used, err := service.UseBalance(ctx, 2, "1000000000", 1000)
	require.NoError(t, err)

	got, err := service.QueryTransaction(ctx, used.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, used, got)

	_, err = service.QueryTransaction(ctx, "0000")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}
