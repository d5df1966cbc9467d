package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
)

// BalanceWorkflow 是傳輸層 (gRPC / HTTP) 共用的交易流程
//
//	帳戶鎖 -> TransactionService -> 業務錯誤時補記失敗交易 -> 回傳原始錯誤
//
// 補記失敗交易本身出錯時不會吞掉，會與原始錯誤一併回傳 (errors.Join)，
// errors.Is 與 domain.CodeOf 仍然對應到原始錯誤。
type BalanceWorkflow struct {
	transactions *TransactionService
	locker       AccountLocker
	logger       *zap.Logger
}

func NewBalanceWorkflow(transactions *TransactionService, locker AccountLocker, logger *zap.Logger) *BalanceWorkflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceWorkflow{
		transactions: transactions,
		locker:       locker,
		logger:       logger,
	}
}

// UseBalance 在帳戶鎖內扣款
func (w *BalanceWorkflow) UseBalance(ctx context.Context, userID int64, accountNumber string, amount int64) (*TransactionDTO, error) {
	var result *TransactionDTO
	err := w.locker.WithLock(ctx, AccountLockKey(accountNumber), func(ctx context.Context) error {
		dto, err := w.transactions.UseBalance(ctx, userID, accountNumber, amount)
		if err != nil {
			return w.compensate(err, "use balance failed", accountNumber, amount, func() error {
				return w.transactions.SaveFailedUseTransaction(ctx, accountNumber, amount)
			})
		}
		result = dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelBalance 在帳戶鎖內取消扣款
func (w *BalanceWorkflow) CancelBalance(ctx context.Context, transactionID string, accountNumber string, amount int64) (*TransactionDTO, error) {
	var result *TransactionDTO
	err := w.locker.WithLock(ctx, AccountLockKey(accountNumber), func(ctx context.Context) error {
		dto, err := w.transactions.CancelBalance(ctx, transactionID, accountNumber, amount)
		if err != nil {
			return w.compensate(err, "cancel balance failed", accountNumber, amount, func() error {
				return w.transactions.SaveFailedCancelTransaction(ctx, accountNumber, amount)
			})
		}
		result = dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// QueryTransaction 查詢不需要鎖，也不記錄失敗
func (w *BalanceWorkflow) QueryTransaction(ctx context.Context, transactionID string) (*TransactionDTO, error) {
	return w.transactions.QueryTransaction(ctx, transactionID)
}

// compensate 只有業務錯誤才補記失敗交易，基礎設施錯誤直接回傳
func (w *BalanceWorkflow) compensate(cause error, msg string, accountNumber string, amount int64, record func() error) error {
	if !domain.IsBusinessError(cause) {
		w.logger.Error(msg, zap.String("account_number", accountNumber), zap.Int64("amount", amount), zap.Error(cause))
		return cause
	}

	code, _ := domain.CodeOf(cause)
	w.logger.Warn(msg,
		zap.String("account_number", accountNumber),
		zap.Int64("amount", amount),
		zap.String("error_code", string(code)),
	)

	if err := record(); err != nil {
		w.logger.Error("save failed transaction",
			zap.String("account_number", accountNumber),
			zap.Int64("amount", amount),
			zap.Error(err),
		)
		return errors.Join(cause, err)
	}
	return cause
}
