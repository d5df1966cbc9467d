package usecase

import (
	"time"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
)

// TransactionDTO 交易回傳資料
type TransactionDTO struct {
	AccountNumber   string
	TransactionID   string
	Type            domain.TransactionType
	Result          domain.TransactionResult
	Amount          int64
	BalanceSnapshot int64
	TransactedAt    time.Time
}

func newTransactionDTO(tran *domain.Transaction) *TransactionDTO {
	return &TransactionDTO{
		AccountNumber:   tran.AccountNumber,
		TransactionID:   tran.TransactionID,
		Type:            tran.Type,
		Result:          tran.Result,
		Amount:          tran.Amount,
		BalanceSnapshot: tran.BalanceSnapshot,
		TransactedAt:    tran.TransactedAt,
	}
}

// AccountDTO 帳戶回傳資料
type AccountDTO struct {
	UserID         int64
	AccountNumber  string
	Balance        int64
	RegisteredAt   time.Time
	UnregisteredAt time.Time
}

func newAccountDTO(account *domain.Account) *AccountDTO {
	return &AccountDTO{
		UserID:         account.UserID,
		AccountNumber:  account.AccountNumber,
		Balance:        account.Balance,
		RegisteredAt:   account.RegisteredAt,
		UnregisteredAt: account.UnregisteredAt,
	}
}
