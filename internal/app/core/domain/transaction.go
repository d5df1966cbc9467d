package domain

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// TransactionType 交易類型
type TransactionType string

const (
	// 扣款
	TransactionTypeUse TransactionType = "USE"
	// 取消扣款
	TransactionTypeCancel TransactionType = "CANCEL"
)

// TransactionResult 交易結果
type TransactionResult string

const (
	// 成功
	TransactionResultSuccess TransactionResult = "S"
	// 失敗
	TransactionResultFail TransactionResult = "F"
)

// Transaction 交易紀錄，建立後不可修改
type Transaction struct {
	// ID: 儲存層主鍵
	ID int64
	// TransactionID: 對外交易編號 (32 位 hex)
	TransactionID string
	// AccountID, AccountNumber: 所屬帳戶
	AccountID     int64
	AccountNumber string
	Type          TransactionType
	Result        TransactionResult
	Amount        int64
	// BalanceSnapshot: 成功時為交易後餘額，失敗時為當下未變動的餘額
	BalanceSnapshot int64
	TransactedAt    time.Time
}

// NewTransactionID 產生交易編號
// 128-bit 隨機 UUID 轉成不含 '-' 的 hex 字串，唯一性最終由儲存層 unique index 保證
func NewTransactionID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// NewTransaction 依帳戶當下狀態建立一筆交易，餘額快照取自 account.Balance
func NewTransaction(id string, tranType TransactionType, result TransactionResult, account *Account, amount int64, now time.Time) *Transaction {
	return &Transaction{
		TransactionID:   id,
		AccountID:       account.ID,
		AccountNumber:   account.AccountNumber,
		Type:            tranType,
		Result:          result,
		Amount:          amount,
		BalanceSnapshot: account.Balance,
		TransactedAt:    now,
	}
}
