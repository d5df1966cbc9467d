package domain

import (
	"strconv"
	"time"
)

// AccountStatus 帳戶狀態
type AccountStatus string

const (
	// 使用中
	AccountStatusInUse AccountStatus = "IN_USE"
	// 已解約
	AccountStatusUnregistered AccountStatus = "UNREGISTERED"
)

const (
	// FirstAccountNumber 系統內第一個帳號
	FirstAccountNumber = "1000000000"
	// AccountNumberLength 帳號長度
	AccountNumberLength = 10
	// MaxAccountPerUser 每位使用者可持有的帳戶上限
	MaxAccountPerUser = 10
)

// AccountUser 帳戶擁有者
type AccountUser struct {
	ID   int64
	Name string
}

// Account 帳戶
type Account struct {
	ID            int64
	UserID        int64
	AccountNumber string
	Status        AccountStatus
	// Balance: 最小貨幣單位
	Balance        int64
	RegisteredAt   time.Time
	UnregisteredAt time.Time
}

// IsUnregistered 帳戶是否已解約
func (a *Account) IsUnregistered() bool {
	return a.Status == AccountStatusUnregistered
}

// UseBalance 扣款
func (a *Account) UseBalance(amount int64) error {
	if amount > a.Balance {
		return ErrAmountExceedBalance
	}
	a.Balance -= amount
	return nil
}

// CancelBalance 退回扣款
func (a *Account) CancelBalance(amount int64) {
	a.Balance += amount
}

// Unregister 解約，只記錄一次解約時間
func (a *Account) Unregister(now time.Time) {
	a.Status = AccountStatusUnregistered
	if a.UnregisteredAt.IsZero() {
		a.UnregisteredAt = now
	}
}

// NextAccountNumber 依最後一個帳號遞增產生新帳號，沒有任何帳戶時回傳 FirstAccountNumber
func NextAccountNumber(latest *Account) (string, error) {
	if latest == nil {
		return FirstAccountNumber, nil
	}
	n, err := strconv.ParseInt(latest.AccountNumber, 10, 64)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n+1, 10), nil
}
