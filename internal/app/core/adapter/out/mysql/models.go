package mysql

import (
	"time"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
)

// sqlAccountUser 對應資料庫的 account_users 表
type sqlAccountUser struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"type:varchar(64)"`
	CreatedAt time.Time
}

func (*sqlAccountUser) TableName() string {
	return "account_users"
}

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	UserID         int64  `gorm:"index"`
	AccountNumber  string `gorm:"type:varchar(10);uniqueIndex"`
	Status         string `gorm:"type:varchar(16)"`
	Balance        int64
	RegisteredAt   time.Time
	UnregisteredAt *time.Time
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlTransaction 對應資料庫的 transactions 表
type sqlTransaction struct {
	ID              int64      `gorm:"primaryKey;autoIncrement"`
	TransactionID   string     `gorm:"type:char(32);uniqueIndex"` // 對應 domain.Transaction.TransactionID
	AccountID       int64      `gorm:"index"`
	Account         sqlAccount `gorm:"foreignKey:AccountID"`
	Type            string     `gorm:"type:varchar(8)"`
	Result          string     `gorm:"type:char(1)"`
	Amount          int64
	BalanceSnapshot int64
	TransactedAt    time.Time
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

func toDomainUser(m *sqlAccountUser) *domain.AccountUser {
	return &domain.AccountUser{ID: m.ID, Name: m.Name}
}

func toDomainAccount(m *sqlAccount) *domain.Account {
	account := &domain.Account{
		ID:            m.ID,
		UserID:        m.UserID,
		AccountNumber: m.AccountNumber,
		Status:        domain.AccountStatus(m.Status),
		Balance:       m.Balance,
		RegisteredAt:  m.RegisteredAt,
	}
	if m.UnregisteredAt != nil {
		account.UnregisteredAt = *m.UnregisteredAt
	}
	return account
}

func fromDomainAccount(a *domain.Account) *sqlAccount {
	m := &sqlAccount{
		ID:            a.ID,
		UserID:        a.UserID,
		AccountNumber: a.AccountNumber,
		Status:        string(a.Status),
		Balance:       a.Balance,
		RegisteredAt:  a.RegisteredAt,
	}
	if !a.UnregisteredAt.IsZero() {
		unregisteredAt := a.UnregisteredAt
		m.UnregisteredAt = &unregisteredAt
	}
	return m
}

func toDomainTransaction(m *sqlTransaction) *domain.Transaction {
	return &domain.Transaction{
		ID:              m.ID,
		TransactionID:   m.TransactionID,
		AccountID:       m.AccountID,
		AccountNumber:   m.Account.AccountNumber,
		Type:            domain.TransactionType(m.Type),
		Result:          domain.TransactionResult(m.Result),
		Amount:          m.Amount,
		BalanceSnapshot: m.BalanceSnapshot,
		TransactedAt:    m.TransactedAt,
	}
}

func fromDomainTransaction(t *domain.Transaction) *sqlTransaction {
	return &sqlTransaction{
		ID:              t.ID,
		TransactionID:   t.TransactionID,
		AccountID:       t.AccountID,
		Type:            string(t.Type),
		Result:          string(t.Result),
		Amount:          t.Amount,
		BalanceSnapshot: t.BalanceSnapshot,
		TransactedAt:    t.TransactedAt,
	}
}
