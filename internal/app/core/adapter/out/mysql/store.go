package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-account-ledger/pkg/mysql"
)

// Store 以 MySQL (GORM) 實作的儲存層
// locking 為 true 時代表位於 DB 交易內，帳戶查詢會加上 SELECT ... FOR UPDATE
type Store struct {
	db      *gorm.DB
	locking bool
}

// NewStore 建立 MySQL 儲存層
func NewStore(client *mysql.Client) *Store {
	return &Store{db: client.DB()}
}

// Migrate 建立或更新資料表
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&sqlAccountUser{}, &sqlAccount{}, &sqlTransaction{})
}

// EnsureUsers 寫入使用者，已存在的 ID 略過
func (s *Store) EnsureUsers(ctx context.Context, users []domain.AccountUser) error {
	if len(users) == 0 {
		return nil
	}
	models := make([]sqlAccountUser, 0, len(users))
	for _, u := range users {
		models = append(models, sqlAccountUser{ID: u.ID, Name: u.Name})
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models).Error
}

// Atomic 在一個 DB 交易內執行 fn
func (s *Store) Atomic(ctx context.Context, fn func(store usecase.Store) error) error {
	if s.locking {
		// 已在交易內，沿用同一個 tx
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, locking: true})
	})
}

func (s *Store) Users() usecase.UserRepository               { return userRepository{s} }
func (s *Store) Accounts() usecase.AccountRepository         { return accountRepository{s} }
func (s *Store) Transactions() usecase.TransactionRepository { return transactionRepository{s} }

// accountQuery 交易內的帳戶查詢加悲觀鎖
func (s *Store) accountQuery(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	if s.locking {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// translateError 將 GORM 的查無資料轉成 usecase.ErrRecordNotFound
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return usecase.ErrRecordNotFound
	}
	return err
}

type userRepository struct{ s *Store }

func (r userRepository) FindByID(ctx context.Context, id int64) (*domain.AccountUser, error) {
	var m sqlAccountUser
	if err := r.s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return toDomainUser(&m), nil
}

type accountRepository struct{ s *Store }

func (r accountRepository) FindByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	var m sqlAccount
	if err := r.s.accountQuery(ctx).Where("account_number = ?", accountNumber).First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return toDomainAccount(&m), nil
}

func (r accountRepository) FindByUserID(ctx context.Context, userID int64) ([]*domain.Account, error) {
	var models []sqlAccount
	if err := r.s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	accounts := make([]*domain.Account, 0, len(models))
	for i := range models {
		accounts = append(accounts, toDomainAccount(&models[i]))
	}
	return accounts, nil
}

func (r accountRepository) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.s.db.WithContext(ctx).Model(&sqlAccount{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r accountRepository) FindLatest(ctx context.Context) (*domain.Account, error) {
	var m sqlAccount
	if err := r.s.accountQuery(ctx).Order("id DESC").First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return toDomainAccount(&m), nil
}

func (r accountRepository) Create(ctx context.Context, account *domain.Account) error {
	m := fromDomainAccount(account)
	if err := r.s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create account %s: %w", account.AccountNumber, err)
	}
	account.ID = m.ID
	return nil
}

func (r accountRepository) Save(ctx context.Context, account *domain.Account) error {
	m := fromDomainAccount(account)
	res := r.s.db.WithContext(ctx).Model(&sqlAccount{ID: account.ID}).Select("status", "balance", "unregistered_at").Updates(m)
	if res.Error != nil {
		return fmt.Errorf("save account %s: %w", account.AccountNumber, res.Error)
	}
	// MySQL 的 RowsAffected 只計算值有變動的列，不能用來判斷是否存在
	return nil
}

type transactionRepository struct{ s *Store }

func (r transactionRepository) FindByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	var m sqlTransaction
	err := r.s.db.WithContext(ctx).Preload("Account").Where("transaction_id = ?", transactionID).First(&m).Error
	if err != nil {
		return nil, translateError(err)
	}
	return toDomainTransaction(&m), nil
}

func (r transactionRepository) Create(ctx context.Context, tran *domain.Transaction) error {
	m := fromDomainTransaction(tran)
	// Account 只用於讀取時 Preload，寫入時略過關聯
	if err := r.s.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		return fmt.Errorf("create transaction %s: %w", tran.TransactionID, err)
	}
	tran.ID = m.ID
	return nil
}

var _ usecase.Store = (*Store)(nil)
