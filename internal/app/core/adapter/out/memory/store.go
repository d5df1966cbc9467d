package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-account-ledger/pkg/wal"
)

var (
	// ErrDuplicateAccountNumber 帳號重複 (unique 限制)
	ErrDuplicateAccountNumber = errors.New("duplicate account number")
	// ErrDuplicateTransactionID 交易編號重複 (unique 限制)
	ErrDuplicateTransactionID = errors.New("duplicate transaction id")
	// ErrWALWriteFailed 寫入 WAL 失敗
	ErrWALWriteFailed = errors.New("wal write failed")
)

// walEntry 一次 commit 的所有變更，寫成 WAL 的一行
type walEntry struct {
	Users        []*domain.AccountUser `json:"users,omitempty"`
	Accounts     []*domain.Account     `json:"accounts,omitempty"`
	Transactions []*domain.Transaction `json:"transactions,omitempty"`
}

func (e *walEntry) empty() bool {
	return len(e.Users) == 0 && len(e.Accounts) == 0 && len(e.Transactions) == 0
}

// Store 是一個使用 Mutex 實現的記憶體儲存層
//
// 結構:
//
//	mu: 保護所有資料，Atomic 期間全程持有
//	users / accounts / transactions: 資料 Map
//	wal: Write-Ahead Log 實例 (nil 代表純記憶體)
type Store struct {
	mu sync.Mutex

	users            map[int64]*domain.AccountUser
	accounts         map[int64]*domain.Account
	accountsByNumber map[string]int64
	transactions     map[string]*domain.Transaction

	lastAccountID     int64
	lastTransactionID int64

	// Write-Ahead Logging
	wal *wal.WAL
}

// NewStore 建立一個新的記憶體 Store，有 WAL 時先從 WAL 恢復資料
//
// 參數:
//
//	w: Write-Ahead Log 實例，可為 nil
//
// 回傳:
//
//	*Store: Store 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewStore(w *wal.WAL) (*Store, error) {
	s := &Store{
		users:            make(map[int64]*domain.AccountUser),
		accounts:         make(map[int64]*domain.Account),
		accountsByNumber: make(map[string]int64),
		transactions:     make(map[string]*domain.Transaction),
		wal:              w,
	}
	if w == nil {
		return s, nil
	}
	if err := s.recoverFromWAL(); err != nil {
		return nil, fmt.Errorf("recover from wal: %w", err)
	}
	return s, nil
}

// recoverFromWAL 依序重放 WAL，只有 NewStore 呼叫，無需 Lock (單執行緒)
func (s *Store) recoverFromWAL() error {
	return s.wal.ReadAll(func(jsonRaw []byte) error {
		var entry walEntry
		if err := json.Unmarshal(jsonRaw, &entry); err != nil {
			return err
		}
		s.apply(&entry)
		return nil
	})
}

// apply 將變更套用到記憶體，呼叫端需持有 mu (或在初始化階段)
func (s *Store) apply(entry *walEntry) {
	for _, u := range entry.Users {
		cp := *u
		s.users[u.ID] = &cp
	}
	for _, a := range entry.Accounts {
		cp := *a
		s.accounts[a.ID] = &cp
		s.accountsByNumber[a.AccountNumber] = a.ID
		if a.ID > s.lastAccountID {
			s.lastAccountID = a.ID
		}
	}
	for _, t := range entry.Transactions {
		cp := *t
		s.transactions[t.TransactionID] = &cp
		if t.ID > s.lastTransactionID {
			s.lastTransactionID = t.ID
		}
	}
}

// commit 先寫 WAL 再更新記憶體
func (s *Store) commit(entry *walEntry) error {
	if entry.empty() {
		return nil
	}
	if s.wal != nil {
		if err := s.wal.Write(entry); err != nil {
			return fmt.Errorf("%w: %v", ErrWALWriteFailed, err)
		}
	}
	s.apply(entry)
	return nil
}

// AddUser 新增或覆蓋使用者 (使用者 CRUD 不在服務範圍內，由設定檔 seed)
func (s *Store) AddUser(ctx context.Context, user *domain.AccountUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	return s.commit(&walEntry{Users: []*domain.AccountUser{&cp}})
}

// EnsureUsers 寫入設定檔的使用者，已存在的 ID 略過
func (s *Store) EnsureUsers(ctx context.Context, users []domain.AccountUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := &walEntry{}
	for i := range users {
		if _, ok := s.users[users[i].ID]; ok {
			continue
		}
		cp := users[i]
		entry.Users = append(entry.Users, &cp)
	}
	return s.commit(entry)
}

// TransactionCount 帳本內的交易筆數
func (s *Store) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactions)
}

// Atomic 持有鎖執行 fn，fn 成功才寫 WAL 並套用變更
func (s *Store) Atomic(ctx context.Context, fn func(store usecase.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uow := newUnitOfWork(s)
	if err := fn(uow); err != nil {
		return err
	}
	return s.commit(uow.entry())
}

func (s *Store) Users() usecase.UserRepository {
	return autoUsers{store: s}
}

func (s *Store) Accounts() usecase.AccountRepository {
	return autoAccounts{store: s}
}

func (s *Store) Transactions() usecase.TransactionRepository {
	return autoTransactions{store: s}
}

// unitOfWork 是 Atomic 期間的檢視：先讀暫存變更，再讀已提交資料
type unitOfWork struct {
	store *Store

	accounts      map[int64]*domain.Account
	accountOrder  []int64
	transactions  []*domain.Transaction
	nextAccountID int64
	nextTranID    int64
}

func newUnitOfWork(s *Store) *unitOfWork {
	return &unitOfWork{
		store:         s,
		accounts:      make(map[int64]*domain.Account),
		nextAccountID: s.lastAccountID,
		nextTranID:    s.lastTransactionID,
	}
}

func (u *unitOfWork) entry() *walEntry {
	entry := &walEntry{Transactions: u.transactions}
	for _, id := range u.accountOrder {
		entry.Accounts = append(entry.Accounts, u.accounts[id])
	}
	return entry
}

func (u *unitOfWork) Users() usecase.UserRepository               { return uowUsers{u} }
func (u *unitOfWork) Accounts() usecase.AccountRepository         { return uowAccounts{u} }
func (u *unitOfWork) Transactions() usecase.TransactionRepository { return uowTransactions{u} }

// Atomic 已經在交易邊界內，直接執行
func (u *unitOfWork) Atomic(ctx context.Context, fn func(store usecase.Store) error) error {
	return fn(u)
}

// account 取得帳戶的最新版本 (暫存優先)
func (u *unitOfWork) account(id int64) (*domain.Account, bool) {
	if a, ok := u.accounts[id]; ok {
		return a, true
	}
	a, ok := u.store.accounts[id]
	return a, ok
}

func (u *unitOfWork) stage(account *domain.Account) {
	if _, ok := u.accounts[account.ID]; !ok {
		u.accountOrder = append(u.accountOrder, account.ID)
	}
	cp := *account
	u.accounts[account.ID] = &cp
}

type uowUsers struct{ u *unitOfWork }

func (r uowUsers) FindByID(ctx context.Context, id int64) (*domain.AccountUser, error) {
	user, ok := r.u.store.users[id]
	if !ok {
		return nil, usecase.ErrRecordNotFound
	}
	cp := *user
	return &cp, nil
}

type uowAccounts struct{ u *unitOfWork }

func (r uowAccounts) FindByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	for _, a := range r.u.accounts {
		if a.AccountNumber == accountNumber {
			cp := *a
			return &cp, nil
		}
	}
	id, ok := r.u.store.accountsByNumber[accountNumber]
	if !ok {
		return nil, usecase.ErrRecordNotFound
	}
	a, _ := r.u.account(id)
	cp := *a
	return &cp, nil
}

func (r uowAccounts) FindByUserID(ctx context.Context, userID int64) ([]*domain.Account, error) {
	ids := make(map[int64]struct{})
	for id, a := range r.u.store.accounts {
		if a.UserID == userID {
			ids[id] = struct{}{}
		}
	}
	for id, a := range r.u.accounts {
		if a.UserID == userID {
			ids[id] = struct{}{}
		}
	}

	out := make([]*domain.Account, 0, len(ids))
	for id := range ids {
		a, _ := r.u.account(id)
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r uowAccounts) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	accounts, err := r.FindByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return int64(len(accounts)), nil
}

func (r uowAccounts) FindLatest(ctx context.Context) (*domain.Account, error) {
	if r.u.nextAccountID == 0 {
		return nil, usecase.ErrRecordNotFound
	}
	a, ok := r.u.account(r.u.nextAccountID)
	if !ok {
		return nil, usecase.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (r uowAccounts) Create(ctx context.Context, account *domain.Account) error {
	if _, err := r.FindByNumber(ctx, account.AccountNumber); err == nil {
		return ErrDuplicateAccountNumber
	}
	r.u.nextAccountID++
	account.ID = r.u.nextAccountID
	r.u.stage(account)
	return nil
}

func (r uowAccounts) Save(ctx context.Context, account *domain.Account) error {
	if _, ok := r.u.account(account.ID); !ok {
		return fmt.Errorf("save account %d: %w", account.ID, usecase.ErrRecordNotFound)
	}
	r.u.stage(account)
	return nil
}

type uowTransactions struct{ u *unitOfWork }

func (r uowTransactions) FindByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	for _, t := range r.u.transactions {
		if t.TransactionID == transactionID {
			cp := *t
			return &cp, nil
		}
	}
	t, ok := r.u.store.transactions[transactionID]
	if !ok {
		return nil, usecase.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r uowTransactions) Create(ctx context.Context, tran *domain.Transaction) error {
	if _, err := r.FindByTransactionID(ctx, tran.TransactionID); err == nil {
		return ErrDuplicateTransactionID
	}
	r.u.nextTranID++
	tran.ID = r.u.nextTranID
	cp := *tran
	r.u.transactions = append(r.u.transactions, &cp)
	return nil
}

// autoUsers / autoAccounts / autoTransactions 在 Atomic 外呼叫時，每個操作自成一個交易

type autoUsers struct{ store *Store }

func (r autoUsers) FindByID(ctx context.Context, id int64) (user *domain.AccountUser, err error) {
	err = r.store.Atomic(ctx, func(s usecase.Store) error {
		user, err = s.Users().FindByID(ctx, id)
		return err
	})
	return user, err
}

type autoAccounts struct{ store *Store }

func (r autoAccounts) FindByNumber(ctx context.Context, accountNumber string) (account *domain.Account, err error) {
	err = r.store.Atomic(ctx, func(s usecase.Store) error {
		account, err = s.Accounts().FindByNumber(ctx, accountNumber)
		return err
	})
	return account, err
}

func (r autoAccounts) FindByUserID(ctx context.Context, userID int64) (accounts []*domain.Account, err error) {
	err = r.store.Atomic(ctx, func(s usecase.Store) error {
		accounts, err = s.Accounts().FindByUserID(ctx, userID)
		return err
	})
	return accounts, err
}

func (r autoAccounts) CountByUserID(ctx context.Context, userID int64) (count int64, err error) {
	err = r.store.Atomic(ctx, func(s usecase.Store) error {
		count, err = s.Accounts().CountByUserID(ctx, userID)
		return err
	})
	return count, err
}

func (r autoAccounts) FindLatest(ctx context.Context) (account *domain.Account, err error) {
	err = r.store.Atomic(ctx, func(s usecase.Store) error {
		account, err = s.Accounts().FindLatest(ctx)
		return err
	})
	return account, err
}

func (r autoAccounts) Create(ctx context.Context, account *domain.Account) error {
	return r.store.Atomic(ctx, func(s usecase.Store) error {
		return s.Accounts().Create(ctx, account)
	})
}

func (r autoAccounts) Save(ctx context.Context, account *domain.Account) error {
	return r.store.Atomic(ctx, func(s usecase.Store) error {
		return s.Accounts().Save(ctx, account)
	})
}

type autoTransactions struct{ store *Store }

func (r autoTransactions) FindByTransactionID(ctx context.Context, transactionID string) (tran *domain.Transaction, err error) {
	err = r.store.Atomic(ctx, func(s usecase.Store) error {
		tran, err = s.Transactions().FindByTransactionID(ctx, transactionID)
		return err
	})
	return tran, err
}

func (r autoTransactions) Create(ctx context.Context, tran *domain.Transaction) error {
	return r.store.Atomic(ctx, func(s usecase.Store) error {
		return s.Transactions().Create(ctx, tran)
	})
}

var _ usecase.Store = (*Store)(nil)
var _ usecase.Store = (*unitOfWork)(nil)
