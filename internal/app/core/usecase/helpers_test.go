package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/core/usecase"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// sequentialIDs 產生可預期的交易編號
func sequentialIDs() func() string {
	var n int64
	return func() string {
		return fmt.Sprintf("%032d", atomic.AddInt64(&n, 1))
	}
}

func testOptions() []usecase.Option {
	return []usecase.Option{
		usecase.WithClock(func() time.Time { return fixedNow }),
		usecase.WithTransactionIDGenerator(sequentialIDs()),
	}
}

// newSeededStore 使用者 1、2，帳戶 1000000000 屬於使用者 2，餘額 10000
func newSeededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()

	store, err := memory.NewStore(nil)
	require.NoError(t, err)
	require.NoError(t, store.AddUser(ctx, &domain.AccountUser{ID: 1, Name: "alice"}))
	require.NoError(t, store.AddUser(ctx, &domain.AccountUser{ID: 2, Name: "bob"}))
	addAccount(t, store, 2, "1000000000", 10000, domain.AccountStatusInUse)
	return store
}

func addAccount(t *testing.T, store usecase.Store, userID int64, number string, balance int64, status domain.AccountStatus) *domain.Account {
	t.Helper()
	account := &domain.Account{
		UserID:        userID,
		AccountNumber: number,
		Status:        status,
		Balance:       balance,
		RegisteredAt:  fixedNow,
	}
	require.NoError(t, store.Accounts().Create(context.Background(), account))
	return account
}

func balanceOf(t *testing.T, store usecase.Store, number string) int64 {
	t.Helper()
	account, err := store.Accounts().FindByNumber(context.Background(), number)
	require.NoError(t, err)
	return account.Balance
}

// recordingStore 記錄所有新增的交易，並可讓交易寫入失敗
type recordingStore struct {
	usecase.Store
	created     []*domain.Transaction
	failCreates bool
	parent      *recordingStore
}

var errStoreDown = errors.New("store unavailable")

func (s *recordingStore) Transactions() usecase.TransactionRepository {
	return &recordingTransactions{TransactionRepository: s.Store.Transactions(), store: s}
}

func (s *recordingStore) Atomic(ctx context.Context, fn func(store usecase.Store) error) error {
	return s.Store.Atomic(ctx, func(inner usecase.Store) error {
		return fn(&recordingStore{Store: inner, failCreates: s.failCreates, parent: s})
	})
}

type recordingTransactions struct {
	usecase.TransactionRepository
	store *recordingStore
}

func (r *recordingTransactions) Create(ctx context.Context, tran *domain.Transaction) error {
	if r.store.failCreates {
		return errStoreDown
	}
	if err := r.TransactionRepository.Create(ctx, tran); err != nil {
		return err
	}
	root := r.store
	for root.parent != nil {
		root = root.parent
	}
	cp := *tran
	root.created = append(root.created, &cp)
	return nil
}

func (s *recordingStore) results() (success, fail int) {
	for _, tran := range s.created {
		if tran.Result == domain.TransactionResultSuccess {
			success++
		} else {
			fail++
		}
	}
	return success, fail
}
