package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	grpc_adapter "github.com/JoeShih716/go-account-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
	grpcpool "github.com/JoeShih716/go-account-ledger/pkg/grpc"
)

const (
	Target        = "localhost:50051"
	TotalCount    = 10000
	Concurrency   = 100
	Amount        = 100
	CancelEveryN  = 2 // 每 N 筆成功扣款取消一筆
	InitialCredit = TotalCount * Amount
	CallTimeout   = 5 * time.Second
)

// UserIDs 依序嘗試的壓測使用者，需存在於 seed_users
var UserIDs = []int64{1, 2, 3}

func main() {
	zlog, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	pool := grpcpool.NewPool(
		grpcpool.WithLogger(zlog),
		grpcpool.WithKeepalive(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpcpool.WithDialOptions(grpc.WithDefaultCallOptions(grpc.WaitForReady(true))),
		grpcpool.WithInterceptor(timeoutInterceptor(CallTimeout)),
	)
	defer pool.Close()

	conn, err := pool.GetConnection(Target)
	if err != nil {
		zlog.Fatal("did not connect", zap.Error(err))
	}
	c := grpc_adapter.NewAccountServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	// 壓測帳戶，餘額需足夠所有扣款
	target, err := prepareAccount(ctx, c, zlog)
	if err != nil {
		zlog.Fatal("prepare account failed", zap.Error(err))
	}

	var (
		wg        sync.WaitGroup
		used      atomic.Int64
		canceled  atomic.Int64
		failed    atomic.Int64
		errorsMu  sync.Mutex
		errorCode = make(map[domain.ErrorCode]int)
	)
	sem := make(chan struct{}, Concurrency)
	startTime := time.Now()

	for i := 0; i < TotalCount; i++ {
		sem <- struct{}{}
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			reply, err := c.UseBalance(ctx, target.userID, target.accountNumber, Amount)
			if err == nil {
				used.Add(1)
				if idx%CancelEveryN == 0 {
					_, err = c.CancelBalance(ctx, reply.TransactionID, target.accountNumber, Amount)
					if err == nil {
						canceled.Add(1)
					}
				}
			}
			if err != nil {
				failed.Add(1)
				code, ok := grpc_adapter.ErrorCodeOf(err)
				if !ok {
					code = "UNKNOWN"
				}
				errorsMu.Lock()
				errorCode[code]++
				errorsMu.Unlock()
				if idx%1000 == 0 {
					zlog.Warn("request failed", zap.Int("idx", idx), zap.Error(err))
				}
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(startTime)

	balance, err := currentBalance(ctx, c, target.userID, target.accountNumber)
	if err != nil {
		zlog.Fatal("get accounts failed", zap.Error(err))
	}

	calls := used.Load() + canceled.Load() + failed.Load()
	fmt.Printf("Completed %d use requests in %v\n", TotalCount, elapsed)
	fmt.Printf("Used: %d, Canceled: %d, Failed: %d\n", used.Load(), canceled.Load(), failed.Load())
	fmt.Printf("Errors by code: %v\n", errorCode)
	fmt.Printf("RPS: %.2f\n", float64(calls)/elapsed.Seconds())

	// 餘額檢查：壓測前餘額 - 淨扣款
	expected := target.baseline - (used.Load()-canceled.Load())*Amount
	fmt.Printf("Final balance: %d (expected %d)\n", balance, expected)
	if balance != expected {
		zlog.Fatal("balance mismatch", zap.Int64("balance", balance), zap.Int64("expected", expected))
	}
}

type loadTarget struct {
	userID        int64
	accountNumber string
	baseline      int64
}

// prepareAccount 優先沿用餘額足夠的既有帳戶，沒有才開新帳戶；
// 使用者帳戶數已達上限時換下一個使用者
func prepareAccount(ctx context.Context, c *grpc_adapter.AccountServiceClient, zlog *zap.Logger) (*loadTarget, error) {
	for _, userID := range UserIDs {
		accounts, err := c.GetAccounts(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("get accounts of user %d: %w", userID, err)
		}
		var best *grpc_adapter.AccountBalance
		for i := range accounts {
			if accounts[i].Balance >= InitialCredit && (best == nil || accounts[i].Balance > best.Balance) {
				best = &accounts[i]
			}
		}
		if best != nil {
			zlog.Info("reusing account", zap.Int64("user_id", userID), zap.String("account_number", best.AccountNumber), zap.Int64("balance", best.Balance))
			return &loadTarget{userID: userID, accountNumber: best.AccountNumber, baseline: best.Balance}, nil
		}

		account, err := c.CreateAccount(ctx, userID, InitialCredit)
		if code, ok := grpc_adapter.ErrorCodeOf(err); ok && code == domain.ErrorCodeMaxAccountPerUser {
			zlog.Warn("user has no room for a new account", zap.Int64("user_id", userID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create account for user %d: %w", userID, err)
		}
		zlog.Info("account created", zap.Int64("user_id", userID), zap.String("account_number", account.AccountNumber))
		return &loadTarget{userID: userID, accountNumber: account.AccountNumber, baseline: InitialCredit}, nil
	}
	return nil, fmt.Errorf("no usable account for users %v", UserIDs)
}

func currentBalance(ctx context.Context, c *grpc_adapter.AccountServiceClient, userID int64, accountNumber string) (int64, error) {
	accounts, err := c.GetAccounts(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, a := range accounts {
		if a.AccountNumber == accountNumber {
			return a.Balance, nil
		}
	}
	return 0, fmt.Errorf("account %s not found", accountNumber)
}

// timeoutInterceptor 單次呼叫的逾時，不超過外層 ctx 的 deadline
func timeoutInterceptor(timeout time.Duration) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
