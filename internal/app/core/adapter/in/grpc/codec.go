package grpc

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/core/usecase"
)

// 欄位名稱
const (
	fieldUserID            = "user_id"
	fieldAccountNumber     = "account_number"
	fieldAmount            = "amount"
	fieldInitialBalance    = "initial_balance"
	fieldBalance           = "balance"
	fieldTransactionID     = "transaction_id"
	fieldTransactionType   = "transaction_type"
	fieldTransactionResult = "transaction_result"
	fieldBalanceSnapshot   = "balance_snapshot"
	fieldTransactedAt      = "transacted_at"
	fieldRegisteredAt      = "registered_at"
	fieldUnregisteredAt    = "unregistered_at"
	fieldAccounts          = "accounts"
)

// int64Field 取整數欄位，缺少時回傳 0 交給後續檢查
func int64Field(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, domain.NewInvalidRequest(fmt.Sprintf("%s must be a number", name))
	}
	f := n.NumberValue
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, domain.NewInvalidRequest(fmt.Sprintf("%s must be an integer", name))
	}
	return int64(f), nil
}

// stringField 取字串欄位，缺少時回傳空字串
func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", domain.NewInvalidRequest(fmt.Sprintf("%s must be a string", name))
	}
	return s.StringValue, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func transactionFields(dto *usecase.TransactionDTO) map[string]any {
	return map[string]any{
		fieldAccountNumber:     dto.AccountNumber,
		fieldTransactionID:     dto.TransactionID,
		fieldTransactionType:   string(dto.Type),
		fieldTransactionResult: string(dto.Result),
		fieldAmount:            dto.Amount,
		fieldBalanceSnapshot:   dto.BalanceSnapshot,
		fieldTransactedAt:      formatTime(dto.TransactedAt),
	}
}

func accountFields(dto *usecase.AccountDTO) map[string]any {
	return map[string]any{
		fieldUserID:         dto.UserID,
		fieldAccountNumber:  dto.AccountNumber,
		fieldBalance:        dto.Balance,
		fieldRegisteredAt:   formatTime(dto.RegisteredAt),
		fieldUnregisteredAt: formatTime(dto.UnregisteredAt),
	}
}
