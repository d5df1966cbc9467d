package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// TransactionReply 交易相關方法的回應
type TransactionReply struct {
	AccountNumber     string
	TransactionID     string
	TransactionType   string
	TransactionResult string
	Amount            int64
	BalanceSnapshot   int64
	TransactedAt      time.Time
}

// AccountReply 開戶 / 解約的回應
type AccountReply struct {
	UserID         int64
	AccountNumber  string
	Balance        int64
	RegisteredAt   time.Time
	UnregisteredAt time.Time
}

// AccountBalance 帳戶列表的一筆
type AccountBalance struct {
	AccountNumber string
	Balance       int64
}

// AccountServiceClient AccountService 的客戶端
//
// 錯誤為 gRPC status，業務錯誤代碼用 ErrorCodeOf 取出
type AccountServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAccountServiceClient(cc grpc.ClientConnInterface) *AccountServiceClient {
	return &AccountServiceClient{cc: cc}
}

func (c *AccountServiceClient) invoke(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AccountServiceClient) UseBalance(ctx context.Context, userID int64, accountNumber string, amount int64, opts ...grpc.CallOption) (*TransactionReply, error) {
	out, err := c.invoke(ctx, MethodUseBalance, map[string]any{
		fieldUserID:        userID,
		fieldAccountNumber: accountNumber,
		fieldAmount:        amount,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return decodeTransaction(out)
}

func (c *AccountServiceClient) CancelBalance(ctx context.Context, transactionID string, accountNumber string, amount int64, opts ...grpc.CallOption) (*TransactionReply, error) {
	out, err := c.invoke(ctx, MethodCancelBalance, map[string]any{
		fieldTransactionID: transactionID,
		fieldAccountNumber: accountNumber,
		fieldAmount:        amount,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return decodeTransaction(out)
}

func (c *AccountServiceClient) QueryTransaction(ctx context.Context, transactionID string, opts ...grpc.CallOption) (*TransactionReply, error) {
	out, err := c.invoke(ctx, MethodQueryTransaction, map[string]any{
		fieldTransactionID: transactionID,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return decodeTransaction(out)
}

func (c *AccountServiceClient) CreateAccount(ctx context.Context, userID int64, initialBalance int64, opts ...grpc.CallOption) (*AccountReply, error) {
	out, err := c.invoke(ctx, MethodCreateAccount, map[string]any{
		fieldUserID:         userID,
		fieldInitialBalance: initialBalance,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return decodeAccount(out)
}

func (c *AccountServiceClient) DeleteAccount(ctx context.Context, userID int64, accountNumber string, opts ...grpc.CallOption) (*AccountReply, error) {
	out, err := c.invoke(ctx, MethodDeleteAccount, map[string]any{
		fieldUserID:        userID,
		fieldAccountNumber: accountNumber,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return decodeAccount(out)
}

func (c *AccountServiceClient) GetAccounts(ctx context.Context, userID int64, opts ...grpc.CallOption) ([]AccountBalance, error) {
	out, err := c.invoke(ctx, MethodGetAccounts, map[string]any{
		fieldUserID: userID,
	}, opts...)
	if err != nil {
		return nil, err
	}

	list := out.GetFields()[fieldAccounts].GetListValue().GetValues()
	accounts := make([]AccountBalance, 0, len(list))
	for _, v := range list {
		item := v.GetStructValue()
		if item == nil {
			return nil, fmt.Errorf("unexpected account entry %v", v)
		}
		balance, err := int64Field(item, fieldBalance)
		if err != nil {
			return nil, err
		}
		number, err := stringField(item, fieldAccountNumber)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, AccountBalance{AccountNumber: number, Balance: balance})
	}
	return accounts, nil
}

// replyDecoder 依序讀取欄位，遇到第一個錯誤後停止
type replyDecoder struct {
	st  *structpb.Struct
	err error
}

func (d *replyDecoder) readInt64(name string) int64 {
	if d.err != nil {
		return 0
	}
	var v int64
	v, d.err = int64Field(d.st, name)
	return v
}

func (d *replyDecoder) readString(name string) string {
	if d.err != nil {
		return ""
	}
	var v string
	v, d.err = stringField(d.st, name)
	return v
}

func (d *replyDecoder) readTime(name string) time.Time {
	s := d.readString(name)
	if d.err != nil {
		return time.Time{}
	}
	var t time.Time
	t, d.err = parseTime(s)
	return t
}

func decodeTransaction(st *structpb.Struct) (*TransactionReply, error) {
	d := &replyDecoder{st: st}
	reply := &TransactionReply{
		AccountNumber:     d.readString(fieldAccountNumber),
		TransactionID:     d.readString(fieldTransactionID),
		TransactionType:   d.readString(fieldTransactionType),
		TransactionResult: d.readString(fieldTransactionResult),
		Amount:            d.readInt64(fieldAmount),
		BalanceSnapshot:   d.readInt64(fieldBalanceSnapshot),
		TransactedAt:      d.readTime(fieldTransactedAt),
	}
	if d.err != nil {
		return nil, fmt.Errorf("decode transaction reply: %w", d.err)
	}
	return reply, nil
}

func decodeAccount(st *structpb.Struct) (*AccountReply, error) {
	d := &replyDecoder{st: st}
	reply := &AccountReply{
		UserID:         d.readInt64(fieldUserID),
		AccountNumber:  d.readString(fieldAccountNumber),
		Balance:        d.readInt64(fieldBalance),
		RegisteredAt:   d.readTime(fieldRegisteredAt),
		UnregisteredAt: d.readTime(fieldUnregisteredAt),
	}
	if d.err != nil {
		return nil, fmt.Errorf("decode account reply: %w", d.err)
	}
	return reply, nil
}
