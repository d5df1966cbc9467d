package grpc

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/core/usecase"
)

// GrpcServer AccountService 的 gRPC 實作
type GrpcServer struct {
	workflow *usecase.BalanceWorkflow
	accounts *usecase.AccountService
	logger   *zap.Logger
}

func NewGrpcServer(workflow *usecase.BalanceWorkflow, accounts *usecase.AccountService, logger *zap.Logger) *GrpcServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrpcServer{
		workflow: workflow,
		accounts: accounts,
		logger:   logger,
	}
}

// NewServer 建立 grpc.Server，註冊 AccountService、Health 與 Reflection
//
// 回傳的 health.Server 供關機時切換成 NOT_SERVING
func NewServer(srv *GrpcServer, logger *zap.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(LoggingInterceptor(logger))}, opts...)
	s := grpc.NewServer(opts...)
	RegisterAccountServiceServer(s, srv)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)

	reflection.Register(s) // 方便 grpcurl 之類的工具測試
	return s, healthServer
}

func (s *GrpcServer) UseBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := int64Field(req, fieldUserID)
	if err != nil {
		return nil, s.fail(err)
	}
	accountNumber, err := stringField(req, fieldAccountNumber)
	if err != nil {
		return nil, s.fail(err)
	}
	amount, err := int64Field(req, fieldAmount)
	if err != nil {
		return nil, s.fail(err)
	}
	in := usecase.UseBalanceRequest{UserID: userID, AccountNumber: accountNumber, Amount: amount}
	if err := usecase.ValidateRequest(in); err != nil {
		return nil, s.fail(err)
	}

	dto, err := s.workflow.UseBalance(ctx, in.UserID, in.AccountNumber, in.Amount)
	if err != nil {
		return nil, s.fail(err)
	}
	return newStruct(transactionFields(dto))
}

func (s *GrpcServer) CancelBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	transactionID, err := stringField(req, fieldTransactionID)
	if err != nil {
		return nil, s.fail(err)
	}
	accountNumber, err := stringField(req, fieldAccountNumber)
	if err != nil {
		return nil, s.fail(err)
	}
	amount, err := int64Field(req, fieldAmount)
	if err != nil {
		return nil, s.fail(err)
	}
	in := usecase.CancelBalanceRequest{TransactionID: transactionID, AccountNumber: accountNumber, Amount: amount}
	if err := usecase.ValidateRequest(in); err != nil {
		return nil, s.fail(err)
	}

	dto, err := s.workflow.CancelBalance(ctx, in.TransactionID, in.AccountNumber, in.Amount)
	if err != nil {
		return nil, s.fail(err)
	}
	return newStruct(transactionFields(dto))
}

func (s *GrpcServer) QueryTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	transactionID, err := stringField(req, fieldTransactionID)
	if err != nil {
		return nil, s.fail(err)
	}
	dto, err := s.workflow.QueryTransaction(ctx, transactionID)
	if err != nil {
		return nil, s.fail(err)
	}
	return newStruct(transactionFields(dto))
}

func (s *GrpcServer) CreateAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := int64Field(req, fieldUserID)
	if err != nil {
		return nil, s.fail(err)
	}
	initialBalance, err := int64Field(req, fieldInitialBalance)
	if err != nil {
		return nil, s.fail(err)
	}
	in := usecase.CreateAccountRequest{UserID: userID, InitialBalance: initialBalance}
	if err := usecase.ValidateRequest(in); err != nil {
		return nil, s.fail(err)
	}

	dto, err := s.accounts.CreateAccount(ctx, in.UserID, in.InitialBalance)
	if err != nil {
		return nil, s.fail(err)
	}
	return newStruct(accountFields(dto))
}

func (s *GrpcServer) DeleteAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := int64Field(req, fieldUserID)
	if err != nil {
		return nil, s.fail(err)
	}
	accountNumber, err := stringField(req, fieldAccountNumber)
	if err != nil {
		return nil, s.fail(err)
	}
	in := usecase.DeleteAccountRequest{UserID: userID, AccountNumber: accountNumber}
	if err := usecase.ValidateRequest(in); err != nil {
		return nil, s.fail(err)
	}

	dto, err := s.accounts.DeleteAccount(ctx, in.UserID, in.AccountNumber)
	if err != nil {
		return nil, s.fail(err)
	}
	return newStruct(accountFields(dto))
}

func (s *GrpcServer) GetAccounts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := int64Field(req, fieldUserID)
	if err != nil {
		return nil, s.fail(err)
	}
	if err := usecase.ValidateRequest(usecase.GetAccountsRequest{UserID: userID}); err != nil {
		return nil, s.fail(err)
	}

	accounts, err := s.accounts.GetAccountsByUserID(ctx, userID)
	if err != nil {
		return nil, s.fail(err)
	}
	list := make([]any, 0, len(accounts))
	for _, a := range accounts {
		list = append(list, map[string]any{
			fieldAccountNumber: a.AccountNumber,
			fieldBalance:       a.Balance,
		})
	}
	return newStruct(map[string]any{fieldAccounts: list})
}

// fail 非業務錯誤在這裡留下細節，對外只回 Internal
func (s *GrpcServer) fail(err error) error {
	if !domain.IsBusinessError(err) {
		s.logger.Error("account service failed", zap.Error(err))
	}
	return toStatusError(err)
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, toStatusError(err)
	}
	return st, nil
}

var _ AccountServiceServer = (*GrpcServer)(nil)
