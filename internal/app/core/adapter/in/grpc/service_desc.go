package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName gRPC 服務全名
const ServiceName = "ledger.v1.AccountService"

// 方法名稱
const (
	MethodCreateAccount    = "CreateAccount"
	MethodDeleteAccount    = "DeleteAccount"
	MethodGetAccounts      = "GetAccounts"
	MethodUseBalance       = "UseBalance"
	MethodCancelBalance    = "CancelBalance"
	MethodQueryTransaction = "QueryTransaction"
)

// FullMethod 回傳 "/ledger.v1.AccountService/<method>"
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// AccountServiceServer 伺服端介面
//
// 請求與回應皆為 google.protobuf.Struct，欄位名稱為 snake_case
type AccountServiceServer interface {
	CreateAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetAccounts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UseBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CancelBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	QueryTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv AccountServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// unaryHandler 產生 grpc method handler，負責解碼與串接攔截器
func unaryHandler(method string, call unaryCall) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(AccountServiceServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AccountServiceDesc 手寫的 ServiceDesc，等同 protoc 產生的描述
var AccountServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AccountServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: MethodCreateAccount,
			Handler:    unaryHandler(MethodCreateAccount, AccountServiceServer.CreateAccount),
		},
		{
			MethodName: MethodDeleteAccount,
			Handler:    unaryHandler(MethodDeleteAccount, AccountServiceServer.DeleteAccount),
		},
		{
			MethodName: MethodGetAccounts,
			Handler:    unaryHandler(MethodGetAccounts, AccountServiceServer.GetAccounts),
		},
		{
			MethodName: MethodUseBalance,
			Handler:    unaryHandler(MethodUseBalance, AccountServiceServer.UseBalance),
		},
		{
			MethodName: MethodCancelBalance,
			Handler:    unaryHandler(MethodCancelBalance, AccountServiceServer.CancelBalance),
		},
		{
			MethodName: MethodQueryTransaction,
			Handler:    unaryHandler(MethodQueryTransaction, AccountServiceServer.QueryTransaction),
		},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterAccountServiceServer 註冊服務
func RegisterAccountServiceServer(s grpc.ServiceRegistrar, srv AccountServiceServer) {
	s.RegisterService(&AccountServiceDesc, srv)
}
