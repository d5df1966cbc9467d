package grpc

import (
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
)

// ErrorDomain 放在 ErrorInfo.Domain，用來辨識本服務的業務錯誤
const ErrorDomain = "account.ledger"

func grpcCodeOf(code domain.ErrorCode) codes.Code {
	switch code {
	case domain.ErrorCodeUserNotFound,
		domain.ErrorCodeAccountNotFound,
		domain.ErrorCodeTransactionNotFound:
		return codes.NotFound
	case domain.ErrorCodeInvalidRequest,
		domain.ErrorCodeUserAccountUnmatch,
		domain.ErrorCodeCancelMustFully,
		domain.ErrorCodeTransactionAccountUnmatch:
		return codes.InvalidArgument
	case domain.ErrorCodeAccountAlreadyUnregistered,
		domain.ErrorCodeAmountExceedBalance,
		domain.ErrorCodeMaxAccountPerUser,
		domain.ErrorCodeBalanceNotEmpty:
		return codes.FailedPrecondition
	case domain.ErrorCodeAccountTransactionLock:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

// toStatusError 業務錯誤轉成帶 ErrorInfo 的 gRPC status，其餘錯誤一律 Internal
func toStatusError(err error) error {
	var businessErr *domain.Error
	if !errors.As(err, &businessErr) {
		return status.Error(codes.Internal, "internal error")
	}

	st := status.New(grpcCodeOf(businessErr.Code), businessErr.Message)
	withDetails, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: string(businessErr.Code),
		Domain: ErrorDomain,
	})
	if detailErr != nil {
		return st.Err()
	}
	return withDetails.Err()
}

// ErrorCodeOf 從 gRPC 錯誤取出業務錯誤代碼
func ErrorCodeOf(err error) (domain.ErrorCode, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return "", false
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return domain.ErrorCode(info.GetReason()), true
		}
	}
	return "", false
}
