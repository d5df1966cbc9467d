package domain

import "errors"

// ErrorCode 業務錯誤代碼，對外回應時直接輸出
type ErrorCode string

const (
	ErrorCodeUserNotFound               ErrorCode = "USER_NOT_FOUND"
	ErrorCodeAccountNotFound            ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrorCodeUserAccountUnmatch         ErrorCode = "USER_ACCOUNT_UNMATCH"
	ErrorCodeAccountAlreadyUnregistered ErrorCode = "ACCOUNT_ALREADY_UNREGISTERED"
	ErrorCodeAmountExceedBalance        ErrorCode = "AMOUNT_EXCEED_BALANCE"
	ErrorCodeTransactionNotFound        ErrorCode = "TRANSACTION_NOT_FOUND"
	ErrorCodeCancelMustFully            ErrorCode = "CANCEL_MUST_FULLY"
	ErrorCodeTransactionAccountUnmatch  ErrorCode = "TRANSACTION_ACCOUNT_UNMATCH"
	ErrorCodeMaxAccountPerUser          ErrorCode = "MAX_ACCOUNT_PER_USER_10"
	ErrorCodeBalanceNotEmpty            ErrorCode = "BALANCE_NOT_EMPTY"
	ErrorCodeAccountTransactionLock     ErrorCode = "ACCOUNT_TRANSACTION_LOCK"
	ErrorCodeInvalidRequest             ErrorCode = "INVALID_REQUEST"
)

// Error 業務規則錯誤
//
// 以 Code 判斷是否為同一種錯誤，Message 僅供人閱讀
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is 讓 errors.Is 以錯誤代碼比對
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	// ErrUserNotFound 找不到使用者
	ErrUserNotFound = &Error{Code: ErrorCodeUserNotFound, Message: "user not found"}

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = &Error{Code: ErrorCodeAccountNotFound, Message: "account not found"}

	// ErrUserAccountUnmatch 使用者與帳戶擁有者不符
	ErrUserAccountUnmatch = &Error{Code: ErrorCodeUserAccountUnmatch, Message: "user and account owner do not match"}

	// ErrAccountAlreadyUnregistered 帳戶已解約
	ErrAccountAlreadyUnregistered = &Error{Code: ErrorCodeAccountAlreadyUnregistered, Message: "account is already unregistered"}

	// ErrAmountExceedBalance 金額超過餘額
	ErrAmountExceedBalance = &Error{Code: ErrorCodeAmountExceedBalance, Message: "amount exceeds account balance"}

	// ErrTransactionNotFound 找不到交易
	ErrTransactionNotFound = &Error{Code: ErrorCodeTransactionNotFound, Message: "transaction not found"}

	// ErrCancelMustFully 只能全額取消
	ErrCancelMustFully = &Error{Code: ErrorCodeCancelMustFully, Message: "partial cancel is not allowed"}

	// ErrTransactionAccountUnmatch 交易與帳戶不符
	ErrTransactionAccountUnmatch = &Error{Code: ErrorCodeTransactionAccountUnmatch, Message: "transaction does not belong to this account"}

	// ErrMaxAccountPerUser 每位使用者最多 10 個帳戶
	ErrMaxAccountPerUser = &Error{Code: ErrorCodeMaxAccountPerUser, Message: "a user can hold at most 10 accounts"}

	// ErrBalanceNotEmpty 餘額不為零，無法解約
	ErrBalanceNotEmpty = &Error{Code: ErrorCodeBalanceNotEmpty, Message: "account balance is not empty"}

	// ErrAccountTransactionLock 帳戶正在被其他交易使用
	ErrAccountTransactionLock = &Error{Code: ErrorCodeAccountTransactionLock, Message: "account is in use by another transaction"}

	// ErrInvalidRequest 請求參數不合法
	ErrInvalidRequest = &Error{Code: ErrorCodeInvalidRequest, Message: "invalid request"}
)

// NewInvalidRequest 帶欄位說明的 INVALID_REQUEST
func NewInvalidRequest(message string) *Error {
	return &Error{Code: ErrorCodeInvalidRequest, Message: message}
}

// CodeOf 取出錯誤鏈上第一個業務錯誤的代碼
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// IsBusinessError 判斷是否為業務規則錯誤 (基礎設施錯誤回傳 false)
func IsBusinessError(err error) bool {
	_, ok := CodeOf(err)
	return ok
}
