package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
)

// 單筆交易金額範圍，需與下方 validate tag 一致
const (
	MinTransactionAmount int64 = 10
	MaxTransactionAmount int64 = 1_000_000_000
)

// 傳輸層在進入 BalanceWorkflow 之前呼叫 ValidateRequest，
// 不合法的請求回傳 INVALID_REQUEST，不會留下失敗交易紀錄。

// UseBalanceRequest 扣款請求
type UseBalanceRequest struct {
	UserID        int64  `json:"userId" validate:"min=1"`
	AccountNumber string `json:"accountNumber" validate:"len=10"`
	Amount        int64  `json:"amount" validate:"min=10,max=1000000000"`
}

// CancelBalanceRequest 取消扣款請求
type CancelBalanceRequest struct {
	TransactionID string `json:"transactionId" validate:"required,notblank"`
	AccountNumber string `json:"accountNumber" validate:"len=10"`
	Amount        int64  `json:"amount" validate:"min=10,max=1000000000"`
}

// CreateAccountRequest 開戶請求
type CreateAccountRequest struct {
	UserID         int64 `json:"userId" validate:"min=1"`
	InitialBalance int64 `json:"initialBalance" validate:"min=0"`
}

// DeleteAccountRequest 解約請求
type DeleteAccountRequest struct {
	UserID        int64  `json:"userId" validate:"min=1"`
	AccountNumber string `json:"accountNumber" validate:"len=10"`
}

// GetAccountsRequest 查詢帳戶列表
type GetAccountsRequest struct {
	UserID int64 `json:"userId" validate:"min=1"`
}

var (
	validatorOnce     sync.Once
	validatorInstance *validator.Validate
)

// requestValidator 全域共用一個 validator，內部會快取 struct 的 tag 解析結果
func requestValidator() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// 錯誤訊息用 json 欄位名稱
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		validatorInstance = v
	})
	return validatorInstance
}

// ValidateRequest 依 validate tag 檢查請求，第一個不合法的欄位轉成 INVALID_REQUEST
func ValidateRequest(req any) error {
	err := requestValidator().Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return domain.NewInvalidRequest(fieldErrorMessage(fieldErrs[0]))
	}
	return domain.NewInvalidRequest(err.Error())
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required", "notblank":
		return field + " must not be blank"
	case "len":
		return fmt.Sprintf("%s must be %s characters", field, fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
}
