package http

import (
	"time"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/usecase"
)

// transactionResponse 扣款 / 取消扣款回應
type transactionResponse struct {
	AccountNumber     string    `json:"accountNumber"`
	TransactionResult string    `json:"transactionResult"`
	TransactionID     string    `json:"transactionId"`
	Amount            int64     `json:"amount"`
	TransactedAt      time.Time `json:"transactedAt"`
}

// queryTransactionResponse 交易查詢回應，多了交易類型
type queryTransactionResponse struct {
	AccountNumber     string    `json:"accountNumber"`
	TransactionType   string    `json:"transactionType"`
	TransactionResult string    `json:"transactionResult"`
	TransactionID     string    `json:"transactionId"`
	Amount            int64     `json:"amount"`
	TransactedAt      time.Time `json:"transactedAt"`
}

type createAccountResponse struct {
	UserID        int64     `json:"userId"`
	AccountNumber string    `json:"accountNumber"`
	RegisteredAt  time.Time `json:"registeredAt"`
}

type deleteAccountResponse struct {
	UserID         int64     `json:"userId"`
	AccountNumber  string    `json:"accountNumber"`
	UnregisteredAt time.Time `json:"unRegisteredAt"`
}

type accountResponse struct {
	AccountNumber string `json:"accountNumber"`
	Balance       int64  `json:"balance"`
}

// errorResponse 錯誤回應
type errorResponse struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func newTransactionResponse(dto *usecase.TransactionDTO) transactionResponse {
	return transactionResponse{
		AccountNumber:     dto.AccountNumber,
		TransactionResult: string(dto.Result),
		TransactionID:     dto.TransactionID,
		Amount:            dto.Amount,
		TransactedAt:      dto.TransactedAt,
	}
}

func newQueryTransactionResponse(dto *usecase.TransactionDTO) queryTransactionResponse {
	return queryTransactionResponse{
		AccountNumber:     dto.AccountNumber,
		TransactionType:   string(dto.Type),
		TransactionResult: string(dto.Result),
		TransactionID:     dto.TransactionID,
		Amount:            dto.Amount,
		TransactedAt:      dto.TransactedAt,
	}
}
