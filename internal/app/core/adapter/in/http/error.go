package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
)

// errorCodeInternal 非業務錯誤一律回傳此代碼，不外露細節
const errorCodeInternal = "INTERNAL_SERVER_ERROR"

// statusOf 業務錯誤代碼對應的 HTTP 狀態碼
func statusOf(code domain.ErrorCode) int {
	switch code {
	case domain.ErrorCodeUserNotFound,
		domain.ErrorCodeAccountNotFound,
		domain.ErrorCodeTransactionNotFound:
		return fiber.StatusNotFound
	case domain.ErrorCodeUserAccountUnmatch,
		domain.ErrorCodeInvalidRequest,
		domain.ErrorCodeCancelMustFully,
		domain.ErrorCodeTransactionAccountUnmatch:
		return fiber.StatusBadRequest
	case domain.ErrorCodeAccountAlreadyUnregistered,
		domain.ErrorCodeAmountExceedBalance,
		domain.ErrorCodeMaxAccountPerUser,
		domain.ErrorCodeBalanceNotEmpty,
		domain.ErrorCodeAccountTransactionLock:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// newErrorHandler 統一把 handler 回傳的錯誤轉成 errorResponse
func newErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var businessErr *domain.Error
		if errors.As(err, &businessErr) {
			return c.Status(statusOf(businessErr.Code)).JSON(errorResponse{
				ErrorCode:    string(businessErr.Code),
				ErrorMessage: businessErr.Message,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code := string(domain.ErrorCodeInvalidRequest)
			if fiberErr.Code >= fiber.StatusInternalServerError {
				code = errorCodeInternal
			}
			return c.Status(fiberErr.Code).JSON(errorResponse{
				ErrorCode:    code,
				ErrorMessage: fiberErr.Message,
			})
		}

		logger.Error("http request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{
			ErrorCode:    errorCodeInternal,
			ErrorMessage: "internal server error",
		})
	}
}
