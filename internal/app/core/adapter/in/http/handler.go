package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/JoeShih716/go-account-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/core/usecase"
)

// Handler REST 入口，交易操作都經過 BalanceWorkflow
type Handler struct {
	workflow *usecase.BalanceWorkflow
	accounts *usecase.AccountService
}

func NewHandler(workflow *usecase.BalanceWorkflow, accounts *usecase.AccountService) *Handler {
	return &Handler{
		workflow: workflow,
		accounts: accounts,
	}
}

// parseBody 解析 JSON body 並檢查欄位，格式錯誤視為 INVALID_REQUEST
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return domain.NewInvalidRequest("malformed request body: " + err.Error())
	}
	return usecase.ValidateRequest(out)
}

// UseBalance POST /transaction/use
func (h *Handler) UseBalance(c *fiber.Ctx) error {
	var req usecase.UseBalanceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	dto, err := h.workflow.UseBalance(c.UserContext(), req.UserID, req.AccountNumber, req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(newTransactionResponse(dto))
}

// CancelBalance POST /transaction/cancel
func (h *Handler) CancelBalance(c *fiber.Ctx) error {
	var req usecase.CancelBalanceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	dto, err := h.workflow.CancelBalance(c.UserContext(), req.TransactionID, req.AccountNumber, req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(newTransactionResponse(dto))
}

// QueryTransaction GET /transaction/:transactionId
func (h *Handler) QueryTransaction(c *fiber.Ctx) error {
	dto, err := h.workflow.QueryTransaction(c.UserContext(), c.Params("transactionId"))
	if err != nil {
		return err
	}
	return c.JSON(newQueryTransactionResponse(dto))
}

// CreateAccount POST /account
func (h *Handler) CreateAccount(c *fiber.Ctx) error {
	var req usecase.CreateAccountRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	dto, err := h.accounts.CreateAccount(c.UserContext(), req.UserID, req.InitialBalance)
	if err != nil {
		return err
	}
	return c.JSON(createAccountResponse{
		UserID:        dto.UserID,
		AccountNumber: dto.AccountNumber,
		RegisteredAt:  dto.RegisteredAt,
	})
}

// DeleteAccount DELETE /account
func (h *Handler) DeleteAccount(c *fiber.Ctx) error {
	var req usecase.DeleteAccountRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	dto, err := h.accounts.DeleteAccount(c.UserContext(), req.UserID, req.AccountNumber)
	if err != nil {
		return err
	}
	return c.JSON(deleteAccountResponse{
		UserID:         dto.UserID,
		AccountNumber:  dto.AccountNumber,
		UnregisteredAt: dto.UnregisteredAt,
	})
}

// GetAccounts GET /account?user_id=
func (h *Handler) GetAccounts(c *fiber.Ctx) error {
	req := usecase.GetAccountsRequest{UserID: int64(c.QueryInt("user_id", 0))}
	if err := usecase.ValidateRequest(req); err != nil {
		return err
	}

	accounts, err := h.accounts.GetAccountsByUserID(c.UserContext(), req.UserID)
	if err != nil {
		return err
	}
	resp := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, accountResponse{AccountNumber: a.AccountNumber, Balance: a.Balance})
	}
	return c.JSON(resp)
}

// Health GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
