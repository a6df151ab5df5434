package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"marketplace-wallet/internal/domain"
	"marketplace-wallet/internal/errors"
	"marketplace-wallet/internal/service"
)

type WalletHandler struct {
	walletService *service.WalletService
}

func NewWalletHandler(walletService *service.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

type DepositRequest struct {
	Amount      string `json:"amount"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type WithdrawRequest struct {
	Amount      string `json:"amount"`
	PhoneNumber string `json:"phone_number"`
}

type PurchaseRequest struct {
	ItemID   string `json:"item_id"`
	Amount   string `json:"amount"`
	SellerID string `json:"seller_id"`
}

type TransactionResponse struct {
	TransactionID    string  `json:"transaction_id"`
	Type             string  `json:"type"`
	Status           string  `json:"status"`
	Amount           string  `json:"amount"`
	GatewayReference *string `json:"gateway_reference,omitempty"`
}

func transactionResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:    tx.ID.String(),
		Type:             string(tx.Type),
		Status:           string(tx.Status),
		Amount:           tx.Amount.String(),
		GatewayReference: tx.GatewayReference,
	}
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerAccountID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	balance, err := h.walletService.GetBalance(accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		AccountID: accountID.String(),
		Balance:   balance.String(),
	})
}

func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerAccountID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format"))
		return
	}

	tx, err := h.walletService.Deposit(r.Context(), accountID, amount, req.PhoneNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	// The provider confirms asynchronously; the caller gets the pending entry.
	writeJSON(w, http.StatusAccepted, transactionResponse(tx))
}

func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerAccountID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format"))
		return
	}

	tx, err := h.walletService.Withdraw(r.Context(), accountID, amount, req.PhoneNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, transactionResponse(tx))
}

func (h *WalletHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	buyerID, err := callerAccountID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body"))
		return
	}

	sellerID, err := uuid.Parse(req.SellerID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid seller_id format"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format"))
		return
	}

	tx, err := h.walletService.Purchase(buyerID, sellerID, req.ItemID, amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, transactionResponse(tx))
}

func (h *WalletHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	accountID, err := callerAccountID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	transactions, err := h.walletService.GetHistory(accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	responses := make([]TransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		responses = append(responses, transactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, responses)
}

func (h *WalletHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	id, err := uuid.Parse(vars["transaction_id"])
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid transaction id format"))
		return
	}

	tx, err := h.walletService.GetTransaction(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transactionResponse(tx))
}
