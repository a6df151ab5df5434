package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"marketplace-wallet/internal/errors"
	"marketplace-wallet/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

type CreateAccountRequest struct {
	OwnerName      string `json:"owner_name"`
	PhoneNumber    string `json:"phone_number"`
	InitialBalance string `json:"initial_balance"`
}

type AccountResponse struct {
	AccountID   string `json:"account_id"`
	OwnerName   string `json:"owner_name"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Balance     string `json:"balance"`
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid request body"))
		return
	}

	initialBalance := decimal.Zero
	if req.InitialBalance != "" {
		parsed, err := decimal.NewFromString(req.InitialBalance)
		if err != nil {
			writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid initial_balance format"))
			return
		}
		initialBalance = parsed
	}

	account, err := h.accountService.CreateAccount(req.OwnerName, req.PhoneNumber, initialBalance)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, AccountResponse{
		AccountID:   account.ID.String(),
		OwnerName:   account.OwnerName,
		PhoneNumber: account.PhoneNumber,
		Balance:     account.Balance.String(),
	})
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	account, err := h.accountService.GetAccount(vars["account_id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AccountResponse{
		AccountID:   account.ID.String(),
		OwnerName:   account.OwnerName,
		PhoneNumber: account.PhoneNumber,
		Balance:     account.Balance.String(),
	})
}
