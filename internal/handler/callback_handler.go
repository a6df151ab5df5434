package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"marketplace-wallet/internal/errors"
	"marketplace-wallet/internal/service"
)

type CallbackHandler struct {
	reconciler *service.ReconcilerService
}

func NewCallbackHandler(reconciler *service.ReconcilerService) *CallbackHandler {
	return &CallbackHandler{
		reconciler: reconciler,
	}
}

// GatewayCallbackRequest is the provider's asynchronous confirmation.
// ResultCode "0" means the real-world money movement succeeded.
type GatewayCallbackRequest struct {
	TransactionID    string `json:"transaction_id"`
	ResultCode       string `json:"result_code"`
	GatewayReference string `json:"gateway_reference"`
}

type GatewayCallbackResponse struct {
	Received bool `json:"received"`
}

func (h *CallbackHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	var req GatewayCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid callback body"))
		return
	}

	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidInput, "invalid transaction_id format"))
		return
	}

	success := req.ResultCode == "0"
	if err := h.reconciler.HandleCallback(transactionID, success, req.GatewayReference); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, GatewayCallbackResponse{Received: true})
}
