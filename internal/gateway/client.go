package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-wallet/internal/errors"
)

// acceptedCode is the provider's response code for an accepted request.
const acceptedCode = "0"

// Client talks to the mobile-money provider over HTTP. A request that times
// out or fails at the transport level is reported as GatewayUnavailable; the
// provider may still process it, so the caller must keep the transaction in
// a reconcilable state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type initiateRequest struct {
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	PhoneNumber   string `json:"phone_number"`
}

type initiateResponse struct {
	ResponseCode     string `json:"response_code"`
	GatewayReference string `json:"gateway_reference"`
	Description      string `json:"description"`
}

func (c *Client) InitiateDeposit(ctx context.Context, transactionID uuid.UUID, amount decimal.Decimal, payerPhone string) (*InitiationResult, error) {
	return c.initiate(ctx, "/deposits", transactionID, amount, payerPhone)
}

func (c *Client) InitiateWithdrawal(ctx context.Context, transactionID uuid.UUID, amount decimal.Decimal, payeePhone string) (*InitiationResult, error) {
	return c.initiate(ctx, "/withdrawals", transactionID, amount, payeePhone)
}

func (c *Client) initiate(ctx context.Context, path string, transactionID uuid.UUID, amount decimal.Decimal, phone string) (*InitiationResult, error) {
	payload := initiateRequest{
		TransactionID: transactionID.String(),
		Amount:        amount.String(),
		PhoneNumber:   phone,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to encode gateway request").WithDetails(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to build gateway request").WithDetails(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("Initiating gateway request",
		"path", path,
		"transaction_id", transactionID,
		"amount", amount)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Gateway unreachable", "path", path, "transaction_id", transactionID, "error", err)
		return nil, errors.NewAppError(errors.GatewayUnavailable, "gateway request failed").WithDetails(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Gateway returned non-2xx status",
			"path", path, "transaction_id", transactionID, "status", resp.StatusCode)
		return nil, errors.NewAppErrorf(errors.GatewayUnavailable, "gateway returned status %d", resp.StatusCode)
	}

	var result initiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewAppError(errors.GatewayUnavailable, "failed to decode gateway response").WithDetails(err.Error())
	}

	if result.ResponseCode != acceptedCode {
		c.logger.Warn("Gateway rejected request",
			"path", path,
			"transaction_id", transactionID,
			"response_code", result.ResponseCode,
			"description", result.Description)
		return nil, errors.NewAppError(errors.GatewayRejected,
			fmt.Sprintf("gateway rejected request: %s", result.Description))
	}

	c.logger.Info("Gateway accepted request",
		"path", path,
		"transaction_id", transactionID,
		"gateway_reference", result.GatewayReference)

	return &InitiationResult{GatewayReference: result.GatewayReference}, nil
}
