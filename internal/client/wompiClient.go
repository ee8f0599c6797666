package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"wompi-billing-service/internal/config"
	"wompi-billing-service/internal/model"
)

type WompiClient interface {
	// CreateTransaction charges a vaulted payment source. The returned status
	// is usually PENDING; the final outcome arrives later via webhook.
	CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*model.WompiTransaction, error)

	GetTransaction(ctx context.Context, transactionID string) (*model.WompiTransaction, error)
	GetPaymentSource(ctx context.Context, paymentSourceID string) (*model.WompiPaymentSource, error)
}

type PaymentMethod struct {
	Type         string `json:"type"`
	Installments int    `json:"installments,omitempty"`
}

type CreateTransactionRequest struct {
	AmountInCents   int64         `json:"amount_in_cents"`
	Currency        string        `json:"currency"`
	CustomerEmail   string        `json:"customer_email"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	PaymentSourceID string        `json:"payment_source_id,omitempty"`
	Reference       string        `json:"reference"`
	RedirectURL     string        `json:"redirect_url,omitempty"`
	Recurrent       bool          `json:"recurrent,omitempty"`
}

type wompiClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	privateKey string
}

func NewWompiClient(wompiCfg *config.Wompi) WompiClient {
	return &wompiClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL: wompiCfg.BaseApiURL,
		privateKey: wompiCfg.PrivateKey,
	}
}

func (c *wompiClientImpl) CreateTransaction(ctx context.Context, txReq *CreateTransactionRequest) (*model.WompiTransaction, error) {
	body, err := json.Marshal(txReq)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}

	var result struct {
		Data model.WompiTransaction `json:"data"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/transactions", bytes.NewBuffer(body), &result); err != nil {
		return nil, fmt.Errorf("wompi create transaction: %w", err)
	}

	return &result.Data, nil
}

func (c *wompiClientImpl) GetTransaction(ctx context.Context, transactionID string) (*model.WompiTransaction, error) {
	var result struct {
		Data model.WompiTransaction `json:"data"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/transactions/"+transactionID, nil, &result); err != nil {
		return nil, fmt.Errorf("wompi get transaction: %w", err)
	}

	return &result.Data, nil
}

func (c *wompiClientImpl) GetPaymentSource(ctx context.Context, paymentSourceID string) (*model.WompiPaymentSource, error) {
	var result struct {
		Data model.WompiPaymentSource `json:"data"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/payment_sources/"+paymentSourceID, nil, &result); err != nil {
		return nil, fmt.Errorf("wompi get payment source: %w", err)
	}

	return &result.Data, nil
}

func (c *wompiClientImpl) doRequest(ctx context.Context, method, endpoint string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseApiURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.privateKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("wompi error %d: %s", resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode wompi response: %w", err)
	}

	return nil
}
