package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"carrental-backend/internal/logger"
)

// HTTPGateway calls a processor exposing a JSON charges/refunds API.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type chargeBody struct {
	BookingID     string `json:"booking_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method"`
}

type refundBody struct {
	ChargeID string `json:"charge_id"`
	Amount   int64  `json:"amount"`
}

type gatewayResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason"`
}

func (g *HTTPGateway) AuthorizeAndCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	logger.ExternalServiceCall("payment", "charge", "bookingID", req.BookingID, "amount", req.AmountCents)
	resp, err := g.post(ctx, "/v1/charges", req.IdempotencyKey, chargeBody{
		BookingID:     req.BookingID,
		Amount:        req.AmountCents,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethodRef,
	})
	logger.ExternalServiceResult("payment", "charge", err, "bookingID", req.BookingID)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, errors.New("payment gateway: empty charge id")
	}
	return &ChargeResult{TransactionRef: resp.ID}, nil
}

func (g *HTTPGateway) Refund(ctx context.Context, req RefundRequest) error {
	logger.ExternalServiceCall("payment", "refund", "transactionRef", req.TransactionRef, "amount", req.AmountCents)
	_, err := g.post(ctx, "/v1/refunds", req.IdempotencyKey, refundBody{ChargeID: req.TransactionRef, Amount: req.AmountCents})
	logger.ExternalServiceResult("payment", "refund", err, "transactionRef", req.TransactionRef)
	return err
}

func (g *HTTPGateway) post(ctx context.Context, path, idempotencyKey string, body any) (*gatewayResponse, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(g.apiKey, "")
	httpReq.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment gateway %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("payment gateway %s: read body: %w", path, err)
	}

	var out gatewayResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("payment gateway %s: decode: %w", path, err)
		}
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("payment gateway %s failed: %s", path, resp.Status)
	case resp.StatusCode >= 300:
		reason := out.FailureReason
		if reason == "" {
			reason = resp.Status
		}
		return nil, fmt.Errorf("%w: %s", ErrDeclined, reason)
	case out.Status != "" && out.Status != "succeeded":
		return nil, fmt.Errorf("%w: %s", ErrDeclined, out.FailureReason)
	}
	return &out, nil
}
