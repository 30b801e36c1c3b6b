// Package payment talks to the external processor that charges renters.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrDeclined marks a definitive refusal by the processor, as opposed to a
// transport failure or timeout.
var ErrDeclined = errors.New("payment declined")

type ChargeRequest struct {
	BookingID        string
	AmountCents      int64
	Currency         string
	PaymentMethodRef string
	// IdempotencyKey lets the processor drop duplicate charges on retry.
	IdempotencyKey string
}

type ChargeResult struct {
	TransactionRef string
}

type RefundRequest struct {
	TransactionRef string
	AmountCents    int64
	// IdempotencyKey makes a repeated refund a replay of the first one.
	IdempotencyKey string
}

type Gateway interface {
	AuthorizeAndCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, req RefundRequest) error
}

// MockGateway accepts every charge unless Decline is set. It is used for local
// runs and tests. Requests repeating an idempotency key replay the first
// result, the way real processors do.
type MockGateway struct {
	mu         sync.Mutex
	Decline    bool
	charges    map[string]int64
	refunds    map[string]int64
	chargeKeys map[string]string
	refundKeys map[string]bool
	Attempts   int
	// ChargeKeys lists the idempotency key of every charge attempt.
	ChargeKeys []string
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		charges:    map[string]int64{},
		refunds:    map[string]int64{},
		chargeKeys: map[string]string{},
		refundKeys: map[string]bool{},
	}
}

func (g *MockGateway) AuthorizeAndCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Attempts++
	g.ChargeKeys = append(g.ChargeKeys, req.IdempotencyKey)
	if ref, ok := g.chargeKeys[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return &ChargeResult{TransactionRef: ref}, nil
	}
	if g.Decline {
		return nil, fmt.Errorf("%w: card refused", ErrDeclined)
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: invalid amount", ErrDeclined)
	}
	ref := "mock_" + uuid.NewString()
	g.charges[ref] = req.AmountCents
	if req.IdempotencyKey != "" {
		g.chargeKeys[req.IdempotencyKey] = ref
	}
	return &ChargeResult{TransactionRef: ref}, nil
}

func (g *MockGateway) Refund(ctx context.Context, req RefundRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if req.IdempotencyKey != "" && g.refundKeys[req.IdempotencyKey] {
		return nil
	}
	charged, ok := g.charges[req.TransactionRef]
	if !ok {
		return fmt.Errorf("%w: unknown transaction %s", ErrDeclined, req.TransactionRef)
	}
	if g.refunds[req.TransactionRef]+req.AmountCents > charged {
		return fmt.Errorf("%w: refund exceeds charge", ErrDeclined)
	}
	g.refunds[req.TransactionRef] += req.AmountCents
	if req.IdempotencyKey != "" {
		g.refundKeys[req.IdempotencyKey] = true
	}
	return nil
}

// Refunded returns the total refunded against transactionRef.
func (g *MockGateway) Refunded(transactionRef string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refunds[transactionRef]
}
