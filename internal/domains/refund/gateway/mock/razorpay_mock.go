package mock

import (
	"context"
	"fmt"
	"sync"

	"autoparts-returns-backend/internal/domains/refund/gateway"
)

// =====================================================
// MOCK REFUND PROCESSOR FOR TESTING
// =====================================================

type MockRefundProcessor struct {
	mu sync.Mutex

	refunds map[string]*gateway.ProcessorRefund
	nextID  int

	FailTransient bool   // simulate timeouts / 5xx
	FailPermanent bool   // simulate business rejection
	CreateStatus  string // status returned by CreateRefund, default processed
	CallCount     int
}

func NewMockRefundProcessor() *MockRefundProcessor {
	return &MockRefundProcessor{
		refunds:      make(map[string]*gateway.ProcessorRefund),
		CreateStatus: gateway.ProcessorStatusProcessed,
	}
}

var _ gateway.RefundProcessor = (*MockRefundProcessor)(nil)

func (m *MockRefundProcessor) GatewayName() string {
	return "razorpay"
}

func (m *MockRefundProcessor) CreateRefund(ctx context.Context, req gateway.CreateRefundRequest) (*gateway.ProcessorRefund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount++

	if m.FailTransient {
		return nil, &gateway.ProcessorError{
			StatusCode: 503,
			Message:    "mock processor unavailable",
			Transient:  true,
		}
	}
	if m.FailPermanent {
		return nil, &gateway.ProcessorError{
			StatusCode: 400,
			Code:       "BAD_REQUEST_ERROR",
			Message:    "mock processor rejected refund",
			Transient:  false,
		}
	}

	m.nextID++
	refund := &gateway.ProcessorRefund{
		RefundID: fmt.Sprintf("rfnd_mock%06d", m.nextID),
		Status:   m.CreateStatus,
		Amount:   req.Amount,
	}
	m.refunds[refund.RefundID] = refund

	return refund, nil
}

func (m *MockRefundProcessor) FetchRefund(ctx context.Context, processorRefundID string) (*gateway.ProcessorRefund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	refund, ok := m.refunds[processorRefundID]
	if !ok {
		return nil, &gateway.ProcessorError{
			StatusCode: 404,
			Message:    "mock refund not found",
			Transient:  false,
		}
	}
	return refund, nil
}

// SettleRefund flips a stored refund's status, for reconciliation tests.
func (m *MockRefundProcessor) SettleRefund(processorRefundID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if refund, ok := m.refunds[processorRefundID]; ok {
		refund.Status = status
	}
}

func (m *MockRefundProcessor) VerifyWebhookSignature(body []byte, signature string) bool {
	return signature != "invalid"
}
