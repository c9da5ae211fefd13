package mock

import (
	"context"
	"fmt"
	"sync"

	"autoparts-returns-backend/internal/domains/pickup/gateway"
)

// =====================================================
// MOCK LOGISTICS GATEWAY FOR TESTING
// =====================================================

// MockLogisticsGateway books deliveries in memory. It is idempotent on
// Matter like the real partner, and can be flipped into failure modes.
type MockLogisticsGateway struct {
	mu sync.Mutex

	deliveries map[string]*gateway.Delivery // keyed by matter
	nextID     int

	FailTransient bool // simulate timeouts / 5xx
	FailPermanent bool // simulate business rejection
	CallCount     int
}

func NewMockLogisticsGateway() *MockLogisticsGateway {
	return &MockLogisticsGateway{
		deliveries: make(map[string]*gateway.Delivery),
	}
}

var _ gateway.LogisticsGateway = (*MockLogisticsGateway)(nil)

func (m *MockLogisticsGateway) PartnerName() string {
	return "borzo"
}

func (m *MockLogisticsGateway) CreateDelivery(ctx context.Context, req gateway.CreateDeliveryRequest) (*gateway.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount++

	if m.FailTransient {
		return nil, &gateway.GatewayError{
			StatusCode: 503,
			Message:    "mock borzo unavailable",
			Transient:  true,
		}
	}
	if m.FailPermanent {
		return nil, &gateway.GatewayError{
			StatusCode: 400,
			Message:    "mock borzo rejected delivery",
			Transient:  false,
		}
	}

	// Same matter returns the existing booking.
	if existing, ok := m.deliveries[req.Matter]; ok {
		return existing, nil
	}

	m.nextID++
	delivery := &gateway.Delivery{
		DeliveryID:     fmt.Sprintf("mock-delivery-%d", m.nextID),
		Status:         "new",
		TrackingNumber: fmt.Sprintf("TRK%06d", m.nextID),
		TrackingURL:    fmt.Sprintf("https://mock-borzo.test/track/TRK%06d", m.nextID),
	}
	m.deliveries[req.Matter] = delivery

	return delivery, nil
}

func (m *MockLogisticsGateway) CancelDelivery(ctx context.Context, deliveryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount++

	if m.FailTransient {
		return &gateway.GatewayError{
			StatusCode: 503,
			Message:    "mock borzo unavailable",
			Transient:  true,
		}
	}
	if m.FailPermanent {
		return &gateway.GatewayError{
			StatusCode: 400,
			Message:    "mock borzo rejected cancellation",
			Transient:  false,
		}
	}

	for matter, d := range m.deliveries {
		if d.DeliveryID == deliveryID {
			delete(m.deliveries, matter)
			return nil
		}
	}
	return &gateway.GatewayError{
		StatusCode: 404,
		Message:    "mock delivery not found",
		Transient:  false,
	}
}

func (m *MockLogisticsGateway) VerifyCallbackSignature(body []byte, signature string) bool {
	return signature != "invalid"
}
