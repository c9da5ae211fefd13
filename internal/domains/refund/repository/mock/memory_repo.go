// Package mock provides in-memory refund repositories for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"autoparts-returns-backend/internal/domains/refund/model"
	"autoparts-returns-backend/internal/domains/refund/repository"
)

type MemoryRefundRepository struct {
	mu      sync.Mutex
	refunds map[uuid.UUID]*model.Refund
}

func NewMemoryRefundRepository() *MemoryRefundRepository {
	return &MemoryRefundRepository{
		refunds: make(map[uuid.UUID]*model.Refund),
	}
}

var _ repository.RefundRepository = (*MemoryRefundRepository)(nil)

func (m *MemoryRefundRepository) Create(ctx context.Context, refund *model.Refund) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Mirrors the unique constraint on refunds.return_id.
	for _, existing := range m.refunds {
		if existing.ReturnID == refund.ReturnID {
			return model.NewRefundError(model.ErrCodeAlreadyRefunded,
				"A refund already exists for this return", model.ErrAlreadyRefunded)
		}
	}

	now := time.Now()
	refund.CreatedAt = now
	refund.UpdatedAt = now
	stored := *refund
	m.refunds[refund.ID] = &stored
	return nil
}

func (m *MemoryRefundRepository) GetByID(ctx context.Context, refundID uuid.UUID) (*model.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	refund, ok := m.refunds[refundID]
	if !ok {
		return nil, model.ErrRefundNotFound
	}
	out := *refund
	return &out, nil
}

func (m *MemoryRefundRepository) GetByReturnID(ctx context.Context, returnID uuid.UUID) (*model.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, refund := range m.refunds {
		if refund.ReturnID == returnID {
			out := *refund
			return &out, nil
		}
	}
	return nil, model.ErrRefundNotFound
}

func (m *MemoryRefundRepository) GetByProcessorRefundID(ctx context.Context, processorRefundID string) (*model.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, refund := range m.refunds {
		if refund.ProcessorRefundID != nil && *refund.ProcessorRefundID == processorRefundID {
			out := *refund
			return &out, nil
		}
	}
	return nil, model.ErrRefundNotFound
}

func (m *MemoryRefundRepository) UpdateStatus(ctx context.Context, refundID uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	refund, ok := m.refunds[refundID]
	if !ok {
		return model.ErrRefundNotFound
	}

	now := time.Now()
	refund.Status = status
	switch status {
	case model.RefundStatusProcessing:
		refund.ProcessingAt = &now
	case model.RefundStatusCompleted:
		refund.CompletedAt = &now
	case model.RefundStatusFailed:
		refund.FailedAt = &now
	}
	refund.UpdatedAt = now
	return nil
}

func (m *MemoryRefundRepository) MarkProcessing(ctx context.Context, refundID uuid.UUID, processorRefundID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	refund, ok := m.refunds[refundID]
	if !ok {
		return model.ErrRefundNotFound
	}

	now := time.Now()
	refund.Status = model.RefundStatusProcessing
	refund.ProcessorRefundID = &processorRefundID
	refund.ProcessingAt = &now
	refund.UpdatedAt = now
	return nil
}

func (m *MemoryRefundRepository) MarkFailed(ctx context.Context, refundID uuid.UUID, errorCode, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	refund, ok := m.refunds[refundID]
	if !ok {
		return model.ErrRefundNotFound
	}

	now := time.Now()
	refund.Status = model.RefundStatusFailed
	refund.ErrorCode = &errorCode
	refund.ErrorMessage = &errorMessage
	refund.FailedAt = &now
	refund.UpdatedAt = now
	return nil
}

func (m *MemoryRefundRepository) MarkManualCompleted(ctx context.Context, refundID uuid.UUID, operatorNote string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	refund, ok := m.refunds[refundID]
	if !ok {
		return model.ErrRefundNotFound
	}

	if refund.Status != model.RefundStatusPending && refund.Status != model.RefundStatusFailed {
		return model.ErrAlreadyRefunded
	}

	now := time.Now()
	refund.Status = model.RefundStatusCompleted
	refund.OperatorNote = &operatorNote
	refund.CompletedAt = &now
	refund.UpdatedAt = now
	return nil
}

func (m *MemoryRefundRepository) ListByStatus(ctx context.Context, status string, limit int) ([]*model.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Refund
	for _, refund := range m.refunds {
		if refund.Status != status {
			continue
		}
		copied := *refund
		out = append(out, &copied)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// =====================================================
// MEMORY WEBHOOK REPOSITORY
// =====================================================

type MemoryWebhookRepository struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryWebhookRepository() *MemoryWebhookRepository {
	return &MemoryWebhookRepository{
		seen: make(map[string]time.Time),
	}
}

var _ repository.WebhookRepository = (*MemoryWebhookRepository)(nil)

func (m *MemoryWebhookRepository) Record(ctx context.Context, log *model.ProcessedWebhook) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := log.Gateway + ":" + log.EventID
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = log.ReceivedAt
	return true, nil
}

func (m *MemoryWebhookRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for key, at := range m.seen {
		if at.Before(cutoff) {
			delete(m.seen, key)
			removed++
		}
	}
	return removed, nil
}
