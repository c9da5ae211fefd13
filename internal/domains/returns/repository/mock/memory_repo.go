// Package mock provides an in-memory ReturnRepository for tests. It keeps
// the same compare-and-swap semantics as the postgres implementation so
// concurrency behavior can be exercised without a database.
package mock

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"autoparts-returns-backend/internal/domains/returns/model"
	"autoparts-returns-backend/internal/domains/returns/repository"
)

type MemoryReturnRepository struct {
	mu      sync.Mutex
	returns map[uuid.UUID]*model.ReturnRequest
}

func NewMemoryReturnRepository() *MemoryReturnRepository {
	return &MemoryReturnRepository{
		returns: make(map[uuid.UUID]*model.ReturnRequest),
	}
}

var _ repository.ReturnRepository = (*MemoryReturnRepository)(nil)

// clone round-trips through json so stored records are isolated from
// caller mutation, the same way rows are.
func clone(ret *model.ReturnRequest) *model.ReturnRequest {
	raw, _ := json.Marshal(ret)
	var out model.ReturnRequest
	_ = json.Unmarshal(raw, &out)
	return &out
}

func (m *MemoryReturnRepository) CreateReturn(ctx context.Context, ret *model.ReturnRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Mirrors the partial unique index on open (order_id, sku) rows.
	for _, existing := range m.returns {
		if existing.OrderID == ret.OrderID && existing.SKU == ret.SKU && !existing.IsTerminal() {
			return model.NewDuplicateRequestError(ret.OrderID.String(), ret.SKU)
		}
	}

	now := time.Now()
	ret.CreatedAt = now
	ret.UpdatedAt = now
	m.returns[ret.ID] = clone(ret)
	return nil
}

func (m *MemoryReturnRepository) GetReturnByID(ctx context.Context, returnID uuid.UUID) (*model.ReturnRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ret, ok := m.returns[returnID]
	if !ok {
		return nil, model.ErrReturnNotFound
	}
	return clone(ret), nil
}

func (m *MemoryReturnRepository) GetReturnByRMANumber(ctx context.Context, rmaNumber string) (*model.ReturnRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ret := range m.returns {
		if ret.RMANumber == rmaNumber {
			return clone(ret), nil
		}
	}
	return nil, model.ErrReturnNotFound
}

func (m *MemoryReturnRepository) HasOpenReturn(ctx context.Context, orderID uuid.UUID, sku string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ret := range m.returns {
		if ret.OrderID == orderID && ret.SKU == sku && !ret.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryReturnRepository) UpdateWithVersion(ctx context.Context, ret *model.ReturnRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.returns[ret.ID]
	if !ok {
		return model.ErrReturnNotFound
	}
	if stored.Version != ret.Version {
		return model.ErrVersionConflict
	}

	ret.Version++
	updated := clone(ret)
	updated.Notes = stored.Notes
	updated.ReturnImages = stored.ReturnImages
	updated.UpdatedAt = time.Now()
	m.returns[ret.ID] = updated
	return nil
}

func (m *MemoryReturnRepository) AppendNote(ctx context.Context, returnID uuid.UUID, note model.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.returns[returnID]
	if !ok {
		return model.ErrReturnNotFound
	}
	stored.Notes = append(stored.Notes, note)
	return nil
}

func (m *MemoryReturnRepository) AppendReturnImage(ctx context.Context, returnID uuid.UUID, imageURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.returns[returnID]
	if !ok {
		return model.ErrReturnNotFound
	}
	stored.ReturnImages = append(stored.ReturnImages, imageURL)
	return nil
}

func (m *MemoryReturnRepository) AppendInspectionImage(ctx context.Context, returnID uuid.UUID, imageURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.returns[returnID]
	if !ok {
		return model.ErrReturnNotFound
	}
	if stored.Inspection == nil {
		stored.Inspection = &model.Inspection{}
	}
	stored.Inspection.Images = append(stored.Inspection.Images, imageURL)
	return nil
}

func (m *MemoryReturnRepository) ListReturns(ctx context.Context, filter model.ListReturnsFilter, page, limit int) ([]*model.ReturnRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*model.ReturnRequest
	for _, ret := range m.returns {
		if filter.Status != "" && ret.Status != filter.Status {
			continue
		}
		if filter.OrderID != nil && ret.OrderID != *filter.OrderID {
			continue
		}
		if filter.CustomerID != nil && ret.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.DealerID != nil && (ret.DealerID == nil || *ret.DealerID != *filter.DealerID) {
			continue
		}
		if filter.From != nil && ret.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && ret.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, clone(ret))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *MemoryReturnRepository) ListReturnsByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*model.ReturnRequest, int, error) {
	return m.ListReturns(ctx, model.ListReturnsFilter{CustomerID: &customerID}, page, limit)
}

func (m *MemoryReturnRepository) ListStalePickups(ctx context.Context, cutoff time.Time, limit int) ([]*model.ReturnRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stale []*model.ReturnRequest
	for _, ret := range m.returns {
		if ret.Status != model.StatusPickupScheduled {
			continue
		}
		if ret.Timestamps.PickupScheduledAt == nil || !ret.Timestamps.PickupScheduledAt.Before(cutoff) {
			continue
		}
		stale = append(stale, clone(ret))
		if len(stale) == limit {
			break
		}
	}
	return stale, nil
}
