package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gatewaymock "autoparts-returns-backend/internal/domains/pickup/gateway/mock"
	"autoparts-returns-backend/internal/domains/pickup/model"
	"autoparts-returns-backend/internal/shared"
)

// =====================================================
// TEST DOUBLES
// =====================================================

type captureEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (c *captureEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func (c *captureEnqueuer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

type memoryCache struct {
	mu   sync.Mutex
	keys map[string]interface{}
}

func newMemoryCache() *memoryCache {
	return &memoryCache{keys: make(map[string]interface{})}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[key]
	return ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = value
	return nil
}

func (m *memoryCache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = value
	return true, nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func (m *memoryCache) Ping(ctx context.Context) error { return nil }

func (m *memoryCache) Increment(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := m.keys[key].(int64)
	n++
	m.keys[key] = n
	return n, nil
}

func (m *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[key]
	return ok, nil
}

func (m *memoryCache) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }

func (m *memoryCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	return 0, nil
}

// =====================================================
// FIXTURE
// =====================================================

type borzoFixture struct {
	tasks  *captureEnqueuer
	router *gin.Engine
}

func newBorzoFixture(t *testing.T) *borzoFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tasks := &captureEnqueuer{}
	h := NewWebhookHandler(gatewaymock.NewMockLogisticsGateway(), newMemoryCache(), tasks)

	router := gin.New()
	h.RegisterRoutes(router.Group(""))

	return &borzoFixture{tasks: tasks, router: router}
}

func (f *borzoFixture) post(body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/borzo", strings.NewReader(body))
	req.Header.Set("X-DV-Signature", signature)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func pickedUpBody(returnID uuid.UUID) string {
	return fmt.Sprintf(`{
		"event_type": "picked_up",
		"event_datetime": "2025-03-12T09:30:00Z",
		"delivery": {
			"order_id": "987654",
			"matter": %q,
			"status": "active",
			"tracking_number": "TRK000001",
			"tracking_url": "https://borzo.example/track/TRK000001"
		}
	}`, returnID)
}

// =====================================================
// TESTS
// =====================================================

func TestHandleBorzoWebhook(t *testing.T) {
	t.Run("accepts and enqueues a pickup event", func(t *testing.T) {
		f := newBorzoFixture(t)
		returnID := uuid.New()

		rec := f.post(pickedUpBody(returnID), "sig-ok")

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 1, f.tasks.count())
		require.Equal(t, shared.TypeProcessPickupEvent, f.tasks.tasks[0].Type())

		var payload model.ProcessPickupEventPayload
		require.NoError(t, json.Unmarshal(f.tasks.tasks[0].Payload(), &payload))
		assert.Equal(t, returnID, payload.ReturnID)
		assert.Equal(t, model.EventPickedUp, payload.EventType)
		assert.Equal(t, "TRK000001", payload.TrackingNumber)
	})

	t.Run("rejects a bad signature", func(t *testing.T) {
		f := newBorzoFixture(t)

		rec := f.post(pickedUpBody(uuid.New()), "invalid")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Zero(t, f.tasks.count())
	})

	t.Run("replayed body is absorbed", func(t *testing.T) {
		f := newBorzoFixture(t)
		body := pickedUpBody(uuid.New())

		first := f.post(body, "sig-ok")
		second := f.post(body, "sig-ok")

		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, 1, f.tasks.count())
	})

	t.Run("acknowledges a matter that is not a return id", func(t *testing.T) {
		f := newBorzoFixture(t)

		rec := f.post(`{"event_type":"picked_up","delivery":{"matter":"someone-elses-shipment"}}`, "sig-ok")

		assert.Equal(t, http.StatusOK, rec.Code, "acknowledge so the partner stops retrying")
		assert.Zero(t, f.tasks.count())
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		f := newBorzoFixture(t)

		rec := f.post(`{"event_type":`, "sig-ok")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
