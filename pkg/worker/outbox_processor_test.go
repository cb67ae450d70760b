package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/visit-api/internal/model"
	"github.com/jwalitptl/visit-api/internal/repository"
	"github.com/jwalitptl/visit-api/pkg/logger"
	"github.com/jwalitptl/visit-api/pkg/metrics"
)

// Prometheus collectors register globally; one shared instance for the package.
var (
	workerMetricsOnce sync.Once
	workerMetrics     *metrics.Metrics
)

func sharedMetrics() *metrics.Metrics {
	workerMetricsOnce.Do(func() {
		workerMetrics = metrics.NewMetrics("visit_api_test", "relay")
	})
	return workerMetrics
}

type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit() error   { t.committed = true; return nil }
func (t *fakeTx) Rollback() error { t.rolledBack = true; return nil }

type statusUpdate struct {
	id      uuid.UUID
	status  string
	errMsg  *string
	retryAt *time.Time
}

type fakeOutboxRepo struct {
	pending    []*model.OutboxEvent
	pendingErr error
	beginErr   error
	tx         *fakeTx
	updates    []statusUpdate
}

func (r *fakeOutboxRepo) Create(_ context.Context, _ *model.OutboxEvent) error { return nil }

func (r *fakeOutboxRepo) GetPendingEvents(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return r.pending, r.pendingErr
}

func (r *fakeOutboxRepo) BeginTx(_ context.Context) (repository.Tx, error) {
	if r.beginErr != nil {
		return nil, r.beginErr
	}
	r.tx = &fakeTx{}
	return r.tx, nil
}

func (r *fakeOutboxRepo) UpdateStatusTx(_ context.Context, tx repository.Tx, id uuid.UUID, status string, errMsg *string, retryAt *time.Time) error {
	if tx != r.tx {
		return errors.New("update outside the batch transaction")
	}
	r.updates = append(r.updates, statusUpdate{id: id, status: status, errMsg: errMsg, retryAt: retryAt})
	return nil
}

func (r *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeBroker struct {
	publishErr error
	published  []string
}

func (b *fakeBroker) Publish(_ context.Context, channel string, _ interface{}) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, channel)
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return nil, nil
}

func (b *fakeBroker) Close() error { return nil }

func pendingEvent(eventType string, retryCount int) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:         uuid.New(),
		EventType:  eventType,
		Payload:    json.RawMessage(`{"visit_id":"v1"}`),
		Status:     string(model.OutboxStatusPending),
		RetryCount: retryCount,
		CreatedAt:  time.Now(),
	}
}

func testProcessor(repo *fakeOutboxRepo, broker *fakeBroker) *OutboxProcessor {
	return NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}, logger.NewLogger(nil), sharedMetrics())
}

func TestProcessEventsCommitsBatchStatuses(t *testing.T) {
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{
		pendingEvent(model.EventVisitCreate, 0),
		pendingEvent(model.EventVisitUpdate, 0),
	}}
	broker := &fakeBroker{}

	err := testProcessor(repo, broker).processEvents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{model.EventVisitCreate, model.EventVisitUpdate}, broker.published)
	require.Len(t, repo.updates, 2)
	for _, u := range repo.updates {
		assert.Equal(t, string(model.OutboxStatusProcessed), u.status)
		assert.Nil(t, u.retryAt)
	}
	require.NotNil(t, repo.tx)
	assert.True(t, repo.tx.committed)
}

func TestFailedPublishStaysPendingWithBackoff(t *testing.T) {
	event := pendingEvent(model.EventVisitCreate, 0)
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{event}}
	broker := &fakeBroker{publishErr: errors.New("broker down")}

	err := testProcessor(repo, broker).processEvents(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.updates, 1)
	assert.Equal(t, event.ID, repo.updates[0].id)
	assert.Equal(t, string(model.OutboxStatusPending), repo.updates[0].status)
	require.NotNil(t, repo.updates[0].errMsg)
	require.NotNil(t, repo.updates[0].retryAt)
	assert.True(t, repo.updates[0].retryAt.After(time.Now().Add(-time.Second)))
	assert.True(t, repo.tx.committed)
}

func TestExhaustedRetriesMarkEventFailed(t *testing.T) {
	event := pendingEvent(model.EventVisitUpdate, 2)
	repo := &fakeOutboxRepo{pending: []*model.OutboxEvent{event}}
	broker := &fakeBroker{publishErr: errors.New("broker down")}

	err := testProcessor(repo, broker).processEvents(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.updates, 1)
	assert.Equal(t, string(model.OutboxStatusFailed), repo.updates[0].status)
	assert.Nil(t, repo.updates[0].retryAt)
}

func TestNoPendingEventsSkipsTransaction(t *testing.T) {
	repo := &fakeOutboxRepo{}

	err := testProcessor(repo, &fakeBroker{}).processEvents(context.Background())
	require.NoError(t, err)
	assert.Nil(t, repo.tx)
}
