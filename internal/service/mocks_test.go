package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/hyunwoo-kim/docchat/internal/assistant"
	"github.com/hyunwoo-kim/docchat/internal/domain"
)

// MockSessionRepository mocks the SessionRepository interface
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, id uuid.UUID, update domain.SessionUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockSessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Session, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]domain.Session), args.Error(1)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMessageRepository mocks the MessageRepository interface
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Append(ctx context.Context, messages []domain.Message) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}

func (m *MockMessageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, sessionID, limit)
	return args.Get(0).([]domain.Message), args.Error(1)
}

// MockAssistantClient mocks the assistant.Client interface
type MockAssistantClient struct {
	mock.Mock
}

func (m *MockAssistantClient) CreateThread(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockAssistantClient) VerifyThread(ctx context.Context, threadID string) bool {
	args := m.Called(ctx, threadID)
	return args.Bool(0)
}

func (m *MockAssistantClient) SendMessage(ctx context.Context, threadID, message string) (*assistant.Reply, error) {
	args := m.Called(ctx, threadID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assistant.Reply), args.Error(1)
}

// MockTitler mocks the assistant.Titler interface
type MockTitler struct {
	mock.Mock
}

func (m *MockTitler) Title(ctx context.Context, firstMessage string) (string, error) {
	args := m.Called(ctx, firstMessage)
	return args.String(0), args.Error(1)
}

// captureUsageRepo collects usage records for assertions
type captureUsageRepo struct {
	mu      sync.Mutex
	records []domain.UsageRecord
}

func (r *captureUsageRepo) Insert(ctx context.Context, records []domain.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return nil
}

func (r *captureUsageRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []domain.UsageRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if rec.UserID == nil || *rec.UserID != userID {
			continue
		}
		matched = append(matched, rec)
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *captureUsageRepo) Summarize(ctx context.Context, userID *uuid.UUID, start, end time.Time) (*domain.UsageSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := &domain.UsageSummary{Start: start, End: end}
	for _, rec := range r.records {
		if userID != nil && (rec.UserID == nil || *rec.UserID != *userID) {
			continue
		}
		if rec.CreatedAt.Before(start) || !rec.CreatedAt.Before(end) {
			continue
		}
		summary.TotalOperations++
		summary.TotalTokens += int64(rec.Tokens)
		summary.TotalCostUSD += rec.CostUSD
		if rec.Success {
			summary.SuccessCount++
		} else {
			summary.ErrorCount++
		}
	}
	return summary, nil
}

func (r *captureUsageRepo) all() []domain.UsageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.UsageRecord, len(r.records))
	copy(out, r.records)
	return out
}

func (r *captureUsageRepo) byOperation(op string) []domain.UsageRecord {
	var out []domain.UsageRecord
	for _, rec := range r.all() {
		if rec.Operation == op {
			out = append(out, rec)
		}
	}
	return out
}
