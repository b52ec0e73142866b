package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hyunwoo-kim/docchat/internal/config"
	"github.com/hyunwoo-kim/docchat/internal/domain"
)

func testUsageConfig() config.UsageConfig {
	return config.UsageConfig{DailyLimit: 100.0, MonthlyLimit: 3000.0}
}

func TestSessionService_Get(t *testing.T) {
	mockSessionRepo := new(MockSessionRepository)
	mockMessageRepo := new(MockMessageRepository)
	svc := NewSessionService(mockSessionRepo, mockMessageRepo, nil)

	ctx := context.Background()
	userID := uuid.New()
	sessionID := uuid.New()
	session := &domain.Session{ID: sessionID, UserID: &userID, Title: "Refunds"}

	messages := []domain.Message{
		{Role: domain.RoleUser, Content: "How do refunds work?"},
		{Role: domain.RoleAssistant, Content: "Within 14 days.", TokensUsed: 100, CostUSD: 0.002},
		{Role: domain.RoleUser, Content: "And digital goods?"},
		{Role: domain.RoleAssistant, Content: "Non-refundable.", TokensUsed: 60, CostUSD: 0.001},
	}

	mockSessionRepo.On("Get", ctx, sessionID).Return(session, nil)
	mockMessageRepo.On("ListBySession", ctx, sessionID, sessionHistoryLimit).Return(messages, nil)

	detail, err := svc.Get(ctx, userID, sessionID)

	assert.NoError(t, err)
	assert.Equal(t, "Refunds", detail.Session.Title)
	assert.Len(t, detail.Messages, 4)
	assert.Equal(t, 4, detail.Stats.MessageCount)
	assert.Equal(t, 160, detail.Stats.TotalTokens)
	assert.InDelta(t, 0.003, detail.Stats.TotalCostUSD, 1e-9)
}

func TestSessionService_OwnershipEnforced(t *testing.T) {
	mockSessionRepo := new(MockSessionRepository)
	mockMessageRepo := new(MockMessageRepository)
	svc := NewSessionService(mockSessionRepo, mockMessageRepo, nil)

	ctx := context.Background()
	owner := uuid.New()
	intruder := uuid.New()
	sessionID := uuid.New()
	session := &domain.Session{ID: sessionID, UserID: &owner}

	mockSessionRepo.On("Get", ctx, sessionID).Return(session, nil)

	_, err := svc.Get(ctx, intruder, sessionID)
	assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))

	err = svc.Delete(ctx, intruder, sessionID)
	assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))
	mockSessionRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	err = svc.Rename(ctx, intruder, sessionID, "mine now")
	assert.Equal(t, domain.CodeForbidden, domain.CodeOf(err))
}

func TestSessionService_Rename(t *testing.T) {
	mockSessionRepo := new(MockSessionRepository)
	mockMessageRepo := new(MockMessageRepository)
	svc := NewSessionService(mockSessionRepo, mockMessageRepo, nil)

	ctx := context.Background()
	userID := uuid.New()
	sessionID := uuid.New()
	session := &domain.Session{ID: sessionID, UserID: &userID}

	mockSessionRepo.On("Get", ctx, sessionID).Return(session, nil)

	t.Run("empty title rejected", func(t *testing.T) {
		err := svc.Rename(ctx, userID, sessionID, "   ")
		assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
	})

	t.Run("title updated", func(t *testing.T) {
		mockSessionRepo.On("Update", ctx, sessionID, mock.MatchedBy(func(u domain.SessionUpdate) bool {
			return u.Title != nil && *u.Title == "Refund policy"
		})).Return(nil)

		err := svc.Rename(ctx, userID, sessionID, "  Refund   policy ")
		assert.NoError(t, err)
		mockSessionRepo.AssertExpectations(t)
	})
}

func TestSessionService_Export(t *testing.T) {
	mockSessionRepo := new(MockSessionRepository)
	mockMessageRepo := new(MockMessageRepository)
	svc := NewSessionService(mockSessionRepo, mockMessageRepo, nil)

	ctx := context.Background()
	userID := uuid.New()
	sessionID := uuid.New()
	session := &domain.Session{ID: sessionID, UserID: &userID, Title: "Refunds"}

	mockSessionRepo.On("Get", ctx, sessionID).Return(session, nil)
	mockMessageRepo.On("ListBySession", ctx, sessionID, sessionHistoryLimit).Return([]domain.Message{
		{Role: domain.RoleUser, Content: "How do refunds work?"},
		{Role: domain.RoleAssistant, Content: "Within 14 days."},
	}, nil)

	tests := []struct {
		name   string
		format string
		check  func(t *testing.T, transcript string)
	}{
		{"markdown", ExportMarkdown, func(t *testing.T, transcript string) {
			assert.Contains(t, transcript, "# Refunds")
			assert.Contains(t, transcript, "## User\n\nHow do refunds work?")
			assert.Contains(t, transcript, "## Assistant\n\nWithin 14 days.")
		}},
		{"default is markdown", "", func(t *testing.T, transcript string) {
			assert.Contains(t, transcript, "# Refunds")
		}},
		{"text", ExportText, func(t *testing.T, transcript string) {
			assert.Contains(t, transcript, "Refunds\n")
			assert.Contains(t, transcript, "User: How do refunds work?")
			assert.Contains(t, transcript, "Assistant: Within 14 days.")
			assert.NotContains(t, transcript, "## User")
		}},
		{"json", ExportJSON, func(t *testing.T, transcript string) {
			var detail SessionDetail
			assert.NoError(t, json.Unmarshal([]byte(transcript), &detail))
			assert.Equal(t, "Refunds", detail.Session.Title)
			assert.Len(t, detail.Messages, 2)
			assert.Equal(t, 2, detail.Stats.MessageCount)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transcript, err := svc.Export(ctx, userID, sessionID, tt.format)
			assert.NoError(t, err)
			tt.check(t, transcript)
		})
	}

	t.Run("unsupported format rejected", func(t *testing.T) {
		_, err := svc.Export(ctx, userID, sessionID, "pdf")
		assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
	})
}

func TestUsageService_History(t *testing.T) {
	usageRepo := &captureUsageRepo{}
	svc := NewUsageService(usageRepo, testUsageConfig())

	ctx := context.Background()
	userID := uuid.New()
	otherID := uuid.New()

	usageRepo.Insert(ctx, []domain.UsageRecord{
		{ID: uuid.New(), UserID: &userID, Operation: domain.OperationChat, Tokens: 100},
		{ID: uuid.New(), UserID: &otherID, Operation: domain.OperationChat, Tokens: 999},
		{ID: uuid.New(), UserID: &userID, Operation: domain.OperationTitle},
	})

	records, err := svc.History(ctx, userID, 0, 0)

	assert.NoError(t, err)
	assert.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, userID, *rec.UserID)
	}

	// Newest first.
	assert.Equal(t, domain.OperationTitle, records[0].Operation)
}

func TestUsageService_Quota(t *testing.T) {
	usageRepo := &captureUsageRepo{}
	svc := NewUsageService(usageRepo, testUsageConfig())

	ctx := context.Background()
	userID := uuid.New()

	quota, err := svc.Quota(ctx, userID)

	assert.NoError(t, err)
	assert.Equal(t, 100.0, quota.DailyLimitUSD)
	assert.Equal(t, 3000.0, quota.MonthlyLimitUSD)
	assert.False(t, quota.DailyExhausted)
	assert.False(t, quota.MonthlyExhausted)
}
