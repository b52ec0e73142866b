package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hyunwoo-kim/docchat/internal/assistant"
	"github.com/hyunwoo-kim/docchat/internal/domain"
	"github.com/hyunwoo-kim/docchat/internal/repository/redis"
	"github.com/hyunwoo-kim/docchat/internal/usage"
)

// ChatRequest is one user message aimed at a session.
type ChatRequest struct {
	SessionID string         `json:"session_id"`
	Message   string         `json:"message" validate:"required,min=1,max=32000"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ChatResult is the chat envelope returned for every processed message,
// failures included.
type ChatResult struct {
	Success         bool    `json:"success"`
	Response        string  `json:"response,omitempty"`
	SessionID       string  `json:"session_id"`
	ThreadID        string  `json:"thread_id,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	TokensUsed      int     `json:"tokens_used"`
	Error           string  `json:"error,omitempty"`
}

// ChatService orchestrates one message exchange: session resolution,
// thread management, the assistant call, persistence and usage tracking.
type ChatService struct {
	sessionRepo  domain.SessionRepository
	messageRepo  domain.MessageRepository
	assistant    assistant.Client
	titler       assistant.Titler
	tracker      *usage.Tracker
	sessionCache *redis.SessionCache
}

// NewChatService creates a new chat service. titler and sessionCache
// may be nil.
func NewChatService(
	sessionRepo domain.SessionRepository,
	messageRepo domain.MessageRepository,
	assistantClient assistant.Client,
	titler assistant.Titler,
	tracker *usage.Tracker,
	sessionCache *redis.SessionCache,
) *ChatService {
	return &ChatService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		assistant:    assistantClient,
		titler:       titler,
		tracker:      tracker,
		sessionCache: sessionCache,
	}
}

// ProcessMessage runs the full chat flow for one message. The assistant
// is called at most once; persistence failures degrade the result but
// never fail an exchange that produced a reply. A usage record is
// written for every invocation.
func (s *ChatService) ProcessMessage(ctx context.Context, userID *uuid.UUID, req ChatRequest) (*ChatResult, error) {
	start := time.Now()

	// 1. Resolve or create the session.
	session, isNew, err := s.resolveSession(ctx, userID, req.SessionID)
	if err != nil {
		s.recordUsage(userID, nil, start, 0, 0, err)
		return nil, err
	}

	// 2. Ensure the session has a live remote thread.
	threadID, threadReplaced, err := s.ensureThread(ctx, session)
	if err != nil {
		s.recordUsage(userID, &session.ID, start, 0, 0, err)
		return s.failureResult(session, start, err), nil
	}

	// 3. Single assistant call; no retries.
	reply, err := s.assistant.SendMessage(ctx, threadID, req.Message)
	if err != nil {
		s.recordUsage(userID, &session.ID, start, 0, 0, err)
		return s.failureResult(session, start, err), nil
	}

	// 4. Best-effort persistence of the exchange.
	s.persistExchange(ctx, session, isNew, req, reply)

	// 5. Usage accounting always happens.
	s.recordUsage(userID, &session.ID, start, reply.TotalTokens, reply.CostUSD, nil)

	// 6. Async title generation for fresh sessions.
	if isNew && s.titler != nil {
		go s.generateSessionTitle(session.ID, req.Message)
	}

	if threadReplaced {
		log.Info().
			Str("session_id", session.ID.String()).
			Str("thread_id", threadID).
			Msg("Session rebound to a new thread")
	}

	return &ChatResult{
		Success:         true,
		Response:        reply.Content,
		SessionID:       session.ID.String(),
		ThreadID:        threadID,
		DurationSeconds: time.Since(start).Seconds(),
		TokensUsed:      reply.TotalTokens,
	}, nil
}

// resolveSession loads an existing session or creates a fresh one. A
// malformed or unknown session ID falls back to a new session rather
// than failing the exchange.
func (s *ChatService) resolveSession(ctx context.Context, userID *uuid.UUID, sessionID string) (*domain.Session, bool, error) {
	if sessionID != "" {
		id, err := uuid.Parse(sessionID)
		if err == nil {
			session, err := s.getSession(ctx, id)
			if err == nil {
				if session.UserID != nil && userID != nil && *session.UserID != *userID {
					return nil, false, domain.Errorf(domain.CodeForbidden, "chat.resolve_session", "session %s belongs to another user", id)
				}
				return session, false, nil
			}
			if domain.CodeOf(err) != domain.CodeSessionNotFound {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("Session lookup failed, starting new session")
			}
		} else {
			log.Warn().Str("session_id", sessionID).Msg("Malformed session ID, starting new session")
		}
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:            uuid.New(),
		UserID:        userID,
		Title:         domain.DefaultSessionTitle,
		CreatedAt:     now,
		LastMessageAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, false, err
	}
	return session, true, nil
}

func (s *ChatService) getSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	if s.sessionCache != nil {
		if cached, err := s.sessionCache.Get(ctx, id); err == nil && cached != nil {
			return cached, nil
		}
	}

	session, err := s.sessionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.sessionCache != nil {
		if err := s.sessionCache.Set(ctx, session); err != nil {
			log.Debug().Err(err).Msg("Failed to cache session")
		}
	}
	return session, nil
}

// ensureThread returns a verified thread ID for the session, creating
// and binding a replacement when the stored one is missing or dead.
func (s *ChatService) ensureThread(ctx context.Context, session *domain.Session) (string, bool, error) {
	if strings.HasPrefix(session.ThreadID, "thread_") && s.assistant.VerifyThread(ctx, session.ThreadID) {
		return session.ThreadID, false, nil
	}

	replaced := session.ThreadID != ""

	createStart := time.Now()
	threadID, err := s.assistant.CreateThread(ctx)

	record := domain.UsageRecord{
		UserID:     session.UserID,
		SessionID:  &session.ID,
		Operation:  domain.OperationThreadCreate,
		DurationMs: time.Since(createStart).Milliseconds(),
		Success:    err == nil,
	}
	if err != nil {
		record.ErrorMessage = err.Error()
	}
	s.tracker.Record(record)

	if err != nil {
		return "", false, err
	}

	session.ThreadID = threadID
	if err := s.sessionRepo.Update(ctx, session.ID, domain.SessionUpdate{ThreadID: &threadID}); err != nil {
		// The thread is live remotely; losing the binding only costs a
		// replacement on the next message.
		log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Failed to persist thread binding")
	}
	s.invalidateCache(ctx, session.ID)

	return threadID, replaced, nil
}

// persistExchange appends the message pair and bumps session metadata.
// Failures are logged, never propagated.
func (s *ChatService) persistExchange(ctx context.Context, session *domain.Session, isNew bool, req ChatRequest, reply *assistant.Reply) {
	now := time.Now().UTC()

	pair := []domain.Message{
		{
			ID:        uuid.New(),
			SessionID: session.ID,
			Role:      domain.RoleUser,
			Content:   req.Message,
			Metadata:  req.Metadata,
			CreatedAt: now,
		},
		{
			ID:         uuid.New(),
			SessionID:  session.ID,
			Role:       domain.RoleAssistant,
			Content:    reply.Content,
			TokensUsed: reply.TotalTokens,
			CostUSD:    reply.CostUSD,
			Metadata: map[string]any{
				"prompt_tokens":     reply.PromptTokens,
				"completion_tokens": reply.CompletionTokens,
			},
			CreatedAt: now,
		},
	}
	if err := s.messageRepo.Append(ctx, pair); err != nil {
		log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Failed to save conversation")
	}

	update := domain.SessionUpdate{LastMessageAt: &now}
	if isNew || session.Title == domain.DefaultSessionTitle {
		title := domain.TitleFromMessage(req.Message)
		update.Title = &title
	}
	if err := s.sessionRepo.Update(ctx, session.ID, update); err != nil {
		log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Failed to update session")
	}
	s.invalidateCache(ctx, session.ID)
}

func (s *ChatService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.sessionCache == nil {
		return
	}
	if err := s.sessionCache.Invalidate(ctx, id); err != nil {
		log.Debug().Err(err).Msg("Failed to invalidate session cache")
	}
}

func (s *ChatService) failureResult(session *domain.Session, start time.Time, err error) *ChatResult {
	return &ChatResult{
		Success:         false,
		SessionID:       session.ID.String(),
		ThreadID:        session.ThreadID,
		DurationSeconds: time.Since(start).Seconds(),
		Error:           err.Error(),
	}
}

func (s *ChatService) recordUsage(userID, sessionID *uuid.UUID, start time.Time, tokens int, cost float64, opErr error) {
	record := domain.UsageRecord{
		UserID:     userID,
		SessionID:  sessionID,
		Operation:  domain.OperationChat,
		Tokens:     tokens,
		CostUSD:    cost,
		DurationMs: time.Since(start).Milliseconds(),
		Success:    opErr == nil,
	}
	if opErr != nil {
		record.ErrorMessage = opErr.Error()
	}
	s.tracker.Record(record)
}

// generateSessionTitle replaces the truncation-derived title with a
// generated one. Best-effort with its own deadline; the fallback title
// is already in place.
func (s *ChatService) generateSessionTitle(sessionID uuid.UUID, question string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	title, err := s.titler.Title(ctx, question)

	record := domain.UsageRecord{
		SessionID:  &sessionID,
		Operation:  domain.OperationTitle,
		DurationMs: time.Since(start).Milliseconds(),
		Success:    err == nil,
	}
	if err != nil {
		record.ErrorMessage = err.Error()
	}
	s.tracker.Record(record)

	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to generate session title")
		return
	}

	if err := s.sessionRepo.Update(ctx, sessionID, domain.SessionUpdate{Title: &title}); err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to update session title")
		return
	}
	s.invalidateCache(ctx, sessionID)

	log.Info().Str("session_id", sessionID.String()).Str("title", title).Msg("Updated session title")
}
