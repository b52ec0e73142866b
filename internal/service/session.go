package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hyunwoo-kim/docchat/internal/domain"
	"github.com/hyunwoo-kim/docchat/internal/repository/redis"
)

const sessionHistoryLimit = 200

// SessionDetail is a session with its message history.
type SessionDetail struct {
	Session  domain.Session   `json:"session"`
	Messages []domain.Message `json:"messages"`
	Stats    SessionStats     `json:"stats"`
}

// SessionStats summarizes a session's history.
type SessionStats struct {
	MessageCount int     `json:"message_count"`
	TotalTokens  int     `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// SessionService handles session management operations.
type SessionService struct {
	sessionRepo  domain.SessionRepository
	messageRepo  domain.MessageRepository
	sessionCache *redis.SessionCache
}

// NewSessionService creates a new session service. sessionCache may be
// nil.
func NewSessionService(sessionRepo domain.SessionRepository, messageRepo domain.MessageRepository, sessionCache *redis.SessionCache) *SessionService {
	return &SessionService{
		sessionRepo:  sessionRepo,
		messageRepo:  messageRepo,
		sessionCache: sessionCache,
	}
}

// List returns the user's sessions, most recently active first.
func (s *SessionService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Session, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.sessionRepo.ListByUser(ctx, userID, limit, offset)
}

// Get returns one session with its history and stats.
func (s *SessionService) Get(ctx context.Context, userID, sessionID uuid.UUID) (*SessionDetail, error) {
	session, err := s.authorize(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListBySession(ctx, sessionID, sessionHistoryLimit)
	if err != nil {
		return nil, err
	}

	stats := SessionStats{MessageCount: len(messages)}
	for _, m := range messages {
		stats.TotalTokens += m.TokensUsed
		stats.TotalCostUSD += m.CostUSD
	}

	return &SessionDetail{
		Session:  *session,
		Messages: messages,
		Stats:    stats,
	}, nil
}

// Rename sets a session's title.
func (s *SessionService) Rename(ctx context.Context, userID, sessionID uuid.UUID, title string) error {
	if _, err := s.authorize(ctx, userID, sessionID); err != nil {
		return err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Errorf(domain.CodeValidation, "session.rename", "title must not be empty")
	}
	title = domain.TitleFromMessage(title)

	if err := s.sessionRepo.Update(ctx, sessionID, domain.SessionUpdate{Title: &title}); err != nil {
		return err
	}
	s.invalidateCache(ctx, sessionID)
	return nil
}

// Delete removes a session and its messages.
func (s *SessionService) Delete(ctx context.Context, userID, sessionID uuid.UUID) error {
	if _, err := s.authorize(ctx, userID, sessionID); err != nil {
		return err
	}

	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.invalidateCache(ctx, sessionID)
	return nil
}

// Export formats.
const (
	ExportMarkdown = "md"
	ExportText     = "txt"
	ExportJSON     = "json"
)

// Export renders a session's history as a transcript in the requested
// format. An empty format defaults to markdown.
func (s *SessionService) Export(ctx context.Context, userID, sessionID uuid.UUID, format string) (string, error) {
	if format == "" {
		format = ExportMarkdown
	}
	switch format {
	case ExportMarkdown, ExportText, ExportJSON:
	default:
		return "", domain.Errorf(domain.CodeValidation, "session.export", "unsupported format %q", format)
	}

	detail, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}

	switch format {
	case ExportJSON:
		data, err := json.MarshalIndent(detail, "", "  ")
		if err != nil {
			return "", domain.E(domain.CodeInternal, "session.export", err)
		}
		return string(data), nil
	case ExportText:
		return exportText(detail), nil
	default:
		return exportMarkdown(detail), nil
	}
}

func exportMarkdown(detail *SessionDetail) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", detail.Session.Title)
	fmt.Fprintf(&sb, "Created: %s\n\n", detail.Session.CreatedAt.Format(time.RFC3339))

	for _, m := range detail.Messages {
		switch m.Role {
		case domain.RoleUser:
			fmt.Fprintf(&sb, "## User\n\n%s\n\n", m.Content)
		case domain.RoleAssistant:
			fmt.Fprintf(&sb, "## Assistant\n\n%s\n\n", m.Content)
		}
	}

	return sb.String()
}

func exportText(detail *SessionDetail) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", detail.Session.Title)
	fmt.Fprintf(&sb, "Created: %s\n\n", detail.Session.CreatedAt.Format(time.RFC3339))

	for _, m := range detail.Messages {
		switch m.Role {
		case domain.RoleUser:
			fmt.Fprintf(&sb, "User: %s\n\n", m.Content)
		case domain.RoleAssistant:
			fmt.Fprintf(&sb, "Assistant: %s\n\n", m.Content)
		}
	}

	return sb.String()
}

// authorize loads the session and enforces ownership. Sessions without
// an owner are reachable by any authenticated user.
func (s *SessionService) authorize(ctx context.Context, userID, sessionID uuid.UUID) (*domain.Session, error) {
	session, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != nil && *session.UserID != userID {
		return nil, domain.Errorf(domain.CodeForbidden, "session.authorize", "session %s belongs to another user", sessionID)
	}
	return session, nil
}

func (s *SessionService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.sessionCache == nil {
		return
	}
	if err := s.sessionCache.Invalidate(ctx, id); err != nil {
		log.Debug().Err(err).Msg("Failed to invalidate session cache")
	}
}
