package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/hyunwoo-kim/docchat/internal/config"
	"github.com/hyunwoo-kim/docchat/internal/domain"
)

// modelPricing holds USD prices per 1K tokens.
type modelPricing struct {
	prompt     float64
	completion float64
}

var pricingTable = map[string]modelPricing{
	"gpt-4-turbo-preview": {prompt: 0.01, completion: 0.03},
	"gpt-4o":              {prompt: 0.0025, completion: 0.01},
	"gpt-4o-mini":         {prompt: 0.00015, completion: 0.0006},
	"gpt-3.5-turbo":       {prompt: 0.0005, completion: 0.0015},
}

// defaultPricing is used for models missing from the table so cost
// estimates stay conservative rather than zero.
var defaultPricing = modelPricing{prompt: 0.01, completion: 0.03}

// OpenAIClient talks to a pre-configured OpenAI assistant. The
// assistant holds the knowledge base and retrieval tooling; this client
// only manages threads, messages and runs.
type OpenAIClient struct {
	client       *openai.Client
	assistantID  string
	model        string
	pollInterval time.Duration
	runTimeout   time.Duration
	logger       zerolog.Logger
}

// NewOpenAIClient creates a client and verifies the assistant exists.
func NewOpenAIClient(ctx context.Context, cfg config.AssistantConfig, logger zerolog.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("assistant API key is required")
	}
	if cfg.AssistantID == "" {
		return nil, fmt.Errorf("assistant ID is required")
	}

	client := openai.NewClient(cfg.APIKey)

	asst, err := client.RetrieveAssistant(ctx, cfg.AssistantID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve assistant %s: %w", cfg.AssistantID, err)
	}

	model := cfg.Model
	if asst.Model != "" {
		model = asst.Model
	}

	logger.Info().
		Str("assistant_id", cfg.AssistantID).
		Str("model", model).
		Msg("Assistant client initialized")

	return &OpenAIClient{
		client:       client,
		assistantID:  cfg.AssistantID,
		model:        model,
		pollInterval: cfg.PollInterval,
		runTimeout:   cfg.RunTimeout,
		logger:       logger,
	}, nil
}

// CreateThread provisions a fresh remote thread.
func (c *OpenAIClient) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", domain.E(domain.CodeThreadCreation, "assistant.create_thread", err)
	}

	c.logger.Debug().Str("thread_id", thread.ID).Msg("Created thread")
	return thread.ID, nil
}

// VerifyThread reports whether the thread is still retrievable. Any
// error counts as a failed verification; the caller replaces the
// thread rather than distinguishing error kinds.
func (c *OpenAIClient) VerifyThread(ctx context.Context, threadID string) bool {
	if !strings.HasPrefix(threadID, "thread_") {
		return false
	}

	_, err := c.client.RetrieveThread(ctx, threadID)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("thread_id", threadID).
			Msg("Thread verification failed")
		return false
	}
	return true
}

// SendMessage posts the message, starts a run and polls until the run
// reaches a terminal status or the run timeout elapses. The remote call
// is made exactly once.
func (c *OpenAIClient) SendMessage(ctx context.Context, threadID, message string) (*Reply, error) {
	runCtx := ctx
	if c.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.runTimeout)
		defer cancel()
	}

	_, err := c.client.CreateMessage(runCtx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})
	if err != nil {
		return nil, domain.E(domain.CodeAssistantCall, "assistant.create_message", err)
	}

	run, err := c.client.CreateRun(runCtx, threadID, openai.RunRequest{
		AssistantID: c.assistantID,
	})
	if err != nil {
		return nil, domain.E(domain.CodeAssistantCall, "assistant.create_run", err)
	}

	run, err = c.pollRun(runCtx, threadID, run)
	if err != nil {
		return nil, err
	}

	content, err := c.latestReply(runCtx, threadID, run.ID)
	if err != nil {
		return nil, err
	}

	reply := &Reply{
		Content:          content,
		PromptTokens:     run.Usage.PromptTokens,
		CompletionTokens: run.Usage.CompletionTokens,
		TotalTokens:      run.Usage.TotalTokens,
	}
	reply.CostUSD = c.estimateCost(reply.PromptTokens, reply.CompletionTokens)

	return reply, nil
}

func (c *OpenAIClient) pollRun(ctx context.Context, threadID string, run openai.Run) (openai.Run, error) {
	interval := c.pollInterval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		switch run.Status {
		case openai.RunStatusCompleted:
			return run, nil
		case openai.RunStatusFailed, openai.RunStatusCancelled, openai.RunStatusExpired:
			msg := string(run.Status)
			if run.LastError != nil {
				msg = fmt.Sprintf("%s: %s", run.LastError.Code, run.LastError.Message)
			}
			return run, domain.Errorf(domain.CodeRunFailed, "assistant.run", "run %s ended with status %s (%s)", run.ID, run.Status, msg)
		case openai.RunStatusRequiresAction:
			// Retrieval happens inside the assistant; tool calls are
			// not expected and cannot be serviced here.
			return run, domain.Errorf(domain.CodeRunFailed, "assistant.run", "run %s requires unsupported action", run.ID)
		}

		select {
		case <-ctx.Done():
			return run, domain.E(domain.CodeRunFailed, "assistant.run", fmt.Errorf("run %s did not complete: %w", run.ID, ctx.Err()))
		case <-ticker.C:
		}

		var err error
		run, err = c.client.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			return run, domain.E(domain.CodeAssistantCall, "assistant.retrieve_run", err)
		}
	}
}

// latestReply fetches the assistant message produced by the given run.
func (c *OpenAIClient) latestReply(ctx context.Context, threadID, runID string) (string, error) {
	limit := 1
	order := "desc"

	list, err := c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, &runID)
	if err != nil {
		return "", domain.E(domain.CodeAssistantCall, "assistant.list_messages", err)
	}

	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		var sb strings.Builder
		for _, part := range msg.Content {
			if part.Text != nil {
				sb.WriteString(part.Text.Value)
			}
		}
		if sb.Len() > 0 {
			return sb.String(), nil
		}
	}

	return "", domain.Errorf(domain.CodeAssistantCall, "assistant.list_messages", "run %s produced no assistant message", runID)
}

func (c *OpenAIClient) estimateCost(promptTokens, completionTokens int) float64 {
	pricing, ok := pricingTable[c.model]
	if !ok {
		pricing = defaultPricing
	}
	return float64(promptTokens)/1000*pricing.prompt + float64(completionTokens)/1000*pricing.completion
}
