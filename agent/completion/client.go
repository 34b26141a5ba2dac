// Package completion wraps the external completion service with the
// resilience policy every specialist call goes through: bounded retries with
// exponential backoff and jitter, per-attempt timeouts, rate limiting, and
// classification of failures into the shared error taxonomy.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"followup-voicebot/agent/contract"
	sessionx "followup-voicebot/agent/session"
	logx "followup-voicebot/pkg/logger"
)

// Policy is the retry/backoff envelope for one logical completion.
type Policy struct {
	MaxAttempts       int           `envconfig:"MAX_ATTEMPTS" split_words:"true" default:"3"`
	BaseDelay         time.Duration `envconfig:"BASE_DELAY" split_words:"true" default:"1s"`
	MaxJitter         time.Duration `envconfig:"MAX_JITTER" split_words:"true" default:"1s"`
	AttemptTimeout    time.Duration `envconfig:"ATTEMPT_TIMEOUT" split_words:"true" default:"30s"`
	RequestsPerSecond float64       `envconfig:"REQUESTS_PER_SECOND" split_words:"true" default:"5"`
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = 30 * time.Second
	}
	if p.RequestsPerSecond <= 0 {
		p.RequestsPerSecond = 5
	}
	return p
}

// Client drives per-role chat models and owns the thread registry. The
// scheduling role's model is expected to be tool-bound at construction.
type Client struct {
	models   map[contract.Role]einomodel.BaseChatModel
	registry *sessionx.Registry
	policy   Policy
	limiter  *rate.Limiter
	logger   zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

var _ contract.CompletionClient = (*Client)(nil)

func NewClient(models map[contract.Role]einomodel.BaseChatModel, registry *sessionx.Registry, policy Policy) (*Client, error) {
	if len(models) == 0 {
		return nil, errors.New("completion: at least one role model is required")
	}
	if registry == nil {
		return nil, errors.New("completion: thread registry is required")
	}

	policy = policy.withDefaults()
	return &Client{
		models:   models,
		registry: registry,
		policy:   policy,
		limiter:  rate.NewLimiter(rate.Limit(policy.RequestsPerSecond), 1),
		logger:   logx.Component("completion"),
		sleep:    sleepCtx,
	}, nil
}

// Complete runs one resilient completion on the thread identified by key.
// The thread is created lazily; its session context is injected exactly once
// at creation and reused afterwards, so req.ThreadContext is ignored for
// existing threads.
func (c *Client) Complete(ctx context.Context, key contract.ThreadKey, req contract.CompletionRequest) (*contract.CompletionResult, error) {
	chatModel, ok := c.models[req.Role]
	if !ok {
		return nil, fmt.Errorf("%w: no model configured for role=%s", contract.ErrValidation, req.Role)
	}

	thread := c.registry.GetOrCreate(key, func() string { return req.ThreadContext })
	messages := buildMessages(req.SystemPrompt, thread.Context(), req.Transcript)

	var lastErr error
	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", contract.ErrTimeout, err)
		}

		msg, err := c.generateOnce(ctx, chatModel, messages)
		if err == nil {
			result, convErr := toResult(msg)
			if convErr != nil {
				return nil, convErr
			}
			c.logger.Debug().
				Str("role", string(req.Role)).
				Str("thread", thread.ID()).
				Int("attempt", attempt+1).
				Bool("tool_call", result.ToolCall != nil).
				Msg("completion succeeded")
			return result, nil
		}

		lastErr = classify(err)
		c.logger.Warn().
			Str("role", string(req.Role)).
			Str("thread", thread.ID()).
			Int("attempt", attempt+1).
			Err(lastErr).
			Msg("completion attempt failed")

		if !contract.IsTransient(lastErr) {
			return nil, lastErr
		}
		if attempt == c.policy.MaxAttempts-1 {
			break
		}

		delay := c.policy.BaseDelay<<uint(attempt) + jitter(c.policy.MaxJitter)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w: %v", contract.ErrTimeout, err)
		}
	}

	return nil, lastErr
}

func (c *Client) generateOnce(ctx context.Context, chatModel einomodel.BaseChatModel, messages []*schema.Message) (*schema.Message, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.policy.AttemptTimeout)
	defer cancel()
	return chatModel.Generate(attemptCtx, messages)
}

func buildMessages(systemPrompt, threadContext string, transcript []contract.Turn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(transcript)+2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, schema.SystemMessage(systemPrompt))
	}
	if strings.TrimSpace(threadContext) != "" {
		messages = append(messages, schema.SystemMessage(threadContext))
	}

	var lastCallID string
	for _, turn := range transcript {
		switch {
		case turn.Role == contract.TurnUser:
			messages = append(messages, schema.UserMessage(turn.Content))
		case turn.Role == contract.TurnAssistant && turn.ToolCall != nil:
			args, _ := json.Marshal(turn.ToolCall.Args)
			lastCallID = turn.ToolCall.ID
			if lastCallID == "" {
				lastCallID = "call_" + turn.ToolCall.Name
			}
			messages = append(messages, &schema.Message{
				Role: schema.Assistant,
				ToolCalls: []schema.ToolCall{
					{
						ID: lastCallID,
						Function: schema.FunctionCall{
							Name:      turn.ToolCall.Name,
							Arguments: string(args),
						},
					},
				},
			})
		case turn.Role == contract.TurnAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		case turn.Role == contract.TurnTool:
			messages = append(messages, schema.ToolMessage(turn.Content, lastCallID, schema.WithToolName(turn.ToolName)))
		}
	}
	return messages
}

func toResult(msg *schema.Message) (*contract.CompletionResult, error) {
	if msg == nil {
		return nil, contract.ErrEmptyCompletion
	}

	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		name := strings.TrimSpace(call.Function.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contract.ErrValidation)
		}
		args := map[string]any{}
		if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for %s: %v", contract.ErrValidation, name, err)
			}
		}
		return &contract.CompletionResult{
			ToolCall: &contract.ToolRequest{ID: call.ID, Name: name, Args: args},
		}, nil
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return nil, contract.ErrEmptyCompletion
	}
	return &contract.CompletionResult{Text: text}, nil
}

// classify maps transport failures onto the shared taxonomy. Authentication
// and malformed-request failures are terminal; everything else that smells
// like infrastructure is retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", contract.ErrTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "authentication") || strings.Contains(msg, "api key"):
		return fmt.Errorf("%w: %v", contract.ErrAuth, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return fmt.Errorf("%w: %v", contract.ErrRateLimited, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return fmt.Errorf("%w: %v", contract.ErrTimeout, err)
	case strings.Contains(msg, "400") || strings.Contains(msg, "invalid request") || strings.Contains(msg, "bad request"):
		return fmt.Errorf("%w: %v", contract.ErrValidation, err)
	default:
		return fmt.Errorf("%w: %v", contract.ErrServiceUnavailable, err)
	}
}

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
