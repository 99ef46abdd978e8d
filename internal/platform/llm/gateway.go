// Package llm wraps the Anthropic chat-completion API behind a rate-limited,
// retrying gateway shared by every caller (CV tailoring, cover letters, fit
// scoring, email classification). No caller talks to anthropic-sdk-go
// directly; all of them go through Gateway.Chat.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"

	"go.uber.org/zap"

	"github.com/andreypavlenko/jobber/internal/config"
	"github.com/andreypavlenko/jobber/internal/platform/apperror"
	"github.com/andreypavlenko/jobber/internal/platform/logger"
)

// Message is one turn of a chat-completion request.
type Message struct {
	Role    string // "user" | "assistant"
	Content string
}

// ChatRequest is a single call into the gateway.
type ChatRequest struct {
	Messages    []Message
	System      string
	Temperature float64
	MaxTokens   int64
	// Schema, when non-nil, forces the model to respond with JSON matching
	// this JSON Schema via a synthetic tool call instead of free text.
	Schema map[string]any
	// Tag identifies the caller for logs/metrics (e.g. "tailoring.cv",
	// "classifier.email").
	Tag string
}

// Gateway is the interface every caller depends on; Client is the only
// production implementation, and a fake satisfying this interface is the
// seam used by C4/C5 unit tests.
type Gateway interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// Client is the Anthropic-backed Gateway implementation.
type Client struct {
	sdk    anthropic.Client
	model  string
	sem    *semaphore.Weighted
	bucket *rateBucket
	log    *logger.Logger
}

const structuredOutputTool = "emit_result"

// New builds a Client from config, wiring the process-wide concurrency
// semaphore and per-minute rate limiter described in the LLM Gateway spec.
func New(cfg config.LLMConfig, log *logger.Logger) *Client {
	return &Client{
		sdk:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  cfg.Model,
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		bucket: newRateBucket(cfg.RequestsPerMin),
		log:    log,
	}
}

// Chat issues one chat-completion call, retrying on 429/5xx with exponential
// backoff (base 500ms, factor 2, jitter +/-20%, max 5 attempts). Non-retryable
// errors propagate immediately.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", apperror.Wrap(apperror.KindExternalUnavailable, "llm: could not acquire concurrency slot", err)
	}
	defer c.sem.Release(1)

	if err := c.bucket.Wait(ctx); err != nil {
		return "", apperror.Wrap(apperror.KindExternalUnavailable, "llm: rate limiter wait cancelled", err)
	}

	params := c.buildParams(req)

	const maxAttempts = 5
	const baseDelay = 500 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt-1)))
			jitter := 1 + (rand.Float64()*0.4 - 0.2) // +/-20%
			select {
			case <-time.After(time.Duration(float64(delay) * jitter)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		msg, err := c.sdk.Messages.New(ctx, params)
		if err == nil {
			return extractText(msg), nil
		}

		lastErr = err
		if !isRetryable(err) {
			c.log.Warn("llm call failed (non-retryable)", logFields(req.Tag, attempt, err)...)
			return "", apperror.Wrap(apperror.KindExternalUnavailable, "llm: call failed", err)
		}
		c.log.Warn("llm call failed, retrying", logFields(req.Tag, attempt, err)...)
	}

	return "", apperror.Wrap(apperror.KindExternalUnavailable, fmt.Sprintf("llm: exhausted %d attempts", maxAttempts), lastErr)
}

func (c *Client) buildParams(req ChatRequest) anthropic.MessageNewParams {
	msgs := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   req.MaxTokens,
		Temperature: anthropic.Float(req.Temperature),
		Messages:    msgs,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Schema != nil {
		params.Tools = []anthropic.ToolUnionParam{
			{
				OfTool: &anthropic.ToolParam{
					Name:        structuredOutputTool,
					Description: anthropic.String("Emit the structured result for this request."),
					InputSchema: schemaToInputSchema(req.Schema),
				},
			},
		}
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: structuredOutputTool},
		}
	}
	return params
}

func schemaToInputSchema(schema map[string]any) anthropic.ToolInputSchemaParam {
	props, _ := schema["properties"]
	required, _ := schema["required"].([]string)
	return anthropic.ToolInputSchemaParam{
		Properties: props,
		Required:   required,
	}
}

func extractText(msg *anthropic.Message) string {
	if msg == nil {
		return ""
	}
	for _, block := range msg.Content {
		if block.Type == "tool_use" {
			raw, err := json.Marshal(block.Input)
			if err == nil {
				return string(raw)
			}
		}
		if block.Type == "text" {
			return block.Text
		}
	}
	return ""
}

func isRetryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return true
}

func logFields(tag string, attempt int, err error) []zap.Field {
	return []zap.Field{zap.String("tag", tag), zap.Int("attempt", attempt), zap.Error(err)}
}

// rateBucket is a minimal token-bucket limiter for requests-per-minute.
// golang.org/x/time/rate is not part of the retrieved dependency pack, and
// no example repo pulls in a third-party rate limiter; a hand-rolled bucket
// that refills from the time elapsed since the last call is the
// standard-library fallback.
type rateBucket struct {
	mu       sync.Mutex
	tokens   float64
	max      float64
	refill   float64 // tokens per second
	lastFill time.Time
}

func newRateBucket(perMinute int) *rateBucket {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &rateBucket{
		tokens:   float64(perMinute),
		max:      float64(perMinute),
		refill:   float64(perMinute) / 60.0,
		lastFill: time.Now(),
	}
}

func (b *rateBucket) Wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(b.lastFill).Seconds()
		b.tokens = math.Min(b.max, b.tokens+elapsed*b.refill)
		b.lastFill = now

		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - b.tokens) / b.refill * float64(time.Second))
		b.mu.Unlock()

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
