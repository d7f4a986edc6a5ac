package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thenotsotalentedcoder/sqlite-chatbot/internal/domain"
)

// ErrNoResponse is returned when every credential in the pool has been tried
// and none produced a usable response. Callers must treat it as "no answer
// available", not as a single credential problem.
var ErrNoResponse = errors.New("no response from model")

const defaultTimeout = 300 * time.Second

// Options bound one generation request.
type Options struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // per-attempt wall-clock bound
}

// Client talks to an OpenRouter-style chat-completions endpoint with
// credential rotation. Safe for concurrent use; the pool serializes cursor
// access internally.
type Client struct {
	pool    *KeyPool
	model   string
	baseURL string
	referer string
	title   string
	client  *http.Client
}

// NewClient creates a chat-completions client over the given key pool.
func NewClient(pool *KeyPool, model, baseURL, referer, title string) *Client {
	return &Client{
		pool:    pool,
		model:   model,
		baseURL: baseURL,
		referer: referer,
		title:   title,
		client:  &http.Client{},
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

type chatRequest struct {
	Model          string               `json:"model"`
	Messages       []domain.ChatMessage `json:"messages"`
	Temperature    float64              `json:"temperature"`
	MaxTokens      int                  `json:"max_tokens,omitempty"`
	ResponseFormat responseFormat       `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateResponse sends the messages to the model. On each attempt it takes
// the next credential from the pool and issues one call bounded by
// opts.Timeout; transport errors and malformed responses advance to the next
// credential, up to pool size attempts total. The first attempt returning
// generated content wins. On exhaustion the per-attempt failures are joined
// into a single terminal error; the client never retries beyond the rotation.
// It returns the content and the number of attempts made.
func (c *Client) GenerateResponse(ctx context.Context, messages []domain.ChatMessage, opts Options) (string, int, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	var attemptErrs []error
	attempts := 0

	for attempt := 0; attempt < c.pool.Size(); attempt++ {
		if err := ctx.Err(); err != nil {
			attemptErrs = append(attemptErrs, err)
			break
		}

		attempts++
		apiKey := c.pool.Next()

		log.Debug().Int("attempt", attempt+1).Msg("sending chat-completions request")

		content, err := c.attempt(ctx, apiKey, messages, opts)
		if err == nil {
			return content, attempts, nil
		}

		log.Warn().Err(err).Int("attempt", attempt+1).Msg("chat-completions attempt failed")
		attemptErrs = append(attemptErrs, fmt.Errorf("attempt %d: %w", attempt+1, err))
	}

	return "", attempts, fmt.Errorf("%w: all %d key(s) failed: %w", ErrNoResponse, c.pool.Size(), errors.Join(attemptErrs...))
}

func (c *Client) attempt(ctx context.Context, apiKey string, messages []domain.ChatMessage, opts Options) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:          c.model,
		Messages:       messages,
		Temperature:    opts.Temperature,
		MaxTokens:      opts.MaxTokens,
		ResponseFormat: responseFormat{Type: "text"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no content in response choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}
