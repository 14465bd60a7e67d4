// Package moderation provides the content-moderation model client.
package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bookofrecords/sentinel/internal/domain"
	"github.com/sashabaranov/go-openai"
)

// ErrMissingAPIKey is returned when the moderation credential is absent.
// The service treats this as a configuration error and refuses to start.
var ErrMissingAPIKey = errors.New("moderation API key is not configured")

const systemPrompt = `You are a content moderator for a student records platform. ` +
	`Analyze submissions for inappropriate content, spam, or quality issues. ` +
	`Respond with a JSON object containing: ` +
	`{ "hasInappropriateContent": boolean, "hasSpam": boolean, "contentQuality": "high"|"medium"|"low", "concerns": string[] }`

// Client moderates submission text via a chat-completions model gateway.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// New creates a moderation client. The API key is required; BaseURL points
// the client at the model gateway when set.
func New(cfg domain.ModerationConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "google/gemini-2.5-flash"
	}

	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
	}, nil
}

// Moderate sends the submission text to the model and parses its verdict.
// Any transport or parse failure is reported as ErrModerationUnavailable so
// the caller can degrade gracefully.
func (c *Client) Moderate(ctx context.Context, text string) (*domain.ModerationVerdict, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModerationUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", domain.ErrModerationUnavailable)
	}

	content := resp.Choices[0].Message.Content

	verdict, err := parseVerdict(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrModerationUnavailable, err)
	}

	return verdict, nil
}

// parseVerdict extracts and parses the first balanced JSON object from the
// model's free-text reply. The model is not guaranteed to return pure JSON.
func parseVerdict(content string) (*domain.ModerationVerdict, error) {
	raw, ok := extractJSON(content)
	if !ok {
		return nil, fmt.Errorf("no JSON object in model reply")
	}

	var verdict domain.ModerationVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse model reply: %v", err)
	}

	return &verdict, nil
}

// extractJSON returns the first balanced {...} substring of s.
// Brace counting ignores braces inside JSON string literals.
func extractJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}
