package provider

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/theimaginaryfoundation/transcript-analyzer/analysis/fileutils"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1/"
	DefaultModel   = "google/gemini-2.0-flash-001"

	defaultTimeout = 5 * time.Minute
	maxErrorBody   = 400
)

// Completer turns one prompt+text pair into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt, text string, maxTokens int) (string, error)
}

// Completion is the outcome of an asynchronous completion call.
type Completion struct {
	Text string
	Err  error
}

// Options configures a Client. Zero values select the OpenRouter defaults.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls an OpenAI-compatible chat completions endpoint (OpenRouter by default).
// It never retries on its own; wrap it with WithRetry for that.
type Client struct {
	client openai.Client
	model  string
	apiKey string
}

func New(opts Options) *Client {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	c := openai.NewClient(
		option.WithAPIKey(opts.APIKey),
		option.WithBaseURL(NormalizeBaseURL(opts.BaseURL)),
		option.WithHTTPClient(hc),
		option.WithMaxRetries(0),
	)
	return &Client{client: c, model: model, apiKey: opts.APIKey}
}

// Model returns the model identifier sent with every request.
func (c *Client) Model() string { return c.model }

// BuildContent is the single user message sent for a prompt and its input text.
func BuildContent(prompt, text string) string {
	return prompt + ":\n\n" + text
}

// Complete performs one blocking request. Failures are *TransportError,
// *ServiceError or *ProtocolError.
func (c *Client) Complete(ctx context.Context, prompt, text string, maxTokens int) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildContent(prompt, text)),
		},
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", c.classify(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", &ProtocolError{Reason: "response missing choices"}
	}
	msg := resp.Choices[0].Message
	if !msg.JSON.Content.Valid() {
		return "", &ProtocolError{Reason: "choice missing message content"}
	}
	return msg.Content, nil
}

// CompleteAsync runs Complete on its own goroutine. The channel yields exactly one value.
func (c *Client) CompleteAsync(ctx context.Context, prompt, text string, maxTokens int) <-chan Completion {
	out := make(chan Completion, 1)
	go func() {
		defer close(out)
		s, err := c.Complete(ctx, prompt, text, maxTokens)
		out <- Completion{Text: s, Err: err}
	}()
	return out
}

func (c *Client) classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		body := apiErr.RawJSON()
		if body == "" {
			body = apiErr.Message
		}
		return &ServiceError{
			Status: apiErr.StatusCode,
			Body:   fileutils.TruncateRunes(redactSecrets(body, c.apiKey), maxErrorBody, ""),
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransportError{Err: err}
	}
	return &ProtocolError{Reason: "decode response", Err: err}
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
