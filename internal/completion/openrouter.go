package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// DefaultTimeout is the hard ceiling on a single completion call.
const DefaultTimeout = 120 * time.Second

// OpenRouterClient talks to an OpenRouter-compatible completion API. It
// implements both Client and BillingLookup: completions go through the
// OpenAI-compatible chat endpoint, costs through the generation-metadata
// endpoint.
type OpenRouterClient struct {
	client  openai.Client
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
}

// NewOpenRouter creates a client for the given model. baseURL may be empty
// for the public endpoint; timeout <= 0 falls back to DefaultTimeout.
func NewOpenRouter(apiKey, baseURL, model string, timeout time.Duration) *OpenRouterClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenRouterClient{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		),
		http:    &http.Client{},
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
	}
}

// Complete issues one chat completion with the configured model and a hard
// deadline. Upstream errors are classified; the raw provider error stays
// wrapped underneath for logging.
func (c *OpenRouterClient) Complete(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	chat, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("completion response contained no choices")
	}

	return &Result{
		Content: chat.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     int(chat.Usage.PromptTokens),
			CompletionTokens: int(chat.Usage.CompletionTokens),
			TotalTokens:      int(chat.Usage.TotalTokens),
		},
		GenerationID: chat.ID,
		Model:        chat.Model,
	}, nil
}

// classify maps an SDK error onto the sentinel taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %v", ErrInsufficientCredit, err)
		}
	}
	return err
}

type generationEnvelope struct {
	Data struct {
		ID        string  `json:"id"`
		TotalCost float64 `json:"total_cost"`
	} `json:"data"`
}

// Cost looks up the authoritative USD cost of a generation. A 404 means the
// billing record has not been written yet and maps to ErrCostUnavailable.
func (c *OpenRouterClient) Cost(ctx context.Context, generationID string) (float64, error) {
	endpoint := c.baseURL + "/generation?id=" + url.QueryEscape(generationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build generation lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("generation lookup: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return 0, ErrCostUnavailable
	default:
		return 0, fmt.Errorf("generation lookup returned status %d", resp.StatusCode)
	}

	var env generationEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return 0, fmt.Errorf("decode generation lookup response: %w", err)
	}
	return env.Data.TotalCost, nil
}
