package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	apperrors "github.com/lftm-team/meeting-enrichment/errors"
	"github.com/lftm-team/meeting-enrichment/internal/domain/entities"
	"github.com/lftm-team/meeting-enrichment/pkg/config"
)

// OpenAIClient is a minimal client for OpenAI-compatible chat completion
// endpoints, used for transcript enrichment. Configuration is resolved at
// construction; per-call overrides never mutate the shared defaults, so a
// single instance is safe to share across concurrent requests.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	client      *http.Client
}

// NewOpenAIClient creates an OpenAI client using values from the provided
// config. Pass a nil config to fall back to environment variables.
func NewOpenAIClient(cfg *config.OpenAIConfig) *OpenAIClient {
	var apiKey string
	if cfg != nil {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	var base string
	if cfg != nil && cfg.BaseURL != "" {
		base = cfg.BaseURL
	} else {
		base = os.Getenv("OPENAI_API_URL")
		if base == "" {
			base = "https://api.openai.com"
		}
	}

	model := "gpt-4o"
	temperature := 0.0
	maxTokens := 0
	timeout := 30 * time.Second
	if cfg != nil {
		if cfg.Model != "" {
			model = cfg.Model
		}
		temperature = cfg.Temperature
		maxTokens = cfg.MaxTokens
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
	}

	return &OpenAIClient{
		apiKey:      apiKey,
		baseURL:     base,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
		// No transport-level timeout: each call is bounded by its own
		// context deadline so the repair path can use a shorter one.
		client: &http.Client{},
	}
}

// Model returns the configured default model identifier.
func (o *OpenAIClient) Model() string { return o.model }

// callConfig carries per-call overrides of the constructor defaults.
type callConfig struct {
	model       string
	temperature *float64
	maxTokens   *int
	timeout     time.Duration
}

// CallOption overrides one generation parameter for a single call.
type CallOption func(*callConfig)

// WithModel overrides the model identifier for one call.
func WithModel(model string) CallOption {
	return func(c *callConfig) { c.model = model }
}

// WithTemperature overrides the sampling temperature for one call.
func WithTemperature(t float64) CallOption {
	return func(c *callConfig) { c.temperature = &t }
}

// WithMaxTokens caps the completion length for one call.
func WithMaxTokens(n int) CallOption {
	return func(c *callConfig) { c.maxTokens = &n }
}

// WithTimeout overrides the request deadline for one call.
func WithTimeout(d time.Duration) CallOption {
	return func(c *callConfig) { c.timeout = d }
}

// PromptInputs is the payload for a primary generation call.
type PromptInputs struct {
	Transcript   string
	MetadataJSON string
}

// RepairInputs is the payload for a repair call: the malformed output, the
// validation error verbatim, a truncated transcript preview and a textual
// description of the expected schema.
type RepairInputs struct {
	MalformedJSON     string
	ErrorMessage      string
	TranscriptPreview string
	SchemaDescription string
}

// ChatMessage is a single chat completion message
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate runs the primary generation prompt for the given schema kind and
// returns the model's raw structured output. Upstream failures are
// classified as RateLimited, Timeout or ProviderError; nothing else escapes.
func (o *OpenAIClient) Generate(ctx context.Context, kind entities.SchemaKind, in PromptInputs, opts ...CallOption) (*entities.GenerationResult, error) {
	messages := []ChatMessage{
		{Role: "system", Content: systemPrompt(kind)},
		{Role: "user", Content: fmt.Sprintf(userPromptTemplate, in.Transcript, in.MetadataJSON)},
	}
	return o.complete(ctx, messages, opts...)
}

// Repair runs the repair prompt against a payload that failed validation.
// Callers bound it with their own (shorter) timeout via WithTimeout.
func (o *OpenAIClient) Repair(ctx context.Context, in RepairInputs, opts ...CallOption) (*entities.GenerationResult, error) {
	messages := []ChatMessage{
		{Role: "system", Content: repairSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(repairUserTemplate, in.MalformedJSON, in.ErrorMessage, in.TranscriptPreview, in.SchemaDescription)},
	}
	return o.complete(ctx, messages, opts...)
}

func (o *OpenAIClient) complete(ctx context.Context, messages []ChatMessage, opts ...CallOption) (*entities.GenerationResult, error) {
	cc := callConfig{model: o.model, timeout: o.timeout}
	for _, opt := range opts {
		opt(&cc)
	}
	temperature := o.temperature
	if cc.temperature != nil {
		temperature = *cc.temperature
	}
	maxTokens := o.maxTokens
	if cc.maxTokens != nil {
		maxTokens = *cc.maxTokens
	}

	reqBody := ChatRequest{
		Model:       cc.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperrors.Provider(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, cc.timeout)
	defer cancel()

	endpoint := o.baseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(callCtx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, apperrors.Provider(err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.RateLimited(fmt.Errorf("openai returned status 429"))
	}
	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.Provider(fmt.Errorf("openai returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var cr ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, apperrors.Provider(err)
	}
	if len(cr.Choices) == 0 {
		return nil, apperrors.Provider(fmt.Errorf("empty response from openai"))
	}

	content := cr.Choices[0].Message.Content
	result := &entities.GenerationResult{
		RawContent: content,
		Model:      cc.model,
		Usage: entities.TokenUsage{
			PromptTokens:     cr.Usage.PromptTokens,
			CompletionTokens: cr.Usage.CompletionTokens,
			TotalTokens:      cr.Usage.TotalTokens,
		},
	}

	// Best-effort JSON parse. A non-JSON body is not an upstream failure:
	// the validator turns a nil payload into a schema violation so the
	// repair path can see the raw text.
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(extractJSON(content)), &payload); err == nil {
		result.Payload = payload
	}

	return result, nil
}

// classifyTransportError maps transport failures onto the pipeline's
// taxonomy: deadline overruns become Timeout, everything else ProviderError.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return apperrors.Timeout(err)
	}
	return apperrors.Provider(err)
}

// extractJSON extracts JSON content from markdown code blocks or plain text
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}
