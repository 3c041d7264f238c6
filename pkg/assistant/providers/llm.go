package providers

import (
	"context"
	"fmt"
	"net/http"

	"vesta-hq/vesta/pkg/config"
	"vesta-hq/vesta/pkg/telemetry/health"
)

// Generation defaults applied when a request leaves them zero. They
// mirror the inference server's own defaults.
const (
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9

	// MaxGenerateTokens is the server-side ceiling on max_tokens.
	MaxGenerateTokens = 2048
)

// Message is a single turn in a conversation.
type Message struct {
	// Role is "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// GenerateRequest is the request body for the inference server's
// /generate endpoint.
type GenerateRequest struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
}

// GenerateResponse is the inference server's generation result.
type GenerateResponse struct {
	// Response is the generated text.
	Response string `json:"response"`

	// TokensGenerated is the number of tokens produced.
	TokensGenerated int `json:"tokens_generated"`

	// GenerationTimeMS is the server-side generation time in milliseconds.
	GenerationTimeMS int64 `json:"generation_time_ms"`

	// Model is the model that produced the response.
	Model string `json:"model"`
}

// LLMHealth is the inference server's health report.
type LLMHealth struct {
	Status        string  `json:"status"`
	Model         string  `json:"model"`
	ModelLoaded   bool    `json:"model_loaded"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// LLMStats is the inference server's usage statistics.
type LLMStats struct {
	Model                string  `json:"model"`
	ModelLoadTimeSeconds float64 `json:"model_load_time_seconds"`
	UptimeSeconds        float64 `json:"uptime_seconds"`
	TotalRequests        int64   `json:"total_requests"`
	TotalTokensGenerated int64   `json:"total_tokens_generated"`
}

// LLMClient talks to the local MLX inference server.
type LLMClient struct {
	*httpClient
}

// NewLLMClient creates a client for the inference server described by cfg.
func NewLLMClient(name string, cfg config.ProviderConfig, opts Options) *LLMClient {
	return &LLMClient{httpClient: newHTTPClient(name, cfg, opts)}
}

// Generate submits a conversation and returns the generated reply.
// Zero-valued generation parameters are filled with the server defaults.
func (c *LLMClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if len(req.Messages) == 0 {
		return nil, &ValidationError{Field: "messages", Message: "at least one message is required"}
	}
	for i, m := range req.Messages {
		switch m.Role {
		case "system", "user", "assistant":
		default:
			return nil, &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("unknown role %q", m.Role),
			}
		}
	}
	if req.MaxTokens > MaxGenerateTokens {
		return nil, &ValidationError{
			Field:   "max_tokens",
			Message: fmt.Sprintf("must not exceed %d", MaxGenerateTokens),
		}
	}

	body := *req
	if body.MaxTokens <= 0 {
		body.MaxTokens = DefaultMaxTokens
	}
	if body.Temperature == 0 {
		body.Temperature = DefaultTemperature
	}
	if body.TopP == 0 {
		body.TopP = DefaultTopP
	}

	var resp GenerateResponse
	if err := c.doJSON(ctx, "generate", http.MethodPost, "/generate", &body, &resp); err != nil {
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.RecordTokensGenerated(c.name, resp.TokensGenerated)
	}
	return &resp, nil
}

// Health fetches the inference server's health report.
func (c *LLMClient) Health(ctx context.Context) (*LLMHealth, error) {
	var resp LLMHealth
	if err := c.doJSON(ctx, "health", http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats fetches the inference server's usage statistics.
func (c *LLMClient) Stats(ctx context.Context) (*LLMStats, error) {
	var resp LLMStats
	if err := c.doJSON(ctx, "stats", http.MethodGet, "/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Probe returns a health check function for the health checker. The
// probe fails when the server is unreachable and reports degraded when
// the server responds but has no model loaded.
func (c *LLMClient) Probe() health.CheckFunc {
	return func(ctx context.Context) (health.CheckResponse, error) {
		h, err := c.Health(ctx)
		if err != nil {
			return health.CheckResponse{}, err
		}

		resp := health.CheckResponse{
			Message: fmt.Sprintf("model %s", h.Model),
			Details: map[string]any{
				"model":          h.Model,
				"model_loaded":   h.ModelLoaded,
				"uptime_seconds": h.UptimeSeconds,
			},
		}
		if !h.ModelLoaded || h.Status != "healthy" {
			resp.Degraded = true
			resp.Message = "model not loaded"
		}
		return resp, nil
	}
}
