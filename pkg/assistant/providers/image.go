package providers

import (
	"context"
	"net/http"
	"time"

	"vesta-hq/vesta/pkg/config"
	"vesta-hq/vesta/pkg/telemetry/health"
)

// DefaultImageSize is used when an image request does not specify a size.
const DefaultImageSize = "1024x1024"

// ImageRequest is the request body for the image generation API.
type ImageRequest struct {
	// Prompt describes the image to generate.
	Prompt string `json:"prompt"`

	// Size is the output dimensions, e.g. "1024x1024".
	Size string `json:"size"`
}

// ImageResult is a generated image reference.
type ImageResult struct {
	// ID is the provider-assigned identifier for the image.
	ID string `json:"id"`

	// URL is where the generated image can be fetched.
	URL string `json:"url"`

	// CreatedAt is when the image was generated.
	CreatedAt time.Time `json:"created_at"`
}

// ImageClient talks to the image generation API.
type ImageClient struct {
	*httpClient
}

// NewImageClient creates a client for the image API described by cfg.
func NewImageClient(name string, cfg config.ProviderConfig, opts Options) *ImageClient {
	return &ImageClient{httpClient: newHTTPClient(name, cfg, opts)}
}

// Generate requests an image for the given prompt.
func (c *ImageClient) Generate(ctx context.Context, req *ImageRequest) (*ImageResult, error) {
	if req.Prompt == "" {
		return nil, &ValidationError{Field: "prompt", Message: "prompt is required"}
	}

	body := *req
	if body.Size == "" {
		body.Size = DefaultImageSize
	}

	var resp ImageResult
	if err := c.doJSON(ctx, "generate_image", http.MethodPost, "/v1/images", &body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Probe returns a health check function for the health checker.
func (c *ImageClient) Probe() health.CheckFunc {
	return func(ctx context.Context) (health.CheckResponse, error) {
		if err := c.doJSON(ctx, "health", http.MethodGet, "/health", nil, nil); err != nil {
			return health.CheckResponse{}, err
		}
		return health.CheckResponse{Message: "reachable"}, nil
	}
}
