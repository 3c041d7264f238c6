package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"vesta-hq/vesta/pkg/config"
	"vesta-hq/vesta/pkg/resilience/breaker"
	"vesta-hq/vesta/pkg/resilience/ratelimit"
)

func providerConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		Type:    "llm",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}
}

// ============================================================
// LLM client
// ============================================================

func TestLLMClient_Generate(t *testing.T) {
	var gotReq GenerateRequest
	var gotRequestID string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/generate" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotRequestID = r.Header.Get("X-Request-ID")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(GenerateResponse{
			Response:         "hello back",
			TokensGenerated:  7,
			GenerationTimeMS: 120,
			Model:            "test-model",
		})
	}))
	defer srv.Close()

	llm := NewLLMClient("mlx", providerConfig(srv.URL), Options{})

	resp, err := llm.Generate(context.Background(), &GenerateRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Response != "hello back" || resp.TokensGenerated != 7 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if gotReq.MaxTokens != DefaultMaxTokens {
		t.Errorf("expected default max_tokens %d, got %d", DefaultMaxTokens, gotReq.MaxTokens)
	}
	if gotReq.Temperature != DefaultTemperature || gotReq.TopP != DefaultTopP {
		t.Errorf("expected default sampling params, got temp=%v top_p=%v",
			gotReq.Temperature, gotReq.TopP)
	}
	if gotRequestID == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestLLMClient_GenerateKeepsExplicitParams(t *testing.T) {
	var gotReq GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(GenerateResponse{Response: "ok"})
	}))
	defer srv.Close()

	llm := NewLLMClient("mlx", providerConfig(srv.URL), Options{})

	_, err := llm.Generate(context.Background(), &GenerateRequest{
		Messages:    []Message{{Role: "user", Content: "hi"}},
		MaxTokens:   64,
		Temperature: 0.2,
		TopP:        0.5,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if gotReq.MaxTokens != 64 || gotReq.Temperature != 0.2 || gotReq.TopP != 0.5 {
		t.Errorf("explicit params were not preserved: %+v", gotReq)
	}
}

func TestLLMClient_GenerateValidation(t *testing.T) {
	llm := NewLLMClient("mlx", providerConfig("http://localhost:0"), Options{})

	tests := []struct {
		name string
		req  *GenerateRequest
	}{
		{"empty messages", &GenerateRequest{}},
		{"unknown role", &GenerateRequest{
			Messages: []Message{{Role: "narrator", Content: "hi"}},
		}},
		{"max_tokens over limit", &GenerateRequest{
			Messages:  []Message{{Role: "user", Content: "hi"}},
			MaxTokens: MaxGenerateTokens + 1,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := llm.Generate(context.Background(), tt.req)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestLLMClient_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	llm := NewLLMClient("mlx", providerConfig(srv.URL), Options{})

	_, err := llm.Stats(context.Background())
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if ae.Provider != "mlx" {
		t.Errorf("expected provider mlx, got %q", ae.Provider)
	}
}

func TestLLMClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	llm := NewLLMClient("mlx", providerConfig(srv.URL), Options{})

	_, err := llm.Health(context.Background())
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", pe.StatusCode)
	}
}

func TestLLMClient_ParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	llm := NewLLMClient("mlx", providerConfig(srv.URL), Options{})

	_, err := llm.Health(context.Background())
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestLLMClient_Stats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stats" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(LLMStats{
			Model:                "test-model",
			TotalRequests:        42,
			TotalTokensGenerated: 1234,
		})
	}))
	defer srv.Close()

	llm := NewLLMClient("mlx", providerConfig(srv.URL), Options{})

	stats, err := llm.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalRequests != 42 || stats.TotalTokensGenerated != 1234 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

// ============================================================
// Resilience wiring
// ============================================================

func TestClient_BreakerOpensAndRejects(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	br := breaker.New("mlx", breaker.Config{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          time.Second,
		ResetTimeout:     time.Minute,
	})
	llm := NewLLMClient("mlx", providerConfig(srv.URL), Options{Breaker: br})

	for i := 0; i < 2; i++ {
		if _, err := llm.Health(context.Background()); err == nil {
			t.Fatal("expected failure")
		}
	}
	if br.State() != breaker.StateOpen {
		t.Fatalf("expected breaker open, got %v", br.State())
	}

	before := hits.Load()
	_, err := llm.Health(context.Background())
	if !errors.Is(err, breaker.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if hits.Load() != before {
		t.Error("rejected request should not reach the server")
	}
}

func TestClient_LimiterRejectionDoesNotTripBreaker(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		json.NewEncoder(w).Encode(LLMHealth{Status: "healthy", ModelLoaded: true})
	}))
	defer srv.Close()

	br := breaker.New("mlx", breaker.Config{FailureThreshold: 1})
	lim := ratelimit.NewLimiter(ratelimit.Config{
		Strategy:    ratelimit.StrategySlidingWindow,
		MaxRequests: 1,
		Window:      time.Minute,
	})
	llm := NewLLMClient("mlx", providerConfig(srv.URL), Options{Breaker: br, Limiter: lim})

	if _, err := llm.Health(context.Background()); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}

	_, err := llm.Health(context.Background())
	if !errors.Is(err, ratelimit.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("throttled request should not reach the server, got %d hits", hits.Load())
	}
	if br.State() != breaker.StateClosed {
		t.Errorf("throttled request must not count as breaker failure, state=%v", br.State())
	}
}

type fakeRecorder struct {
	requests []string
	tokens   int
	breaker  []string
	limiter  []bool
}

func (r *fakeRecorder) RecordProviderRequest(provider, operation, status string, _ time.Duration) {
	r.requests = append(r.requests, provider+"/"+operation+"/"+status)
}

func (r *fakeRecorder) RecordTokensGenerated(_ string, tokens int) { r.tokens += tokens }

func (r *fakeRecorder) RecordBreakerResult(_ string, outcome string) {
	r.breaker = append(r.breaker, outcome)
}

func (r *fakeRecorder) RecordLimiterResult(_ string, allowed bool) {
	r.limiter = append(r.limiter, allowed)
}

func TestClient_RecordsOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(LLMHealth{Status: "healthy", ModelLoaded: true})
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	br := breaker.New("mlx", breaker.Config{FailureThreshold: 1})
	lim := ratelimit.NewLimiter(ratelimit.Config{
		Strategy:    ratelimit.StrategySlidingWindow,
		MaxRequests: 1,
		Window:      time.Minute,
	})
	llm := NewLLMClient("mlx", providerConfig(srv.URL), Options{Breaker: br, Limiter: lim, Metrics: rec})

	if _, err := llm.Health(context.Background()); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}
	if _, err := llm.Health(context.Background()); !errors.Is(err, ratelimit.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	if want := []string{"mlx/health/success", "mlx/health/throttled"}; len(rec.requests) != 2 ||
		rec.requests[0] != want[0] || rec.requests[1] != want[1] {
		t.Errorf("expected request outcomes %v, got %v", want, rec.requests)
	}
	if len(rec.limiter) != 2 || !rec.limiter[0] || rec.limiter[1] {
		t.Errorf("expected limiter outcomes [true false], got %v", rec.limiter)
	}
	// The throttled call never reached the breaker, so only the first
	// outcome is attributed to it.
	if len(rec.breaker) != 1 || rec.breaker[0] != "success" {
		t.Errorf("expected breaker outcomes [success], got %v", rec.breaker)
	}
}

// ============================================================
// Probes
// ============================================================

func TestLLMClient_Probe(t *testing.T) {
	loaded := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		if !loaded {
			status = "unhealthy"
		}
		json.NewEncoder(w).Encode(LLMHealth{
			Status:      status,
			Model:       "test-model",
			ModelLoaded: loaded,
		})
	}))
	defer srv.Close()

	llm := NewLLMClient("mlx", providerConfig(srv.URL), Options{})
	probe := llm.Probe()

	resp, err := probe(context.Background())
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if resp.Degraded {
		t.Error("expected healthy probe result")
	}

	loaded = false
	resp, err = probe(context.Background())
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if !resp.Degraded {
		t.Error("expected degraded result when model not loaded")
	}
}

func TestLLMClient_ProbeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	llm := NewLLMClient("mlx", providerConfig(srv.URL), Options{})
	if _, err := llm.Probe()(context.Background()); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

// ============================================================
// Image client
// ============================================================

func TestImageClient_Generate(t *testing.T) {
	var gotReq ImageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/images" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "img-key" {
			t.Errorf("expected api key header, got %q", r.Header.Get("X-API-Key"))
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(ImageResult{ID: "img-1", URL: "https://img.example.com/1.png"})
	}))
	defer srv.Close()

	cfg := providerConfig(srv.URL)
	cfg.Type = "image"
	cfg.APIKey = "img-key"
	img := NewImageClient("image", cfg, Options{})

	res, err := img.Generate(context.Background(), &ImageRequest{Prompt: "a lighthouse"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.ID != "img-1" {
		t.Errorf("unexpected result: %+v", res)
	}
	if gotReq.Size != DefaultImageSize {
		t.Errorf("expected default size, got %q", gotReq.Size)
	}
}

func TestImageClient_GenerateRequiresPrompt(t *testing.T) {
	img := NewImageClient("image", providerConfig("http://localhost:0"), Options{})
	_, err := img.Generate(context.Background(), &ImageRequest{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

// ============================================================
// Search client
// ============================================================

func TestSearchClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "golang" {
			t.Errorf("expected query golang, got %q", got)
		}
		if got := r.URL.Query().Get("count"); got != "3" {
			t.Errorf("expected count 3, got %q", got)
		}
		json.NewEncoder(w).Encode(SearchResponse{
			Query: "golang",
			Results: []SearchResult{
				{Title: "The Go Programming Language", URL: "https://go.dev"},
			},
		})
	}))
	defer srv.Close()

	cfg := providerConfig(srv.URL)
	cfg.Type = "search"
	sc := NewSearchClient("search", cfg, Options{})

	resp, err := sc.Search(context.Background(), "golang", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].URL != "https://go.dev" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
}

func TestSearchClient_DefaultCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("count"); got != "5" {
			t.Errorf("expected default count 5, got %q", got)
		}
		json.NewEncoder(w).Encode(SearchResponse{})
	}))
	defer srv.Close()

	sc := NewSearchClient("search", providerConfig(srv.URL), Options{})
	if _, err := sc.Search(context.Background(), "anything", 0); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
}

func TestSearchClient_RequiresQuery(t *testing.T) {
	sc := NewSearchClient("search", providerConfig("http://localhost:0"), Options{})
	_, err := sc.Search(context.Background(), "", 3)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
