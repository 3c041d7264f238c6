// Package providers contains HTTP clients for the content providers the
// assistant depends on: the local MLX inference server, the image
// generation API, and the web search API.
//
// Every client routes its requests through a rate limiter and a circuit
// breaker. The limiter is checked first so that throttled requests never
// count against the breaker's failure threshold:
//
//	llm := providers.NewLLMClient("mlx", cfg, providers.Options{
//	    Breaker: breakers.Get("mlx"),
//	    Limiter: limiters.Get("mlx"),
//	})
//	resp, err := llm.Generate(ctx, &providers.GenerateRequest{
//	    Messages: []providers.Message{{Role: "user", Content: "hello"}},
//	})
//
// Each client exposes a Probe suitable for registration with the health
// checker.
package providers
