// Vesta is a personal automation assistant runtime. It bridges a local
// chat application, an MLX inference server, and image/search APIs,
// guarding every dependency with circuit breakers, rate limiters, and
// health monitoring.
//
// Usage:
//
//	# Start the assistant with default configuration
//	vesta run
//
//	# Start with a custom configuration file
//	vesta run --config /path/to/vesta.yaml
//
//	# One-shot health report
//	vesta check
//
//	# Show version information
//	vesta version
package main

func main() {
	Execute()
}
