//go:generate mockgen -destination=./mocks/transport.go . Transport,Driver
package transport

import "context"

// Transport registers transfers and drives them asynchronously.
// Add and Remove never block on network activity.
type Transport interface {
	// Add registers t and starts it. Unknown schemes and a closed transport
	// are rejected synchronously.
	Add(t *Transfer) error
	// Remove aborts t. Once Remove returns no completion for t is delivered.
	Remove(t *Transfer)
	// Close aborts every transfer and waits for the workers to exit.
	Close() error
}

// Driver performs one transfer for a single scheme. Do must honour ctx
// cancellation and always return a Result.
type Driver interface {
	Do(ctx context.Context, t *Transfer) Result
}
