// Package delivery defines the contract every transport front end satisfies.
package delivery

import "context"

// Delivery is a long-running transport (HTTP server, worker loop) started by
// the application entrypoint. Serve blocks until the server stops.
type Delivery interface {
	Serve(ctx context.Context) error
}
