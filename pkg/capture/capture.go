package capture

import "context"

// Controller is the capture-tool control link. The recorder treats a
// disconnected controller as a no-op collaborator: session bookkeeping
// proceeds either way.
type Controller interface {
	IsConnected() bool
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Rotate(ctx context.Context) error
}

// Noop is used when no capture tool is configured.
type Noop struct{}

func (Noop) IsConnected() bool                { return false }
func (Noop) Start(ctx context.Context) error  { return nil }
func (Noop) Stop(ctx context.Context) error   { return nil }
func (Noop) Rotate(ctx context.Context) error { return nil }
