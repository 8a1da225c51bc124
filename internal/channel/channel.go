package channel

import (
	"context"
)

// Sender delivers one message to one identifier on a single channel kind.
// Implementations wrap external providers; the dispatcher treats them all
// uniformly and applies its own per-attempt timeout through ctx.
type Sender interface {
	Send(ctx context.Context, identifier, message string) error
}

// Func adapts a function to the Sender interface.
type Func func(ctx context.Context, identifier, message string) error

func (f Func) Send(ctx context.Context, identifier, message string) error {
	return f(ctx, identifier, message)
}
