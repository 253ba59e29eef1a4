package strategies

import "context"

// Noop does nothing.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) OnTick(context.Context, *Env) error { return nil }
