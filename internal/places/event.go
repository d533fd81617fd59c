package places

import "context"

// Event is one progress message delivered to the caller before the terminal
// result. The instructional event has Progress == 0; per-place events count
// from 1 up to Total.
type Event struct {
	Message  string
	Progress int
	Total    int
}

// IsInstruction reports whether ev is the leading instructional payload.
func (ev Event) IsInstruction() bool {
	return ev.Progress == 0
}

// Emitter delivers events to the caller. Emit must not return until the
// event has been handed to the transport, so ordering holds end to end.
type Emitter interface {
	Emit(ctx context.Context, ev Event) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, ev Event) error

func (f EmitterFunc) Emit(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
