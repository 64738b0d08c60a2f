package trace

import "context"

type tracerKey struct{}

// WithTracer returns ctx carrying t; a nil t stores Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	return context.WithValue(ctx, tracerKey{}, orNop(t))
}

// FromContext returns the Tracer stored in ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	t, _ := ctx.Value(tracerKey{}).(Tracer)
	return orNop(t)
}

func orNop(t Tracer) Tracer {
	if t == nil {
		return Nop
	}
	return t
}
