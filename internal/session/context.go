package session

import "context"

type contextKey string

const bindingKey contextKey = "session_binding"

func WithBinding(ctx context.Context, b Binding) context.Context {
	return context.WithValue(ctx, bindingKey, b)
}

// FromContext reports the binding the session middleware found, if any.
func FromContext(ctx context.Context) (Binding, bool) {
	b, ok := ctx.Value(bindingKey).(Binding)
	return b, ok && b.Valid()
}
