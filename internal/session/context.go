package session

import "context"

// Visitor is the per-request view of a browser: its cookie id and, when
// signed in, its session. The id doubles as the notification audience.
type Visitor struct {
	ID      string
	Session Session
	Valid   bool
}

type ctxKey struct{}

// NewContext binds v to ctx. v is shared by pointer so that a session
// cleared mid-request is seen by later calls in the same request.
func NewContext(ctx context.Context, v *Visitor) context.Context {
	return context.WithValue(ctx, ctxKey{}, v)
}

// FromContext returns the visitor bound to ctx, or nil.
func FromContext(ctx context.Context) *Visitor {
	v, _ := ctx.Value(ctxKey{}).(*Visitor)
	return v
}
