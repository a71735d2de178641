package learning

import "context"

type containerKey struct{}

// NewContext returns a copy of ctx carrying c
func NewContext(ctx context.Context, c *Container) context.Context {
	return context.WithValue(ctx, containerKey{}, c)
}

// FromContext returns the container carried by ctx. It panics when there is
// none: handlers must be wrapped by the registry before they run.
func FromContext(ctx context.Context) *Container {
	c, ok := ctx.Value(containerKey{}).(*Container)
	if !ok || c == nil {
		panic("learning: FromContext called without a container in the context")
	}
	return c
}
