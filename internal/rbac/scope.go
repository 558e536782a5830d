package rbac

import "context"

type actorContextKey struct{}

type credentialsContextKey struct{}

// Run executes fn inside a request scope carrying actor. The scope is the
// derived context handed to fn: anything fn calls with it, including goroutines
// it starts, observes actor; the caller's ctx is left untouched, so an outer
// actor becomes visible again once fn returns.
func Run(ctx context.Context, actor *Actor, fn func(context.Context) error) error {
	_, err := RunWithActor(ctx, actor, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RunWithActor is Run for functions that produce a value.
func RunWithActor[T any](ctx context.Context, actor *Actor, fn func(context.Context) (T, error)) (T, error) {
	return fn(WithActor(ctx, actor))
}

// WithActor returns a context carrying actor. A nil actor masks any outer one.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// CurrentActor returns the actor of the active scope. Outside any scope it
// returns (nil, false), which callers treat as a system-initiated operation.
func CurrentActor(ctx context.Context) (*Actor, bool) {
	if ctx == nil {
		return nil, false
	}
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor, actor != nil
}

// WithCredentials attaches inbound credentials for the gate to resolve.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsContextKey{}, creds)
}

// CredentialsFromContext returns the credentials attached by the transport
// layer, or empty credentials.
func CredentialsFromContext(ctx context.Context) Credentials {
	creds, _ := ctx.Value(credentialsContextKey{}).(Credentials)
	return creds
}
