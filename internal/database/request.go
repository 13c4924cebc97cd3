package database

import "context"

type requestKey struct{}

// RequestInfo identifies the HTTP request a statement ran on behalf of.
type RequestInfo struct {
	Method string
	Path   string
}

// WithRequest tags ctx so failed statements can be traced back to a route.
func WithRequest(ctx context.Context, method, path string) context.Context {
	return context.WithValue(ctx, requestKey{}, RequestInfo{Method: method, Path: path})
}

func RequestFrom(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestKey{}).(RequestInfo)
	return info, ok
}
