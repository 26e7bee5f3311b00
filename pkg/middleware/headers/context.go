package headers

import "context"

type contextKey struct{ name string }

var nonceCtxKey = &contextKey{"csp-nonce"}

func withNonce(ctx context.Context, n Nonce) context.Context {
	return context.WithValue(ctx, nonceCtxKey, n)
}

// NonceFromContext returns the nonce bound to the current request. It is
// absent when the security headers are disabled.
func NonceFromContext(ctx context.Context) (string, bool) {
	n, ok := ctx.Value(nonceCtxKey).(Nonce)
	if !ok || n == "" {
		return "", false
	}
	return string(n), true
}
