package console

import "context"

type ctxKey int

const ctxKeyVerbose ctxKey = iota

// SetVerbose marks the context so downstream callers (the HID adapter)
// emit wire-level dumps.
func SetVerbose(parent context.Context, value bool) context.Context {
	return context.WithValue(parent, ctxKeyVerbose, value)
}

func IsVerbose(ctx context.Context) bool {
	val, ok := ctx.Value(ctxKeyVerbose).(bool)
	return ok && val
}
