package ctxutil

import (
	"context"

	"github.com/fieldcare/fieldcare-backend/internal/domain/auth"
)

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

type requestDataKey struct{}

type RequestData struct {
	TokenString string
	UserID      uint
	// Identity is set once the profile lookup has run.
	Identity *auth.Identity
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(Default(ctx), requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	rd, _ := ctx.Value(requestDataKey{}).(*RequestData)
	return rd
}

// IdentityFrom returns the resolved caller identity, if any.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	rd := GetRequestData(ctx)
	if rd == nil || rd.Identity == nil {
		return auth.Identity{}, false
	}
	return *rd.Identity, true
}

type traceDataKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(Default(ctx), traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, _ := ctx.Value(traceDataKey{}).(*TraceData)
	return td
}
